package core

import "context"

// ItemCatalog 是物品目录的领域接口（外部协作方：菜谱库）。
//
// 用途：
//   - 把推荐出的 ID 列表 hydrate 成完整物品载荷
//   - 提供基于浏览量的次级热门信号（交互热门不足时兜底）
type ItemCatalog interface {
	// Name 返回目录名称（用于日志/监控）
	Name() string

	// GetItemsByIDs 按给定顺序批量获取物品，保持请求顺序；
	// 不存在的 ID 被跳过，不是错误。
	GetItemsByIDs(ctx context.Context, ids []string) ([]*Item, error)

	// GetPopularItems 返回按全局浏览量降序的物品 ID 列表，
	// 排除 exclude 中的 ID，最多 limit 个。目录为空返回空切片，不是错误。
	GetPopularItems(ctx context.Context, exclude map[string]struct{}, limit int) ([]string, error)
}

// ErrCatalogUnavailable 表示目录读取失败（基础设施故障）。
var ErrCatalogUnavailable = NewDomainError(ModuleCatalog, ErrorCodeUnavailable, "catalog: unavailable")
