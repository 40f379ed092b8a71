package core

import "context"

// FeatureProvider 是物品特征的领域接口，用于 hydration 之后补充
// 展示/排序用的数值特征（如 view_count、like_count）。
//
// 实现：
//   - feature.MemoryProvider（测试/原型）
//   - feature.FeastProvider（Feast Feature Store，线上）
type FeatureProvider interface {
	// Name 返回提供者名称（用于日志/监控）
	Name() string

	// GetItemFeatures 获取单个物品的特征
	GetItemFeatures(ctx context.Context, itemID string) (map[string]float64, error)

	// BatchGetItemFeatures 批量获取物品特征（推荐使用，减少网络往返）
	BatchGetItemFeatures(ctx context.Context, itemIDs []string) (map[string]map[string]float64, error)

	// Close 释放资源
	Close() error
}

// ErrFeatureUnavailable 表示特征服务不可用。特征是增强信号而非必需数据，
// 调用方可以选择忽略此错误继续返回未加特征的结果。
var ErrFeatureUnavailable = NewDomainError(ModuleFeature, ErrorCodeUnavailable, "feature: service unavailable")
