package core

import "context"

// State 是一次交互的偏好状态。
// 序列化值沿用业务侧的 "liked" / "disliked"。
type State string

const (
	StatePositive State = "liked"
	StateNegative State = "disliked"
)

// Valid 检查状态是否为已知值。
func (s State) Valid() bool {
	return s == StatePositive || s == StateNegative
}

// Interaction 是一条用户对物品的偏好事实。
// 每个 (UserID, ItemID) 至多一条：新交互覆盖旧状态（upsert），由存储实现保证。
type Interaction struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	State  State  `json:"state"`
}

// PreferenceVector 是派生的偏好向量：itemID -> 权重。
// 只包含用户正向交互过的物品，权重固定为 1（隐式负反馈模型：
// 负向与缺失交互都不出现在向量里）。按需从 InteractionStore 重建，从不落盘。
type PreferenceVector map[string]float64

// PreferenceWeight 是正向交互在偏好向量中的固定权重。
const PreferenceWeight = 1.0

// InteractionStore 是交互数据的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 读路径面向召回算法：目标用户全量交互 + 倒排候选 + 批量向量
//
// 实现：
//   - store.InteractionAdapter（基于 core.Store，可落 Memory/Redis）
type InteractionStore interface {
	// Name 返回存储名称（用于日志/监控）
	Name() string

	// GetUserInteractions 获取用户的全部交互（含正向与负向）。
	// 未知用户返回空切片，不是错误。
	GetUserInteractions(ctx context.Context, userID string) ([]Interaction, error)

	// GetUsersForItems 获取对给定物品集合有正向交互的 (userID, itemID) 对，
	// 排除 excludeUserID。基于 itemID -> set<userID> 倒排索引实现，
	// 使候选集规模正比于目标用户的点赞数而非全站用户数。
	GetUsersForItems(ctx context.Context, itemIDs []string, excludeUserID string) ([]Interaction, error)

	// GetPositiveVectors 批量获取用户的偏好向量（仅正向）。
	GetPositiveVectors(ctx context.Context, userIDs []string) (map[string]PreferenceVector, error)

	// GetPositiveCounts 获取全局每个物品的正向交互计数（用于热门兜底）。
	GetPositiveCounts(ctx context.Context) (map[string]int64, error)
}

// ErrInteractionUnavailable 表示交互数据读取失败（基础设施故障，
// 必须向上传播，不允许静默降级为空结果）。
var ErrInteractionUnavailable = NewDomainError(ModuleInteraction, ErrorCodeUnavailable, "interaction: store unavailable")
