package recall

import (
	"context"

	"github.com/foodiecorner/cookrec/core"
)

// Matrix 是一次召回所需的交互矩阵切片：
// 目标用户的偏好向量、排除集，以及与目标存在重叠的候选用户向量。
// 纯派生数据，按请求构建，不持久化。
type Matrix struct {
	// Target 是目标用户的偏好向量（仅正向交互，权重恒为 1）。
	Target core.PreferenceVector

	// Exclusion 是目标用户交互过的全部物品（正向 + 负向）。
	// 点过踩的菜谱同样不允许再被推荐。
	Exclusion map[string]struct{}

	// Candidates 是候选用户 -> 偏好向量，仅包含与 Target 至少共享
	// 一个正向物品的用户。相似度为零的用户不可能进入这里。
	Candidates map[string]core.PreferenceVector
}

// ColdStart 报告目标用户是否没有任何可用的正向历史。
func (m *Matrix) ColdStart() bool {
	return len(m.Target) == 0
}

// MatrixBuilder 构建交互矩阵切片（纯读取 + 变换，无副作用）。
//
// 性能要点：候选集通过 itemID -> set<userID> 倒排索引获取，只扫描
// 与目标正向物品相关的交互，规模正比于目标自身的点赞数，
// 避免 O(用户数 × 物品数) 的全矩阵构建。
type MatrixBuilder struct {
	Store core.InteractionStore
}

// Build 构建目标用户的矩阵切片。
// 用户不存在或没有任何正向交互时返回空 Target + 空 Candidates，
// nil error——这是正常的冷启动状态，不是错误。
func (b *MatrixBuilder) Build(ctx context.Context, userID string) (*Matrix, error) {
	m := &Matrix{
		Target:     make(core.PreferenceVector),
		Exclusion:  make(map[string]struct{}),
		Candidates: make(map[string]core.PreferenceVector),
	}

	interactions, err := b.Store.GetUserInteractions(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, in := range interactions {
		m.Exclusion[in.ItemID] = struct{}{}
		if in.State == core.StatePositive {
			m.Target[in.ItemID] = core.PreferenceWeight
		}
	}

	if len(m.Target) == 0 {
		return m, nil
	}

	likedItems := make([]string, 0, len(m.Target))
	for itemID := range m.Target {
		likedItems = append(likedItems, itemID)
	}

	// 倒排索引：只有对目标点赞物品同样点过赞的用户才可能有非零相似度
	overlaps, err := b.Store.GetUsersForItems(ctx, likedItems, userID)
	if err != nil {
		return nil, err
	}
	if len(overlaps) == 0 {
		return m, nil
	}

	candidateIDs := make([]string, 0, len(overlaps))
	seen := make(map[string]struct{}, len(overlaps))
	for _, in := range overlaps {
		if _, ok := seen[in.UserID]; ok {
			continue
		}
		seen[in.UserID] = struct{}{}
		candidateIDs = append(candidateIDs, in.UserID)
	}

	// 相似度计算需要候选的完整向量（Jaccard 的并集依赖 |B|），批量拉取
	vectors, err := b.Store.GetPositiveVectors(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}
	for userID, vector := range vectors {
		if len(vector) == 0 {
			continue
		}
		m.Candidates[userID] = vector
	}

	return m, nil
}
