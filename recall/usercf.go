package recall

import (
	"context"
	"sort"
	"strconv"

	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/pipeline"
	"github.com/foodiecorner/cookrec/pkg/utils"
	"github.com/foodiecorner/cookrec/similarity"
)

// UserCF 是基于用户的协同过滤召回源（User-based CF, u2i）。
//
// 核心思想："兴趣相似的用户，喜欢相似的菜谱"
//
// 算法流程：
//  1. 构建目标用户偏好向量 + 倒排候选集（MatrixBuilder）
//  2. 计算用户相似度（cosine / jaccard，策略可配）
//  3. 取 TopK 相似用户（NeighborSelector）
//  4. 加权投票：score[item] = Σ 点赞该物品的邻居相似度，
//     目标交互过的物品（含点踩）一律排除
//
// UserCF 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type UserCF struct {
	Store core.InteractionStore

	// Metric 相似度度量；nil 时使用默认度量（jaccard）。
	Metric similarity.Metric

	// TopKNeighbors 参与投票的近邻数量，<= 0 时取 DefaultNeighborK。
	TopKNeighbors int

	// TopKItems 最终返回的物品数量，<= 0 时不截断。
	TopKItems int
}

func (r *UserCF) Name() string        { return "recall.usercf" } // u2i (User-to-Item)
func (r *UserCF) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *UserCF) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
// 冷启动（目标无正向历史）返回空结果和 nil error，兜底由上层决定。
func (r *UserCF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Store == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	builder := &MatrixBuilder{Store: r.Store}
	matrix, err := builder.Build(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	if matrix.ColdStart() {
		return nil, nil
	}

	metric := r.Metric
	if metric == nil {
		metric, _ = similarity.New(similarity.DefaultMetric)
	}

	selector := &NeighborSelector{Metric: metric, TopK: r.TopKNeighbors}
	neighbors := selector.Select(matrix.Target, matrix.Candidates)
	if len(neighbors) == 0 {
		return nil, nil
	}

	// 加权投票：被多个邻居点赞的物品累积所有来源的相似度
	scores := make(map[string]float64)
	voters := make(map[string]int)
	for _, nb := range neighbors {
		for itemID := range matrix.Candidates[nb.UserID] {
			if _, interacted := matrix.Exclusion[itemID]; interacted {
				continue
			}
			scores[itemID] += nb.Score
			voters[itemID]++
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	ranked := make([]string, 0, len(scores))
	for itemID := range scores {
		ranked = append(ranked, itemID)
	}
	// 分数降序；同分按物品 ID 升序，保证结果可复现
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if r.TopKItems > 0 && len(ranked) > r.TopKItems {
		ranked = ranked[:r.TopKItems]
	}

	out := make([]*core.Item, 0, len(ranked))
	for _, itemID := range ranked {
		it := core.NewItem(itemID)
		it.Score = scores[itemID]
		it.PutLabel("recall_source", utils.Label{Value: "u2i", Source: "recall"})
		it.PutLabel("sim_metric", utils.Label{Value: metric.Name(), Source: "recall"})
		it.PutLabel("voters", utils.Label{Value: strconv.Itoa(voters[itemID]), Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
