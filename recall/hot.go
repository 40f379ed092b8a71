package recall

import (
	"context"
	"sort"

	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/pipeline"
	"github.com/foodiecorner/cookrec/pkg/utils"
)

// Hot 是热门召回源，也是个性化结果不足时的兜底（冷启动 / 补位）。
//
// 排序信号，按优先级：
//  1. KV 有序集合快路径（Store 实现 KeyValueStore 时 ZRange 点赞计数 zset）
//  2. 全局正向交互计数（InteractionStore.GetPositiveCounts）
//  3. 目录浏览量（ItemCatalog.GetPopularItems，交互热门耗尽时追加）
//
// 整个交互库为空不是错误：返回空列表。基础设施读取失败必须向上传播，
// 不允许把硬故障静默当成"没有数据"。
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Hot struct {
	Interactions core.InteractionStore

	// Catalog 提供次级热门信号（浏览量），可以为 nil。
	Catalog core.ItemCatalog

	// Store + Key 指向预聚合的点赞计数 zset（可选快路径），
	// 例如 "hot:likes"。Store 为 nil 或 key 不存在时走计数路径。
	Store core.Store
	Key   string

	// TopK 是 Recall 作为召回源时返回的物品数量，<= 0 时取 DefaultHotTopK。
	TopK int
}

// DefaultHotTopK 是热门召回源默认返回的物品数量。
const DefaultHotTopK = 100

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口：不带排除集的全局热门。
func (r *Hot) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	topK := r.TopK
	if topK <= 0 {
		topK = DefaultHotTopK
	}
	ids, err := r.Popular(ctx, nil, topK)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(ids))
	for rank, id := range ids {
		it := core.NewItem(id)
		it.Score = float64(len(ids) - rank) // 保序分数，供下游排序/截断使用
		it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// Popular 返回按热门度降序的物品 ID 列表，排除 exclude 中的 ID，
// 最多 limit 个。同计数按物品 ID 升序，保证结果可复现。
func (r *Hot) Popular(ctx context.Context, exclude map[string]struct{}, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	appendID := func(id string) bool {
		if _, ok := exclude[id]; ok {
			return len(out) < limit
		}
		if _, ok := seen[id]; ok {
			return len(out) < limit
		}
		seen[id] = struct{}{}
		out = append(out, id)
		return len(out) < limit
	}

	ids, err := r.likedRanking(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !appendID(id) {
			return out, nil
		}
	}

	// 交互热门耗尽仍不足时，用目录浏览量补齐
	if r.Catalog != nil {
		// exclude + 已选都不要再出现
		skip := make(map[string]struct{}, len(exclude)+len(seen))
		for id := range exclude {
			skip[id] = struct{}{}
		}
		for id := range seen {
			skip[id] = struct{}{}
		}
		viewed, err := r.Catalog.GetPopularItems(ctx, skip, limit-len(out))
		if err != nil {
			return nil, err
		}
		for _, id := range viewed {
			if !appendID(id) {
				break
			}
		}
	}

	return out, nil
}

// likedRanking 返回按正向交互计数降序的全量物品 ID。
func (r *Hot) likedRanking(ctx context.Context) ([]string, error) {
	// 快路径：预聚合的点赞计数 zset（ZRange 已按分数降序）
	if r.Store != nil && r.Key != "" {
		if kv, ok := r.Store.(core.KeyValueStore); ok {
			members, err := kv.ZRange(ctx, r.Key, 0, -1)
			switch {
			case err == nil && len(members) > 0:
				return members, nil
			case err != nil && !core.IsStoreNotFound(err) && !core.IsStoreNotSupported(err):
				return nil, err
			}
		}
	}

	if r.Interactions == nil {
		return nil, nil
	}
	counts, err := r.Interactions.GetPositiveCounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids, nil
}
