// Package recommender 把召回、兜底、缓存、过滤和 hydration 编排成
// 一个面向调用方的推荐服务。
package recommender

import (
	"context"
	"log/slog"
	"time"

	"github.com/foodiecorner/cookrec/cache"
	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/feature"
	"github.com/foodiecorner/cookrec/pipeline"
	"github.com/foodiecorner/cookrec/recall"
)

// DefaultPoolSize 是单个用户缓存的候选池大小。
// 缓存按用户维度而非 (用户, limit) 维度建 key，计算时先生成
// 固定大小的候选池，读取时再按 limit 截断。
// limit 超过池大小时按 limit 实时计算并绕过缓存，保证调用方
// 在候选充足时总能拿满 limit 个结果。
const DefaultPoolSize = 100

// Recommender 是推荐服务的入口。
//
// 一次 Recommend 的流程：
//  1. 入参校验（空 userID / 非正 limit 在任何 I/O 之前拒绝）
//  2. 缓存读取；未命中时执行 3-6 并写入缓存
//  3. 个性化召回（UserCF）；冷启动时结果为空
//  4. 热门兜底补位（排除已交互与已选物品）直到候选池满或池耗尽
//  5. 后置 Pipeline（过滤 / 重排，可配置）
//  6. 产出物品 ID 候选池
//  7. 按 limit 截断，经目录 hydrate 成完整物品，可选特征增强
//
// 错误语义：基础设施故障（交互库、目录不可用）原样向上传播，
// 绝不静默降级成空结果；空结果只代表真实的无数据状态。
type Recommender struct {
	Interactions core.InteractionStore
	Catalog      core.ItemCatalog

	// Source 是个性化召回源；nil 时只走热门。
	Source *recall.UserCF

	// Hot 是热门兜底；nil 时冷启动直接返回空结果。
	Hot *recall.Hot

	// Cache 按用户缓存候选池；nil 时每次全量计算。
	Cache *cache.ResultCache

	// Post 是缓存计算内的后置 Pipeline（过滤 / 重排），可选。
	Post *pipeline.Pipeline

	// Features 在 hydration 之后为物品补充数值特征，可选。
	Features core.FeatureProvider

	// PoolSize 候选池大小，<= 0 时取 DefaultPoolSize。
	PoolSize int

	// Logger 为 nil 时使用 slog 默认 logger。
	Logger *slog.Logger
}

func (r *Recommender) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Recommender) poolSize() int {
	if r.PoolSize > 0 {
		return r.PoolSize
	}
	return DefaultPoolSize
}

// Recommend 为用户生成至多 limit 个推荐物品（hydrated）。
// 空结果是合法输出：新系统、冷启动且无热门数据时返回空切片。
func (r *Recommender) Recommend(ctx context.Context, userID string, limit int) ([]*core.Item, error) {
	start := time.Now()

	if userID == "" {
		requestsTotal.WithLabelValues("invalid").Inc()
		return nil, core.NewDomainError(core.ModuleRecommender, core.ErrorCodeInvalidInput, "recommender: empty user id")
	}
	if limit <= 0 {
		requestsTotal.WithLabelValues("invalid").Inc()
		return nil, core.NewDomainError(core.ModuleRecommender, core.ErrorCodeInvalidInput, "recommender: limit must be positive")
	}

	ids, hit, err := r.pooledIDs(ctx, userID, limit)
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		r.logger().Error("recommend failed", "user_id", userID, "err", err)
		return nil, err
	}
	if hit {
		cacheHitsTotal.Inc()
	} else {
		cacheMissesTotal.Inc()
	}

	if len(ids) > limit {
		ids = ids[:limit]
	}

	items, err := r.hydrate(ctx, ids)
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	requestsTotal.WithLabelValues("ok").Inc()
	recommendDuration.Observe(time.Since(start).Seconds())
	r.logger().Info("recommend",
		"user_id", userID,
		"limit", limit,
		"returned", len(items),
		"cache_hit", hit,
	)
	return items, nil
}

// pooledIDs 返回用户的候选池 ID 列表，优先走缓存。
// limit 超过池大小时缓存里的池不够截断，改为按 limit 实时计算，
// 且不把超大结果写回缓存污染常规请求。
func (r *Recommender) pooledIDs(ctx context.Context, userID string, limit int) ([]string, bool, error) {
	pool := r.poolSize()
	if limit > pool {
		ids, err := r.compute(ctx, userID, limit)
		return ids, false, err
	}
	if r.Cache == nil {
		ids, err := r.compute(ctx, userID, pool)
		return ids, false, err
	}
	return r.Cache.GetOrCompute(ctx, userID, func(ctx context.Context) ([]string, error) {
		return r.compute(ctx, userID, pool)
	})
}

// compute 执行一次完整的候选池计算（召回 + 兜底 + 后置 Pipeline）。
func (r *Recommender) compute(ctx context.Context, userID string, pool int) ([]string, error) {
	rctx := &core.RecommendContext{UserID: userID}

	var items []*core.Item
	if r.Source != nil {
		var err error
		items, err = r.Source.Recall(ctx, rctx)
		if err != nil {
			return nil, err
		}
	}

	selected := make(map[string]struct{}, len(items))
	for _, it := range items {
		selected[it.ID] = struct{}{}
	}

	// 个性化结果不足时用热门补位；已交互（含点踩）与已选的物品不再出现
	if len(items) < pool && r.Hot != nil {
		exclusion, err := r.exclusionSet(ctx, userID)
		if err != nil {
			return nil, err
		}
		for id := range selected {
			exclusion[id] = struct{}{}
		}

		padded, err := r.Hot.Popular(ctx, exclusion, pool-len(items))
		if err != nil {
			return nil, err
		}
		if len(padded) > 0 {
			fallbackTotal.Inc()
		}
		for rank, id := range padded {
			it := core.NewItem(id)
			it.Score = -float64(rank) // 热门补位排在个性化结果之后，保持原有顺序
			items = append(items, it)
		}
	}

	if r.Post != nil {
		var err error
		items, err = r.Post.Run(ctx, rctx, items)
		if err != nil {
			return nil, err
		}
	}

	if len(items) > pool {
		items = items[:pool]
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it != nil {
			ids = append(ids, it.ID)
		}
	}
	return ids, nil
}

// exclusionSet 返回用户交互过的全部物品 ID（正向 + 负向）。
func (r *Recommender) exclusionSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if r.Interactions == nil {
		return out, nil
	}
	interactions, err := r.Interactions.GetUserInteractions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, in := range interactions {
		out[in.ItemID] = struct{}{}
	}
	return out, nil
}

// hydrate 把 ID 列表换成完整物品载荷，并做可选的特征增强。
// 目录中已不存在的物品被跳过，顺序保持。
func (r *Recommender) hydrate(ctx context.Context, ids []string) ([]*core.Item, error) {
	if len(ids) == 0 {
		return []*core.Item{}, nil
	}
	if r.Catalog == nil {
		out := make([]*core.Item, 0, len(ids))
		for _, id := range ids {
			out = append(out, core.NewItem(id))
		}
		return out, nil
	}

	items, err := r.Catalog.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	if r.Features != nil {
		enrich := &feature.EnrichNode{Provider: r.Features}
		items, err = enrich.Process(ctx, nil, items)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}
