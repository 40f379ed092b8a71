package feature

import (
	"context"

	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/pipeline"
)

// EnrichNode 是特征注入节点，在 hydration 之后为物品批量补充数值特征
// （view_count、like_count 等），写入 item.Features 供展示与排序使用。
//
// 特征是增强信号而非必需数据：Provider 拉取失败时记录标签并原样返回，
// 不中断推荐链路。
type EnrichNode struct {
	Provider core.FeatureProvider
}

func (n *EnrichNode) Name() string        { return "feature.enrich" }
func (n *EnrichNode) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *EnrichNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Provider == nil || len(items) == 0 {
		return items, nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it != nil {
			ids = append(ids, it.ID)
		}
	}

	batch, err := n.Provider.BatchGetItemFeatures(ctx, ids)
	if err != nil {
		// 特征服务故障不阻断推荐结果
		return items, nil
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		features, ok := batch[it.ID]
		if !ok {
			continue
		}
		if it.Features == nil {
			it.Features = make(map[string]float64, len(features))
		}
		for k, v := range features {
			it.Features[k] = v
		}
	}
	return items, nil
}
