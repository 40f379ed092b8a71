package rerank

import (
	"context"

	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/pipeline"
)

// Diversity 是一个简单的多样性 ReRank 节点：按菜系/类别去重，
// 每个类别只保留排序最靠前的一个物品，避免推荐列表被单一菜系刷屏。
// 类别来源优先级：
//   - label[LabelKey].Value
//   - meta[LabelKey] (string)
//
// 没有类别信息的物品不参与去重，原样保留。
type Diversity struct {
	LabelKey string // 默认 "cuisine"
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.LabelKey
	if key == "" {
		key = "cuisine"
	}

	seen := make(map[string]bool, 16)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}

		cate := ""
		if lbl, ok := it.GetLabel(key); ok {
			cate = lbl.Value
		}
		if cate == "" && it.Meta != nil {
			if v, ok := it.Meta[key]; ok {
				if s, ok := v.(string); ok {
					cate = s
				}
			}
		}

		if cate == "" {
			out = append(out, it)
			continue
		}
		if seen[cate] {
			continue
		}
		seen[cate] = true
		out = append(out, it)
	}

	return out, nil
}
