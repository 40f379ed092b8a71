package filter

import (
	"context"

	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/pipeline"
	"github.com/foodiecorner/cookrec/pkg/utils"
)

// Interacted 是已交互过滤 Node：剔除目标用户交互过（点赞或点踩）的物品。
//
// 召回侧已经排除过交互物品；这个 Node 作为出口处的兜底约束放在
// pipeline 末端，保证热门补位等后加入的候选同样不会泄漏已交互物品。
// 每次 Process 只拉一次用户交互，按集合过滤。
type Interacted struct {
	Store core.InteractionStore
}

func (n *Interacted) Name() string        { return "filter.interacted" }
func (n *Interacted) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *Interacted) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Store == nil || rctx == nil || rctx.UserID == "" || len(items) == 0 {
		return items, nil
	}

	interactions, err := n.Store.GetUserInteractions(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	if len(interactions) == 0 {
		return items, nil
	}

	exclusion := make(map[string]struct{}, len(interactions))
	for _, in := range interactions {
		exclusion[in.ItemID] = struct{}{}
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if _, ok := exclusion[item.ID]; ok {
			item.PutLabel("filtered", utils.Label{Value: "true", Source: n.Name()})
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
