package filter

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/foodiecorner/cookrec/core"
)

// BlacklistFilter 是黑名单过滤器，剔除被下架或人工屏蔽的物品。
// 黑名单来源有两个：内存中的固定列表和 Store 中按 key 维护的列表，
// 两者可以同时配置。
type BlacklistFilter struct {
	// ItemIDs 是内存中的黑名单物品 ID 列表
	ItemIDs []string

	// Store 用于从存储中读取黑名单（可选）
	Store core.Store

	// Key 是 Store 中的黑名单 key（可选）
	Key string
}

func (f *BlacklistFilter) Name() string {
	return "blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	for _, id := range f.ItemIDs {
		if item.ID == id {
			return true, nil
		}
	}

	if f.Store != nil && f.Key != "" {
		raw, err := f.Store.Get(ctx, f.Key)
		if err != nil {
			if core.IsStoreNotFound(err) {
				return false, nil
			}
			return false, err
		}
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return false, err
		}
		for _, id := range ids {
			if item.ID == id {
				return true, nil
			}
		}
	}

	return false, nil
}
