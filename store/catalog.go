package store

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/foodiecorner/cookrec/core"
)

// Catalog 是基于 core.KeyValueStore 的物品目录，实现 core.ItemCatalog。
// 菜谱元数据放 Hash，浏览量放 zset（次级热门信号）。
//
// key 布局（{p} = KeyPrefix）：
//
//	{p}:items  -> hash field=itemID value=JSON meta
//	{p}:views  -> zset member=itemID score=浏览量
type Catalog struct {
	store core.KeyValueStore

	// KeyPrefix 是存储 key 的前缀，默认 "cat"。
	KeyPrefix string
}

// NewCatalog 创建一个基于 KV 存储的目录。
func NewCatalog(s core.KeyValueStore, keyPrefix string) *Catalog {
	if keyPrefix == "" {
		keyPrefix = "cat"
	}
	return &Catalog{store: s, KeyPrefix: keyPrefix}
}

func (c *Catalog) Name() string { return "store_catalog" }

func (c *Catalog) itemsKey() string { return c.KeyPrefix + ":items" }
func (c *Catalog) viewsKey() string { return c.KeyPrefix + ":views" }

// PutItem 写入/覆盖一个物品的元数据与浏览量。
func (c *Catalog) PutItem(ctx context.Context, itemID string, meta map[string]any, viewCount float64) error {
	if itemID == "" {
		return core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "catalog: empty item id")
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := c.store.HSet(ctx, c.itemsKey(), itemID, raw); err != nil {
		return err
	}
	return c.store.ZAdd(ctx, c.viewsKey(), viewCount, itemID)
}

// IncrView 浏览量 +1。
func (c *Catalog) IncrView(ctx context.Context, itemID string) error {
	_, err := c.store.ZIncrBy(ctx, c.viewsKey(), 1, itemID)
	return err
}

// GetItemsByIDs 按请求顺序 hydrate 物品；不存在的 ID 被跳过。
func (c *Catalog) GetItemsByIDs(ctx context.Context, ids []string) ([]*core.Item, error) {
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		raw, err := c.store.HGet(ctx, c.itemsKey(), id)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		var meta map[string]any
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("decode item meta %s: %w", id, err)
		}
		it := core.NewItem(id)
		it.Meta = meta
		out = append(out, it)
	}
	return out, nil
}

// GetPopularItems 返回按浏览量降序的物品 ID，排除 exclude，最多 limit 个。
func (c *Catalog) GetPopularItems(ctx context.Context, exclude map[string]struct{}, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := c.store.ZRange(ctx, c.viewsKey(), 0, -1)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]string, 0, limit)
	for _, id := range members {
		if _, ok := exclude[id]; ok {
			continue
		}
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ core.ItemCatalog = (*Catalog)(nil)
