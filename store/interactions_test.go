package store

import (
	"context"
	"testing"

	"github.com/foodiecorner/cookrec/core"
)

func newAdapter(t *testing.T) (*InteractionAdapter, *MemoryStore) {
	t.Helper()
	mem := NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	return NewInteractionAdapter(mem, "inter"), mem
}

func mustPut(t *testing.T, a *InteractionAdapter, userID, itemID string, state core.State) {
	t.Helper()
	if err := a.Put(context.Background(), core.Interaction{UserID: userID, ItemID: itemID, State: state}); err != nil {
		t.Fatalf("Put(%s, %s, %s): %v", userID, itemID, state, err)
	}
}

func TestPutUpsert(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	// like -> dislike 覆盖，不累积记录
	mustPut(t, a, "u1", "r1", core.StatePositive)
	mustPut(t, a, "u1", "r1", core.StateNegative)

	got, err := a.GetUserInteractions(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserInteractions: %v", err)
	}
	if len(got) != 1 || got[0].State != core.StateNegative {
		t.Fatalf("expected single disliked record, got %+v", got)
	}

	// 状态迁移后倒排索引与计数同步
	overlaps, err := a.GetUsersForItems(ctx, []string{"r1"}, "")
	if err != nil {
		t.Fatalf("GetUsersForItems: %v", err)
	}
	if len(overlaps) != 0 {
		t.Fatalf("disliked item should leave the positive index, got %+v", overlaps)
	}
	counts, err := a.GetPositiveCounts(ctx)
	if err != nil {
		t.Fatalf("GetPositiveCounts: %v", err)
	}
	if counts["r1"] != 0 {
		t.Fatalf("expected count 0 after state flip, got %v", counts)
	}
}

func TestPutIdempotent(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	mustPut(t, a, "u1", "r1", core.StatePositive)
	mustPut(t, a, "u1", "r1", core.StatePositive)

	counts, err := a.GetPositiveCounts(ctx)
	if err != nil {
		t.Fatalf("GetPositiveCounts: %v", err)
	}
	if counts["r1"] != 1 {
		t.Fatalf("repeated like must not double count, got %v", counts)
	}
}

func TestPutInvalidInput(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	cases := []core.Interaction{
		{UserID: "", ItemID: "r1", State: core.StatePositive},
		{UserID: "u1", ItemID: "", State: core.StatePositive},
		{UserID: "u1", ItemID: "r1", State: core.State("meh")},
	}
	for _, in := range cases {
		if err := a.Put(ctx, in); !core.IsInvalidInput(err) {
			t.Errorf("Put(%+v): expected INVALID_INPUT, got %v", in, err)
		}
	}
}

func TestDeleteInteraction(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	mustPut(t, a, "u1", "r1", core.StatePositive)
	if err := a.Delete(ctx, "u1", "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := a.GetUserInteractions(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserInteractions: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no interactions, got %+v", got)
	}
	counts, err := a.GetPositiveCounts(ctx)
	if err != nil {
		t.Fatalf("GetPositiveCounts: %v", err)
	}
	if counts["r1"] != 0 {
		t.Fatalf("expected count rollback, got %v", counts)
	}

	// 删除不存在的交互是 no-op
	if err := a.Delete(ctx, "u1", "r1"); err != nil {
		t.Fatalf("Delete twice: %v", err)
	}
}

func TestGetUsersForItemsExcludesRequester(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	mustPut(t, a, "u1", "r1", core.StatePositive)
	mustPut(t, a, "u2", "r1", core.StatePositive)
	mustPut(t, a, "u3", "r2", core.StatePositive)

	overlaps, err := a.GetUsersForItems(ctx, []string{"r1"}, "u1")
	if err != nil {
		t.Fatalf("GetUsersForItems: %v", err)
	}
	if len(overlaps) != 1 || overlaps[0].UserID != "u2" {
		t.Fatalf("expected only u2, got %+v", overlaps)
	}
}

func TestGetPositiveVectors(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	mustPut(t, a, "u1", "r1", core.StatePositive)
	mustPut(t, a, "u1", "r2", core.StateNegative)
	mustPut(t, a, "u2", "r3", core.StateNegative) // 无正向，应被跳过

	vectors, err := a.GetPositiveVectors(ctx, []string{"u1", "u2", "unknown"})
	if err != nil {
		t.Fatalf("GetPositiveVectors: %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected only u1, got %v", vectors)
	}
	if v := vectors["u1"]; len(v) != 1 || v["r1"] != core.PreferenceWeight {
		t.Fatalf("unexpected vector: %v", v)
	}
}

func TestLikesZSetMaintained(t *testing.T) {
	a, mem := newAdapter(t)
	ctx := context.Background()

	mustPut(t, a, "u1", "r1", core.StatePositive)
	mustPut(t, a, "u2", "r1", core.StatePositive)
	mustPut(t, a, "u1", "r2", core.StatePositive)

	members, err := mem.ZRange(ctx, a.LikesKey(), 0, -1)
	if err != nil {
		t.Fatalf("ZRange: %v", err)
	}
	if len(members) != 2 || members[0] != "r1" || members[1] != "r2" {
		t.Fatalf("expected [r1 r2] by like count, got %v", members)
	}
}

func TestCatalogHydrationOrderAndMissing(t *testing.T) {
	mem := NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	c := NewCatalog(mem, "cat")
	ctx := context.Background()

	for _, id := range []string{"r1", "r2"} {
		if err := c.PutItem(ctx, id, map[string]any{"title": id}, 0); err != nil {
			t.Fatalf("PutItem: %v", err)
		}
	}

	items, err := c.GetItemsByIDs(ctx, []string{"r2", "missing", "r1"})
	if err != nil {
		t.Fatalf("GetItemsByIDs: %v", err)
	}
	if len(items) != 2 || items[0].ID != "r2" || items[1].ID != "r1" {
		t.Fatalf("expected order-preserving hydration without missing, got %+v", items)
	}
}

func TestCatalogPopularByViews(t *testing.T) {
	mem := NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	c := NewCatalog(mem, "cat")
	ctx := context.Background()

	for _, id := range []string{"r1", "r2", "r3"} {
		if err := c.PutItem(ctx, id, nil, 0); err != nil {
			t.Fatalf("PutItem: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := c.IncrView(ctx, "r2"); err != nil {
			t.Fatalf("IncrView: %v", err)
		}
	}
	if err := c.IncrView(ctx, "r3"); err != nil {
		t.Fatalf("IncrView: %v", err)
	}

	ids, err := c.GetPopularItems(ctx, map[string]struct{}{"r3": {}}, 10)
	if err != nil {
		t.Fatalf("GetPopularItems: %v", err)
	}
	if len(ids) != 2 || ids[0] != "r2" || ids[1] != "r1" {
		t.Fatalf("expected [r2 r1], got %v", ids)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	mem := NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	ctx := context.Background()

	if err := mem.Set(ctx, "k", []byte("v"), -1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := mem.Get(ctx, "k"); err != nil {
		t.Fatalf("Get without expiry: %v", err)
	}

	if err := mem.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := mem.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Fatalf("expected NOT_FOUND after delete, got %v", err)
	}
}

func TestMemoryStoreOverwriteClearsTTL(t *testing.T) {
	mem := NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	ctx := context.Background()

	// 带 TTL 写入后无 TTL 覆盖，旧的过期记录必须被清掉，
	// 否则后台清理会把存活的新值删掉
	if err := mem.Set(ctx, "k", []byte("old"), 60); err != nil {
		t.Fatalf("Set with ttl: %v", err)
	}
	if err := mem.Set(ctx, "k", []byte("new")); err != nil {
		t.Fatalf("Set without ttl: %v", err)
	}

	mem.mu.RLock()
	_, tracked := mem.ttl["k"]
	mem.mu.RUnlock()
	if tracked {
		t.Fatal("expired-at entry survived a no-ttl overwrite")
	}

	got, err := mem.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "new" {
		t.Fatalf("Get = %q, want %q", got, "new")
	}
}

func TestMemoryStoreBatchSetOverwriteClearsTTL(t *testing.T) {
	mem := NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	ctx := context.Background()

	if err := mem.Set(ctx, "k", []byte("old"), 60); err != nil {
		t.Fatalf("Set with ttl: %v", err)
	}
	if err := mem.BatchSet(ctx, map[string][]byte{"k": []byte("new")}); err != nil {
		t.Fatalf("BatchSet without ttl: %v", err)
	}

	mem.mu.RLock()
	_, tracked := mem.ttl["k"]
	mem.mu.RUnlock()
	if tracked {
		t.Fatal("expired-at entry survived a no-ttl batch overwrite")
	}
}

func TestMemoryStoreCloseIdempotent(t *testing.T) {
	mem := NewMemoryStore()
	if err := mem.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := mem.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
