package recommender

import (
	"context"
	"testing"

	"github.com/foodiecorner/cookrec/cache"
	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/recall"
	"github.com/foodiecorner/cookrec/store"
)

// newFixture 构建一套基于内存存储的完整推荐服务。
func newFixture(t *testing.T) (*Recommender, *store.InteractionAdapter, *store.Catalog) {
	t.Helper()

	mem := store.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })

	interactions := store.NewInteractionAdapter(mem, "inter")
	catalog := store.NewCatalog(mem, "cat")

	hot := &recall.Hot{
		Interactions: interactions,
		Catalog:      catalog,
		Store:        mem,
		Key:          interactions.LikesKey(),
	}
	rec := &Recommender{
		Interactions: interactions,
		Catalog:      catalog,
		Source:       &recall.UserCF{Store: interactions},
		Hot:          hot,
		Cache:        &cache.ResultCache{Store: mem},
	}
	return rec, interactions, catalog
}

func like(t *testing.T, s *store.InteractionAdapter, userID string, itemIDs ...string) {
	t.Helper()
	for _, id := range itemIDs {
		if err := s.Put(context.Background(), core.Interaction{UserID: userID, ItemID: id, State: core.StatePositive}); err != nil {
			t.Fatalf("Put like(%s, %s): %v", userID, id, err)
		}
	}
}

func dislike(t *testing.T, s *store.InteractionAdapter, userID string, itemIDs ...string) {
	t.Helper()
	for _, id := range itemIDs {
		if err := s.Put(context.Background(), core.Interaction{UserID: userID, ItemID: id, State: core.StateNegative}); err != nil {
			t.Fatalf("Put dislike(%s, %s): %v", userID, id, err)
		}
	}
}

func seedCatalog(t *testing.T, c *store.Catalog, itemIDs ...string) {
	t.Helper()
	for _, id := range itemIDs {
		meta := map[string]any{"title": "recipe " + id}
		if err := c.PutItem(context.Background(), id, meta, 0); err != nil {
			t.Fatalf("PutItem(%s): %v", id, err)
		}
	}
}

func itemIDs(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestRecommendFromSimilarUser(t *testing.T) {
	rec, interactions, catalog := newFixture(t)
	seedCatalog(t, catalog, "r1", "r2", "r3")

	// u2 与 u1 共享 r1/r2，u2 额外点赞的 r3 应被推荐给 u1
	like(t, interactions, "u1", "r1", "r2")
	like(t, interactions, "u2", "r1", "r2", "r3")

	got, err := rec.Recommend(context.Background(), "u1", 1)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r3" {
		t.Fatalf("expected [r3], got %v", itemIDs(got))
	}
	if got[0].Meta["title"] != "recipe r3" {
		t.Fatalf("expected hydrated meta, got %v", got[0].Meta)
	}
}

func TestRecommendExcludesInteracted(t *testing.T) {
	rec, interactions, catalog := newFixture(t)
	seedCatalog(t, catalog, "r1", "r2", "r3", "r4")

	// u1 点过踩的 r4 不允许再出现，即使邻居点赞了它
	like(t, interactions, "u1", "r1", "r2")
	dislike(t, interactions, "u1", "r4")
	like(t, interactions, "u2", "r1", "r2", "r3", "r4")

	got, err := rec.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for _, it := range got {
		if it.ID == "r1" || it.ID == "r2" || it.ID == "r4" {
			t.Fatalf("interacted item %s leaked into %v", it.ID, itemIDs(got))
		}
	}
}

func TestRecommendColdStartFallsBackToPopular(t *testing.T) {
	rec, interactions, catalog := newFixture(t)
	seedCatalog(t, catalog, "r1", "r2", "r3")

	// r2 两票、r1 一票；无历史用户按热门兜底
	like(t, interactions, "u1", "r1", "r2")
	like(t, interactions, "u2", "r2")

	got, err := rec.Recommend(context.Background(), "newcomer", 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	want := []string{"r2", "r1"}
	ids := itemIDs(got)
	if len(ids) != 2 || ids[0] != want[0] || ids[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, ids)
	}
}

func TestRecommendDislikeOnlyUserStillExcluded(t *testing.T) {
	rec, interactions, catalog := newFixture(t)
	seedCatalog(t, catalog, "r1", "r2")

	// 只有点踩历史的用户走热门兜底，但点踩的物品依然被排除
	like(t, interactions, "u1", "r1", "r2")
	dislike(t, interactions, "u3", "r1")

	got, err := rec.Recommend(context.Background(), "u3", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	ids := itemIDs(got)
	if len(ids) != 1 || ids[0] != "r2" {
		t.Fatalf("expected [r2], got %v", ids)
	}
}

func TestRecommendEmptySystem(t *testing.T) {
	rec, _, _ := newFixture(t)

	got, err := rec.Recommend(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", itemIDs(got))
	}
}

func TestRecommendPopularPadding(t *testing.T) {
	rec, interactions, catalog := newFixture(t)
	seedCatalog(t, catalog, "r1", "r2", "r3", "r4")

	// 个性化只能给出 r3，r4 由热门补位；r1/r2 已交互不补
	like(t, interactions, "u1", "r1", "r2")
	like(t, interactions, "u2", "r1", "r2", "r3")
	like(t, interactions, "u4", "r4")

	got, err := rec.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	ids := itemIDs(got)
	if len(ids) != 2 || ids[0] != "r3" || ids[1] != "r4" {
		t.Fatalf("expected [r3 r4], got %v", ids)
	}
}

func TestRecommendNeighborFullyOverlappedFallsBack(t *testing.T) {
	rec, interactions, catalog := newFixture(t)
	seedCatalog(t, catalog, "r10", "r50", "r60")

	// u2 与 u1 完全重合（只点赞过 r10），相似度为 1 但投不出
	// 任何新物品；结果应整体来自热门兜底，r50 两票排在 r60 前
	like(t, interactions, "u1", "r10")
	like(t, interactions, "u2", "r10")
	like(t, interactions, "u3", "r50")
	like(t, interactions, "u4", "r50")
	like(t, interactions, "u5", "r60")

	got, err := rec.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	ids := itemIDs(got)
	if len(ids) != 2 || ids[0] != "r50" || ids[1] != "r60" {
		t.Fatalf("expected [r50 r60], got %v", ids)
	}
}

func TestRecommendLimitAbovePoolSize(t *testing.T) {
	rec, interactions, catalog := newFixture(t)
	rec.PoolSize = 2
	seedCatalog(t, catalog, "r1", "r2", "r3", "r4")

	// 票数 r1=4 > r2=3 > r3=2 > r4=1
	like(t, interactions, "ua", "r1", "r2", "r3", "r4")
	like(t, interactions, "ub", "r1", "r2", "r3")
	like(t, interactions, "uc", "r1", "r2")
	like(t, interactions, "ud", "r1")

	// 先用常规 limit 请求，把大小为 2 的候选池写进缓存
	warm, err := rec.Recommend(context.Background(), "newcomer", 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(warm) != 2 {
		t.Fatalf("expected 2 items, got %v", itemIDs(warm))
	}

	// limit 超过池大小时不被缓存的池截断，候选充足就拿满 limit
	got, err := rec.Recommend(context.Background(), "newcomer", 4)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	want := []string{"r1", "r2", "r3", "r4"}
	ids := itemIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestRecommendDeterministic(t *testing.T) {
	rec, interactions, catalog := newFixture(t)
	rec.Cache = nil // 排除缓存影响，验证计算本身可复现
	seedCatalog(t, catalog, "r1", "r2", "r3", "r4", "r5")

	like(t, interactions, "u1", "r1")
	like(t, interactions, "u2", "r1", "r2", "r3")
	like(t, interactions, "u3", "r1", "r4", "r5")

	first, err := rec.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := rec.Recommend(context.Background(), "u1", 10)
		if err != nil {
			t.Fatalf("Recommend: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: length changed: %v vs %v", i, itemIDs(first), itemIDs(again))
		}
		for j := range again {
			if again[j].ID != first[j].ID {
				t.Fatalf("run %d: order changed: %v vs %v", i, itemIDs(first), itemIDs(again))
			}
		}
	}
}

func TestRecommendInvalidInput(t *testing.T) {
	rec, _, _ := newFixture(t)

	if _, err := rec.Recommend(context.Background(), "", 5); !core.IsInvalidInput(err) {
		t.Fatalf("expected INVALID_INPUT for empty user, got %v", err)
	}
	if _, err := rec.Recommend(context.Background(), "u1", 0); !core.IsInvalidInput(err) {
		t.Fatalf("expected INVALID_INPUT for zero limit, got %v", err)
	}
	if _, err := rec.Recommend(context.Background(), "u1", -3); !core.IsInvalidInput(err) {
		t.Fatalf("expected INVALID_INPUT for negative limit, got %v", err)
	}
}

func TestRecommendCacheServesStaleWithinTTL(t *testing.T) {
	rec, interactions, catalog := newFixture(t)
	seedCatalog(t, catalog, "r1", "r2", "r3")

	like(t, interactions, "u1", "r1")
	like(t, interactions, "u2", "r1", "r2")

	first, err := rec.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	// TTL 窗口内新交互不触发失效，结果保持不变
	like(t, interactions, "u2", "r3")

	second, err := rec.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("expected cached result %v, got %v", itemIDs(first), itemIDs(second))
	}
	for i := range second {
		if second[i].ID != first[i].ID {
			t.Fatalf("expected cached result %v, got %v", itemIDs(first), itemIDs(second))
		}
	}

	// 失效后重新计算，r3 出现
	if err := rec.Cache.Invalidate(context.Background(), "u1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	third, err := rec.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	found := false
	for _, it := range third {
		if it.ID == "r3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected r3 after invalidation, got %v", itemIDs(third))
	}
}

type failingInteractionStore struct{}

func (failingInteractionStore) Name() string { return "failing" }
func (failingInteractionStore) GetUserInteractions(context.Context, string) ([]core.Interaction, error) {
	return nil, core.ErrInteractionUnavailable
}
func (failingInteractionStore) GetUsersForItems(context.Context, []string, string) ([]core.Interaction, error) {
	return nil, core.ErrInteractionUnavailable
}
func (failingInteractionStore) GetPositiveVectors(context.Context, []string) (map[string]core.PreferenceVector, error) {
	return nil, core.ErrInteractionUnavailable
}
func (failingInteractionStore) GetPositiveCounts(context.Context) (map[string]int64, error) {
	return nil, core.ErrInteractionUnavailable
}

func TestRecommendStoreFailurePropagates(t *testing.T) {
	failing := failingInteractionStore{}
	rec := &Recommender{
		Interactions: failing,
		Source:       &recall.UserCF{Store: failing},
		Hot:          &recall.Hot{Interactions: failing},
	}

	_, err := rec.Recommend(context.Background(), "u1", 5)
	if err == nil {
		t.Fatal("expected store failure to propagate")
	}
	if !core.IsUnavailable(err) {
		t.Fatalf("expected UNAVAILABLE, got %v", err)
	}
}
