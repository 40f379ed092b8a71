package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/store"
)

// recordingStore 包装 MemoryStore 并记录 Set 收到的 ttl。
type recordingStore struct {
	*store.MemoryStore
	mu      sync.Mutex
	lastTTL int
	sets    int
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	s.mu.Lock()
	if len(ttl) > 0 {
		s.lastTTL = ttl[0]
	}
	s.sets++
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, key, value, ttl...)
}

func newRecordingStore(t *testing.T) *recordingStore {
	t.Helper()
	mem := store.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	return &recordingStore{MemoryStore: mem}
}

func TestGetOrComputeMissThenHit(t *testing.T) {
	rs := newRecordingStore(t)
	c := &ResultCache{Store: rs}

	computes := 0
	compute := func(context.Context) ([]string, error) {
		computes++
		return []string{"r1", "r2"}, nil
	}

	ids, hit, err := c.GetOrCompute(context.Background(), "u1", compute)
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if hit || computes != 1 {
		t.Fatalf("expected miss + 1 compute, hit=%v computes=%d", hit, computes)
	}
	if len(ids) != 2 || ids[0] != "r1" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	ids, hit, err = c.GetOrCompute(context.Background(), "u1", compute)
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if !hit || computes != 1 {
		t.Fatalf("expected hit without recompute, hit=%v computes=%d", hit, computes)
	}
	if len(ids) != 2 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestGetOrComputePassesTTLToStore(t *testing.T) {
	rs := newRecordingStore(t)
	c := &ResultCache{Store: rs, TTL: 2 * time.Minute}

	_, _, err := c.GetOrCompute(context.Background(), "u1", func(context.Context) ([]string, error) {
		return []string{"r1"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if rs.lastTTL != 120 {
		t.Fatalf("expected ttl 120s, got %d", rs.lastTTL)
	}
}

func TestGetOrComputeDefaultTTL(t *testing.T) {
	rs := newRecordingStore(t)
	c := &ResultCache{Store: rs}

	_, _, err := c.GetOrCompute(context.Background(), "u1", func(context.Context) ([]string, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if rs.lastTTL != int(DefaultTTL/time.Second) {
		t.Fatalf("expected default ttl %d, got %d", int(DefaultTTL/time.Second), rs.lastTTL)
	}
}

func TestComputeErrorNeverCached(t *testing.T) {
	rs := newRecordingStore(t)
	c := &ResultCache{Store: rs}

	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "u1", func(context.Context) ([]string, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if rs.sets != 0 {
		t.Fatalf("error result must not be cached, sets=%d", rs.sets)
	}

	// 错误之后的下一次请求重新计算并成功
	ids, hit, err := c.GetOrCompute(context.Background(), "u1", func(context.Context) ([]string, error) {
		return []string{"r1"}, nil
	})
	if err != nil || hit || len(ids) != 1 {
		t.Fatalf("expected fresh compute after error, ids=%v hit=%v err=%v", ids, hit, err)
	}
}

func TestSingleflightCollapsesConcurrentComputes(t *testing.T) {
	rs := newRecordingStore(t)
	c := &ResultCache{Store: rs}

	var computes atomic.Int32
	gate := make(chan struct{})
	compute := func(context.Context) ([]string, error) {
		computes.Add(1)
		<-gate
		return []string{"r1"}, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([][]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids, _, err := c.GetOrCompute(context.Background(), "u1", compute)
			if err != nil {
				t.Errorf("GetOrCompute: %v", err)
				return
			}
			results[i] = ids
		}(i)
	}

	// 等并发请求挂到同一个 singleflight key 上再放行
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := computes.Load(); got != 1 {
		t.Fatalf("expected 1 collapsed compute, got %d", got)
	}
	for i, ids := range results {
		if len(ids) != 1 || ids[0] != "r1" {
			t.Fatalf("request %d got %v", i, ids)
		}
	}
}

func TestKeyIsolatesUsersAndVersions(t *testing.T) {
	k1 := Key{UserID: "u1"}.String()
	k2 := Key{UserID: "u2"}.String()
	k3 := Key{UserID: "u1", Version: "v2"}.String()

	if k1 == k2 || k1 == k3 {
		t.Fatalf("keys must differ: %s %s %s", k1, k2, k3)
	}
	if k1 != "rec:v1:u1" {
		t.Fatalf("unexpected default key format: %s", k1)
	}
}

func TestCacheStoreReadFailureFallsThrough(t *testing.T) {
	c := &ResultCache{Store: failingKV{}}

	ids, hit, err := c.GetOrCompute(context.Background(), "u1", func(context.Context) ([]string, error) {
		return []string{"r1"}, nil
	})
	if err != nil {
		t.Fatalf("cache failure must not fail the request: %v", err)
	}
	if hit || len(ids) != 1 {
		t.Fatalf("expected computed result, ids=%v hit=%v", ids, hit)
	}
}

type failingKV struct{}

func (failingKV) Name() string { return "failing" }
func (failingKV) Get(context.Context, string) ([]byte, error) {
	return nil, core.ErrStoreNotFound
}
func (failingKV) Set(context.Context, string, []byte, ...int) error {
	return core.ErrStoreNotSupported
}
func (failingKV) Delete(context.Context, string) error { return nil }
func (failingKV) BatchGet(context.Context, []string) (map[string][]byte, error) {
	return nil, core.ErrStoreNotSupported
}
func (failingKV) BatchSet(context.Context, map[string][]byte, ...int) error {
	return core.ErrStoreNotSupported
}
func (failingKV) Close() error { return nil }
