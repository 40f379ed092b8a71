package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/foodiecorner/cookrec/core"
)

// InteractionAdapter 是基于 core.Store 的交互数据存储，
// 实现 core.InteractionStore 接口。底层可落 MemoryStore 或 RedisStore。
//
// key 布局（{p} = KeyPrefix）：
//
//	{p}:user:{userID}  -> JSON map[itemID]state     用户全量交互（含点踩）
//	{p}:item:{itemID}  -> JSON []userID             正向倒排索引
//	{p}:counts         -> JSON map[itemID]count     全局点赞计数
//	{p}:likes          -> zset member=itemID        同一计数的有序集合（仅 KV 后端，热门快路径）
//
// 写路径（Put/Delete）对每个 (user, item) 保证 upsert 语义：
// 新交互覆盖旧状态，从不累积重复记录。
type InteractionAdapter struct {
	store core.Store

	// KeyPrefix 是存储 key 的前缀，默认 "inter"。
	KeyPrefix string

	// mu 串行化读-改-写，保证进程内 Put/Delete 的索引一致性。
	mu sync.Mutex
}

// NewInteractionAdapter 创建一个基于 core.Store 的交互存储。
func NewInteractionAdapter(s core.Store, keyPrefix string) *InteractionAdapter {
	if keyPrefix == "" {
		keyPrefix = "inter"
	}
	return &InteractionAdapter{store: s, KeyPrefix: keyPrefix}
}

func (a *InteractionAdapter) Name() string { return "interaction_adapter" }

func (a *InteractionAdapter) userKey(userID string) string { return a.KeyPrefix + ":user:" + userID }
func (a *InteractionAdapter) itemKey(itemID string) string { return a.KeyPrefix + ":item:" + itemID }
func (a *InteractionAdapter) countsKey() string            { return a.KeyPrefix + ":counts" }

// LikesKey 返回点赞计数 zset 的 key，可直接配给 recall.Hot 作快路径。
func (a *InteractionAdapter) LikesKey() string { return a.KeyPrefix + ":likes" }

// Put 写入一条交互（upsert）。同一 (user, item) 的旧状态被覆盖，
// 倒排索引与点赞计数随状态迁移同步更新。
func (a *InteractionAdapter) Put(ctx context.Context, in core.Interaction) error {
	if in.UserID == "" || in.ItemID == "" {
		return core.NewDomainError(core.ModuleInteraction, core.ErrorCodeInvalidInput, "interaction: empty user or item id")
	}
	if !in.State.Valid() {
		return core.NewDomainError(core.ModuleInteraction, core.ErrorCodeInvalidInput,
			fmt.Sprintf("interaction: invalid state %q", in.State))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	states, err := a.readUser(ctx, in.UserID)
	if err != nil {
		return err
	}

	old, existed := states[in.ItemID]
	if existed && old == in.State {
		return nil // 状态未变，幂等
	}
	states[in.ItemID] = in.State
	if err := a.writeUser(ctx, in.UserID, states); err != nil {
		return err
	}

	wasLiked := existed && old == core.StatePositive
	nowLiked := in.State == core.StatePositive
	switch {
	case nowLiked && !wasLiked:
		if err := a.indexAdd(ctx, in.ItemID, in.UserID); err != nil {
			return err
		}
		return a.countAdd(ctx, in.ItemID, 1)
	case !nowLiked && wasLiked:
		if err := a.indexRemove(ctx, in.ItemID, in.UserID); err != nil {
			return err
		}
		return a.countAdd(ctx, in.ItemID, -1)
	}
	return nil
}

// Delete 删除用户对某个物品的交互（用户撤回偏好，或级联删除）。
// 不存在的交互是 no-op。
func (a *InteractionAdapter) Delete(ctx context.Context, userID, itemID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	states, err := a.readUser(ctx, userID)
	if err != nil {
		return err
	}
	old, existed := states[itemID]
	if !existed {
		return nil
	}
	delete(states, itemID)
	if err := a.writeUser(ctx, userID, states); err != nil {
		return err
	}

	if old == core.StatePositive {
		if err := a.indexRemove(ctx, itemID, userID); err != nil {
			return err
		}
		return a.countAdd(ctx, itemID, -1)
	}
	return nil
}

func (a *InteractionAdapter) GetUserInteractions(ctx context.Context, userID string) ([]core.Interaction, error) {
	states, err := a.readUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, nil
	}

	itemIDs := make([]string, 0, len(states))
	for itemID := range states {
		itemIDs = append(itemIDs, itemID)
	}
	sort.Strings(itemIDs) // 稳定输出顺序

	out := make([]core.Interaction, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		out = append(out, core.Interaction{UserID: userID, ItemID: itemID, State: states[itemID]})
	}
	return out, nil
}

func (a *InteractionAdapter) GetUsersForItems(ctx context.Context, itemIDs []string, excludeUserID string) ([]core.Interaction, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(itemIDs))
	keyToItem := make(map[string]string, len(itemIDs))
	for _, itemID := range itemIDs {
		k := a.itemKey(itemID)
		keys = append(keys, k)
		keyToItem[k] = itemID
	}

	raws, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	var out []core.Interaction
	for _, k := range keys { // 按请求顺序遍历，保证确定性
		raw, ok := raws[k]
		if !ok {
			continue
		}
		var userIDs []string
		if err := json.Unmarshal(raw, &userIDs); err != nil {
			return nil, fmt.Errorf("decode item index %s: %w", k, err)
		}
		for _, uid := range userIDs {
			if uid == excludeUserID {
				continue
			}
			out = append(out, core.Interaction{UserID: uid, ItemID: keyToItem[k], State: core.StatePositive})
		}
	}
	return out, nil
}

func (a *InteractionAdapter) GetPositiveVectors(ctx context.Context, userIDs []string) (map[string]core.PreferenceVector, error) {
	if len(userIDs) == 0 {
		return map[string]core.PreferenceVector{}, nil
	}

	keys := make([]string, 0, len(userIDs))
	keyToUser := make(map[string]string, len(userIDs))
	for _, uid := range userIDs {
		k := a.userKey(uid)
		keys = append(keys, k)
		keyToUser[k] = uid
	}

	raws, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[string]core.PreferenceVector, len(raws))
	for k, raw := range raws {
		var states map[string]core.State
		if err := json.Unmarshal(raw, &states); err != nil {
			return nil, fmt.Errorf("decode user interactions %s: %w", k, err)
		}
		vector := make(core.PreferenceVector)
		for itemID, st := range states {
			if st == core.StatePositive {
				vector[itemID] = core.PreferenceWeight
			}
		}
		if len(vector) > 0 {
			out[keyToUser[k]] = vector
		}
	}
	return out, nil
}

func (a *InteractionAdapter) GetPositiveCounts(ctx context.Context) (map[string]int64, error) {
	raw, err := a.store.Get(ctx, a.countsKey())
	if err != nil {
		if core.IsStoreNotFound(err) {
			return map[string]int64{}, nil
		}
		return nil, err
	}
	var counts map[string]int64
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}
	return counts, nil
}

func (a *InteractionAdapter) readUser(ctx context.Context, userID string) (map[string]core.State, error) {
	raw, err := a.store.Get(ctx, a.userKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return map[string]core.State{}, nil
		}
		return nil, err
	}
	var states map[string]core.State
	if err := json.Unmarshal(raw, &states); err != nil {
		return nil, fmt.Errorf("decode user interactions: %w", err)
	}
	return states, nil
}

func (a *InteractionAdapter) writeUser(ctx context.Context, userID string, states map[string]core.State) error {
	if len(states) == 0 {
		return a.store.Delete(ctx, a.userKey(userID))
	}
	raw, err := json.Marshal(states)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.userKey(userID), raw)
}

func (a *InteractionAdapter) indexAdd(ctx context.Context, itemID, userID string) error {
	userIDs, err := a.readIndex(ctx, itemID)
	if err != nil {
		return err
	}
	for _, uid := range userIDs {
		if uid == userID {
			return nil
		}
	}
	userIDs = append(userIDs, userID)
	sort.Strings(userIDs)
	return a.writeIndex(ctx, itemID, userIDs)
}

func (a *InteractionAdapter) indexRemove(ctx context.Context, itemID, userID string) error {
	userIDs, err := a.readIndex(ctx, itemID)
	if err != nil {
		return err
	}
	kept := userIDs[:0]
	for _, uid := range userIDs {
		if uid != userID {
			kept = append(kept, uid)
		}
	}
	return a.writeIndex(ctx, itemID, kept)
}

func (a *InteractionAdapter) readIndex(ctx context.Context, itemID string) ([]string, error) {
	raw, err := a.store.Get(ctx, a.itemKey(itemID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var userIDs []string
	if err := json.Unmarshal(raw, &userIDs); err != nil {
		return nil, fmt.Errorf("decode item index: %w", err)
	}
	return userIDs, nil
}

func (a *InteractionAdapter) writeIndex(ctx context.Context, itemID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return a.store.Delete(ctx, a.itemKey(itemID))
	}
	raw, err := json.Marshal(userIDs)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.itemKey(itemID), raw)
}

func (a *InteractionAdapter) countAdd(ctx context.Context, itemID string, delta int64) error {
	counts, err := a.GetPositiveCounts(ctx)
	if err != nil {
		return err
	}
	next := counts[itemID] + delta
	if next <= 0 {
		delete(counts, itemID)
	} else {
		counts[itemID] = next
	}
	raw, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, a.countsKey(), raw); err != nil {
		return err
	}

	// KV 后端时同步维护 zset，供热门召回走 ZRange 快路径
	if kv, ok := a.store.(core.KeyValueStore); ok {
		if _, err := kv.ZIncrBy(ctx, a.LikesKey(), float64(delta), itemID); err != nil &&
			!core.IsStoreNotSupported(err) {
			return err
		}
	}
	return nil
}

var _ core.InteractionStore = (*InteractionAdapter)(nil)
