// Package cache 提供推荐结果的 TTL 缓存。
//
// 缓存内容是物品 ID 列表（hydration 之前），按用户维度隔离。
// 只靠 TTL 过期，新交互写入不做主动失效——ttl 窗口内的陈旧结果
// 是刻意接受的权衡（交互写路径完全不感知推荐链路）。
package cache

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/foodiecorner/cookrec/core"
)

// DefaultTTL 是推荐结果的默认缓存时长。
const DefaultTTL = time.Hour

// Key 是类型化的缓存 key（不在调用点拼字符串，版本号变更可整体失效）。
type Key struct {
	UserID  string
	Version string
}

// String 返回存储层使用的 key 文本。
func (k Key) String() string {
	v := k.Version
	if v == "" {
		v = "v1"
	}
	return "rec:" + v + ":" + k.UserID
}

// ResultCache 按用户缓存推荐 ID 列表。
//
// 并发语义：
//   - 不同用户的条目完全独立，底层 Store 承担并发读写
//   - 同一 key 的冷缓存并发请求通过 singleflight 合并为一次计算
//     （按 key 粒度，不是全局锁）
//
// Store 读失败不会让请求失败：缓存只是优化，回落到直接计算；
// 计算本身的失败原样向上传播，且从不写入缓存。
type ResultCache struct {
	Store core.Store

	// TTL 缓存时长，<= 0 时取 DefaultTTL。
	TTL time.Duration

	// Version 缓存 key 版本号，默认 "v1"。
	Version string

	group singleflight.Group
}

// ComputeFunc 计算某个用户的推荐 ID 列表。
type ComputeFunc func(ctx context.Context) ([]string, error)

// GetOrCompute 返回缓存内的结果；未命中或已过期时执行 compute，
// 写入缓存并返回新结果。
func (c *ResultCache) GetOrCompute(ctx context.Context, userID string, compute ComputeFunc) ([]string, bool, error) {
	key := Key{UserID: userID, Version: c.Version}.String()

	if c.Store != nil {
		raw, err := c.Store.Get(ctx, key)
		if err == nil {
			var ids []string
			if json.Unmarshal(raw, &ids) == nil {
				return ids, true, nil
			}
			// 载荷损坏按未命中处理，重算覆盖
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		ids, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if c.Store != nil {
			if raw, err := json.Marshal(ids); err == nil {
				ttl := c.TTL
				if ttl <= 0 {
					ttl = DefaultTTL
				}
				// 写失败只影响下次命中率，不影响本次结果
				_ = c.Store.Set(ctx, key, raw, int(ttl/time.Second))
			}
		}
		return ids, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]string), false, nil
}

// Invalidate 删除某个用户的缓存条目（运维/测试用，主链路不调用）。
func (c *ResultCache) Invalidate(ctx context.Context, userID string) error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Delete(ctx, Key{UserID: userID, Version: c.Version}.String())
}
