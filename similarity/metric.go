// Package similarity 提供用户偏好向量之间的相似度度量。
//
// 所有度量都作用在二值偏好向量上（core.PreferenceVector，权重恒为 1），
// 并满足统一契约：
//   - 值域 [0, 1]
//   - 对称：Score(a, b) == Score(b, a)
//   - 任一向量为空时严格等于 0（不是 NaN，不是未定义——除零必须特判）
//   - 确定性：相同输入永远得到相同分数
package similarity

import (
	"fmt"

	"github.com/foodiecorner/cookrec/core"
)

// Metric 是相似度策略接口。cosine 与 jaccard 可互换，
// 由配置选择其一作为生效实现，两者共用同一套契约测试。
type Metric interface {
	// Name 返回度量名称（用于日志/标签/配置）
	Name() string

	// Score 计算两个偏好向量的相似度，返回 [0, 1]。
	Score(a, b core.PreferenceVector) float64
}

// 可用度量名称
const (
	MetricCosine  = "cosine"
	MetricJaccard = "jaccard"
)

// DefaultMetric 是默认度量。线上主链路沿用 Jaccard。
const DefaultMetric = MetricJaccard

// New 按名称创建度量；空名称返回默认度量，未知名称返回错误。
func New(name string) (Metric, error) {
	switch name {
	case "", DefaultMetric:
		return Jaccard{}, nil
	case MetricCosine:
		return Cosine{}, nil
	default:
		return nil, fmt.Errorf("similarity: unknown metric %q (supported: %s, %s)", name, MetricCosine, MetricJaccard)
	}
}

// intersection 返回两个二值向量的交集大小。
// 遍历较小的向量，复杂度 O(min(|a|, |b|))。
func intersection(a, b core.PreferenceVector) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for id := range a {
		if _, ok := b[id]; ok {
			n++
		}
	}
	return n
}
