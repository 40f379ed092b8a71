package similarity

import "github.com/foodiecorner/cookrec/core"

// Jaccard 是集合相似度：
//
//	|A ∩ B| / |A ∪ B|
//
// 其中 |A ∪ B| = |A| + |B| - |A ∩ B|。
type Jaccard struct{}

func (Jaccard) Name() string { return MetricJaccard }

func (Jaccard) Score(a, b core.PreferenceVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := intersection(a, b)
	if inter == 0 {
		return 0
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
