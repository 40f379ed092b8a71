package similarity

import (
	"math"

	"github.com/foodiecorner/cookrec/core"
)

// Cosine 是二值向量上的余弦相似度：
//
//	|A ∩ B| / sqrt(|A| * |B|)
//
// 权重恒为 1 时点积退化为交集大小，无需逐维乘加。
// 分母先乘后开方：sqrt(x)*sqrt(x) 的浮点误差会把完全重合的
// 向量推出 1.0，单次 sqrt 保证同尺寸全重合严格等于 1。
type Cosine struct{}

func (Cosine) Name() string { return MetricCosine }

func (Cosine) Score(a, b core.PreferenceVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := intersection(a, b)
	if inter == 0 {
		return 0
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
