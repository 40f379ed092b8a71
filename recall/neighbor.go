package recall

import (
	"sort"

	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/similarity"
)

// Neighbor 是一个与目标用户相似度严格为正的候选用户。
type Neighbor struct {
	UserID string
	Score  float64
}

// DefaultNeighborK 是默认的近邻数量。
const DefaultNeighborK = 5

// NeighborSelector 从候选向量中选出 TopK 近邻。
//
// 规则：
//   - 相似度 <= 0 的候选直接丢弃（零相似度邻居不贡献任何投票，留着只浪费计算）
//   - 按相似度降序排序；同分时按用户 ID 升序，保证结果可复现
//   - 正相似度候选不足 K 个时全部返回，不做填充；空结果是合法输出
type NeighborSelector struct {
	Metric similarity.Metric

	// TopK 返回的近邻数量，<= 0 时使用 DefaultNeighborK。
	TopK int
}

// Select 计算目标向量与每个候选的相似度并返回 TopK 近邻。
func (s *NeighborSelector) Select(target core.PreferenceVector, candidates map[string]core.PreferenceVector) []Neighbor {
	if len(target) == 0 || len(candidates) == 0 {
		return nil
	}

	topK := s.TopK
	if topK <= 0 {
		topK = DefaultNeighborK
	}

	neighbors := make([]Neighbor, 0, len(candidates))
	for userID, vector := range candidates {
		sim := s.Metric.Score(target, vector)
		if sim <= 0 {
			continue
		}
		neighbors = append(neighbors, Neighbor{UserID: userID, Score: sim})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Score != neighbors[j].Score {
			return neighbors[i].Score > neighbors[j].Score
		}
		return neighbors[i].UserID < neighbors[j].UserID
	})

	if len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}
	return neighbors
}
