package feature

import (
	"context"
	"sync"

	"github.com/foodiecorner/cookrec/core"
)

// MemoryProvider 是内存特征提供者，用于测试和原型。
type MemoryProvider struct {
	mu       sync.RWMutex
	features map[string]map[string]float64
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		features: make(map[string]map[string]float64),
	}
}

func (p *MemoryProvider) Name() string { return "feature.memory" }

// SetItemFeatures 写入单个物品的特征（覆盖）。
func (p *MemoryProvider) SetItemFeatures(itemID string, features map[string]float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make(map[string]float64, len(features))
	for k, v := range features {
		cp[k] = v
	}
	p.features[itemID] = cp
}

func (p *MemoryProvider) GetItemFeatures(_ context.Context, itemID string) (map[string]float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	features, ok := p.features[itemID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotFound, "feature: item not found: "+itemID)
	}
	cp := make(map[string]float64, len(features))
	for k, v := range features {
		cp[k] = v
	}
	return cp, nil
}

func (p *MemoryProvider) BatchGetItemFeatures(ctx context.Context, itemIDs []string) (map[string]map[string]float64, error) {
	out := make(map[string]map[string]float64, len(itemIDs))
	for _, id := range itemIDs {
		features, err := p.GetItemFeatures(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out[id] = features
	}
	return out, nil
}

func (p *MemoryProvider) Close() error { return nil }

var _ core.FeatureProvider = (*MemoryProvider)(nil)
