package feature

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/foodiecorner/cookrec/core"
)

// FeastProvider 是基于官方 Feast Go SDK 的特征提供者实现。
//
// 从 Feast Feature Server 在线拉取物品维度的数值特征
// （如 recipe_stats:view_count、recipe_stats:like_count），
// 用于 hydration 后的结果增强。
//
// 设计原则：
//   - 领域层：core.FeatureProvider 接口
//   - 基础设施层：FeastProvider 实现接口，可被 MemoryProvider 替换
type FeastProvider struct {
	client *feastsdk.GrpcClient

	// Project 项目名称
	Project string

	// Features 要拉取的特征列表，格式 "feature_view:feature"
	Features []string

	// EntityName 实体列名称，默认 "recipe_id"
	EntityName string
}

// NewFeastProvider 创建一个 Feast 特征提供者。
// port 为 0 时使用默认 gRPC 端口 6565。
func NewFeastProvider(host string, port int, project string, features []string) (*FeastProvider, error) {
	if port == 0 {
		port = 6565
	}

	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}

	return &FeastProvider{
		client:   client,
		Project:  project,
		Features: features,
	}, nil
}

func (p *FeastProvider) Name() string { return "feature.feast" }

func (p *FeastProvider) entityName() string {
	if p.EntityName != "" {
		return p.EntityName
	}
	return "recipe_id"
}

func (p *FeastProvider) GetItemFeatures(ctx context.Context, itemID string) (map[string]float64, error) {
	batch, err := p.BatchGetItemFeatures(ctx, []string{itemID})
	if err != nil {
		return nil, err
	}
	features, ok := batch[itemID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotFound, "feature: item not found: "+itemID)
	}
	return features, nil
}

func (p *FeastProvider) BatchGetItemFeatures(ctx context.Context, itemIDs []string) (map[string]map[string]float64, error) {
	if p.client == nil {
		return nil, core.ErrFeatureUnavailable
	}
	if len(itemIDs) == 0 || len(p.Features) == 0 {
		return map[string]map[string]float64{}, nil
	}

	entity := p.entityName()
	rows := make([]feastsdk.Row, len(itemIDs))
	for i, id := range itemIDs {
		rows[i] = feastsdk.Row{entity: feastsdk.StrVal(id)}
	}

	resp, err := p.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: p.Features,
		Entities: rows,
		Project:  p.Project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	respRows := resp.Rows()
	if len(respRows) != len(itemIDs) {
		return nil, fmt.Errorf("feast response row count mismatch: expected %d, got %d", len(itemIDs), len(respRows))
	}

	out := make(map[string]map[string]float64, len(itemIDs))
	for i, row := range respRows {
		features := make(map[string]float64, len(p.Features))
		for _, name := range p.Features {
			val, ok := row[name]
			if !ok {
				continue
			}
			if f, ok := numericValue(val); ok {
				features[name] = f
			}
		}
		if len(features) > 0 {
			out[itemIDs[i]] = features
		}
	}
	return out, nil
}

func (p *FeastProvider) Close() error {
	p.client = nil
	return nil
}

// numericValue 从 Feast 的 protobuf Value 中提取数值特征。
// 非数值类型（字符串、字节串等）被跳过。
func numericValue(val *feasttypes.Value) (float64, bool) {
	if val == nil {
		return 0, false
	}
	switch v := val.Val.(type) {
	case *feasttypes.Value_Int32Val:
		return float64(v.Int32Val), true
	case *feasttypes.Value_Int64Val:
		return float64(v.Int64Val), true
	case *feasttypes.Value_FloatVal:
		return float64(v.FloatVal), true
	case *feasttypes.Value_DoubleVal:
		return v.DoubleVal, true
	case *feasttypes.Value_BoolVal:
		if v.BoolVal {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

var _ core.FeatureProvider = (*FeastProvider)(nil)
