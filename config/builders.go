package config

import (
	"fmt"
	"time"

	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/filter"
	"github.com/foodiecorner/cookrec/pipeline"
	"github.com/foodiecorner/cookrec/pkg/conv"
	"github.com/foodiecorner/cookrec/recall"
	"github.com/foodiecorner/cookrec/rerank"
	"github.com/foodiecorner/cookrec/similarity"
)

// Deps 是依赖存储的 Node 构建时需要的基础设施。
type Deps struct {
	Interactions core.InteractionStore
	Catalog      core.ItemCatalog
	Store        core.Store

	// HotKey 是预聚合点赞计数 zset 的 key（可选快路径）。
	HotKey string
}

// RegisterBuiltins 注册全部内置 Node 构建器。
// 纯配置 Node（rerank.topn、rerank.diversity、filter）不使用 deps；
// recall.usercf、recall.hot、filter.interacted 捕获 deps 中的存储。
func RegisterBuiltins(deps Deps) {
	Register("recall.usercf", func(cfg map[string]any) (pipeline.Node, error) {
		metricName := conv.ConfigGet(cfg, "metric", "")
		metric, err := similarity.New(metricName)
		if err != nil {
			return nil, err
		}
		return &recall.UserCF{
			Store:         deps.Interactions,
			Metric:        metric,
			TopKNeighbors: conv.ConfigGetInt(cfg, "neighbors", 0),
			TopKItems:     conv.ConfigGetInt(cfg, "top_k", 0),
		}, nil
	})

	Register("recall.hot", func(cfg map[string]any) (pipeline.Node, error) {
		return &recall.Hot{
			Interactions: deps.Interactions,
			Catalog:      deps.Catalog,
			Store:        deps.Store,
			Key:          deps.HotKey,
			TopK:         conv.ConfigGetInt(cfg, "top_k", 0),
		}, nil
	})

	Register("recall.fanout", func(cfg map[string]any) (pipeline.Node, error) {
		sourcesConfig, ok := cfg["sources"].([]any)
		if !ok {
			return nil, fmt.Errorf("sources not found or invalid")
		}
		sources := make([]recall.Source, 0, len(sourcesConfig))
		for _, sc := range sourcesConfig {
			sourceMap, ok := sc.(map[string]any)
			if !ok {
				continue
			}
			switch sourceType := conv.ConfigGet(sourceMap, "type", ""); sourceType {
			case "usercf":
				metric, err := similarity.New(conv.ConfigGet(sourceMap, "metric", ""))
				if err != nil {
					return nil, err
				}
				sources = append(sources, &recall.UserCF{
					Store:         deps.Interactions,
					Metric:        metric,
					TopKNeighbors: conv.ConfigGetInt(sourceMap, "neighbors", 0),
					TopKItems:     conv.ConfigGetInt(sourceMap, "top_k", 0),
				})
			case "hot":
				sources = append(sources, &recall.Hot{
					Interactions: deps.Interactions,
					Catalog:      deps.Catalog,
					Store:        deps.Store,
					Key:          deps.HotKey,
					TopK:         conv.ConfigGetInt(sourceMap, "top_k", 0),
				})
			default:
				return nil, fmt.Errorf("unknown source type: %s", sourceType)
			}
		}
		fanout := &recall.Fanout{
			Sources: sources,
			Dedup:   conv.ConfigGet(cfg, "dedup", true),
		}
		if sec := conv.ConfigGetInt(cfg, "timeout", 0); sec > 0 {
			fanout.Timeout = time.Duration(sec) * time.Second
		}
		if n := conv.ConfigGetInt(cfg, "max_concurrent", 0); n > 0 {
			fanout.MaxConcurrent = n
		}
		return fanout, nil
	})

	Register("filter.interacted", func(cfg map[string]any) (pipeline.Node, error) {
		return &filter.Interacted{Store: deps.Interactions}, nil
	})

	Register("filter", BuildFilterNode)
	Register("rerank.topn", BuildTopNNode)
	Register("rerank.diversity", BuildDiversityNode)
}

// BuildFilterNode 构建组合过滤 Node。
// 配置示例：
//
//	type: filter
//	config:
//	  blacklist: [r100, r101]
//	  rules:
//	    - name: low_score
//	      expr: item.score < 0.01
func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	var filters []filter.Filter

	if ids := conv.SliceAnyToString(cfg["blacklist"]); len(ids) > 0 {
		filters = append(filters, &filter.BlacklistFilter{ItemIDs: ids})
	}

	if rulesConfig, ok := cfg["rules"].([]any); ok {
		for _, rc := range rulesConfig {
			ruleMap, ok := rc.(map[string]any)
			if !ok {
				continue
			}
			expr := conv.ConfigGet(ruleMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("rule expr not found")
			}
			rule, err := filter.NewRuleFilter(conv.ConfigGet(ruleMap, "name", ""), expr)
			if err != nil {
				return nil, fmt.Errorf("compile rule: %w", err)
			}
			filters = append(filters, rule)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

// BuildTopNNode 构建排序截断 Node。
func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}

// BuildDiversityNode 构建多样性 Node。
func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{LabelKey: conv.ConfigGet(cfg, "label_key", "")}, nil
}
