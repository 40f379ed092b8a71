package filter

import (
	"context"

	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/pkg/dsl"
)

// RuleFilter 基于 CEL 表达式的规则过滤器，表达式求值为 true 的物品被剔除。
// 表达式可以访问 item、label、rctx 三个变量，例如:
//
//	label["recall_source"] == "hot" && item.Score < 0.1
type RuleFilter struct {
	RuleName string
	expr     *dsl.Expr
}

// NewRuleFilter 编译表达式并构造规则过滤器，编译失败返回错误。
func NewRuleFilter(name, expression string) (*RuleFilter, error) {
	expr, err := dsl.Compile(expression)
	if err != nil {
		return nil, err
	}
	return &RuleFilter{RuleName: name, expr: expr}, nil
}

func (f *RuleFilter) Name() string {
	if f.RuleName != "" {
		return "rule." + f.RuleName
	}
	return "rule"
}

func (f *RuleFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.expr == nil || item == nil {
		return false, nil
	}
	return f.expr.Eval(item, rctx)
}
