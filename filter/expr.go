package filter

import (
	"context"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/pkg/dsl"
)

// ExprFilter 用 CEL 表达式决定是否保留 item：表达式为 true 时保留，false 时过滤。
//
// 示例：
//   - `item.pet.Health == "Healthy"`
//   - `item.score > 0.8 && item.pet.Fee <= 100.0`
//   - `item.pet.Breed1_Name == pref.Breed1_Name`
type ExprFilter struct {
	program *dsl.Program
}

// NewExprFilter 编译表达式，语法错误在构建时返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{program: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	keep, err := f.program.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
