package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/petmatch/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// programs 缓存已编译的表达式
	programs sync.Map // expr -> *Program
)

// recordFields 是暴露给表达式的目录列
var recordFields = []string{
	core.FieldName,
	core.FieldType,
	core.FieldAge,
	core.FieldGender,
	core.FieldMaturitySize,
	core.FieldFurLength,
	core.FieldFee,
	core.FieldColor,
	core.FieldBreed,
	core.FieldHealth,
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("pref", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的布尔表达式，线程安全，可被并发请求复用。
//
// 表达式语法（CEL 标准语法）：
//   - 字段：item.pet.Health == "Healthy" / pref.Type == "Cat"
//   - 数值：item.score > 0.7 / item.pet.Fee <= 100.0
//   - 逻辑：item.pet.Breed1_Name == pref.Breed1_Name && item.score > 0.8
//   - 标签：label.rank_position == "1"
//   - 存在性：has(pref.Health)
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，结果按表达式文本缓存。
func Compile(expr string) (*Program, error) {
	if cached, ok := programs.Load(expr); ok {
		return cached.(*Program), nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("expression must return boolean, got %v", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}

	p := &Program{expr: expr, prg: prg}
	actual, _ := programs.LoadOrStore(expr, p)
	return actual.(*Program), nil
}

// String 返回表达式原文
func (p *Program) String() string {
	return p.expr
}

// Eval 对一个 item 执行表达式，返回布尔结果。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		// 访问不存在的 key 会报错，应使用 has() 先检查存在性
		return false, fmt.Errorf("eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Evaluate 编译（或取缓存）并执行表达式；空表达式视为 true。
func Evaluate(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if expr == "" {
		return true, nil
	}
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Eval(item, rctx)
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]interface{} {
	labels := make(map[string]interface{})
	itemMap := map[string]interface{}{}
	if item != nil {
		for k, v := range item.Labels {
			labels[k] = v.Value
		}
		pet := map[string]interface{}{}
		if item.Pet != nil {
			pet = recordToMap(item.Pet)
		}
		itemMap = map[string]interface{}{
			"id":     item.ID,
			"index":  item.Index,
			"score":  item.Score,
			"images": item.Images,
			"pet":    pet,
		}
	}

	pref := map[string]interface{}{}
	rctxMap := map[string]interface{}{}
	if rctx != nil {
		if rctx.Preferences != nil {
			pref = recordToMap(rctx.Preferences)
		}
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		rctxMap = map[string]interface{}{
			"request_id": rctx.RequestID,
			"params":     params,
		}
	}

	return map[string]interface{}{
		"item":  itemMap,
		"pref":  pref,
		"label": labels,
		"rctx":  rctxMap,
	}
}

// recordToMap 只导出存在的字段，便于 has() 判断
func recordToMap(r core.Record) map[string]interface{} {
	m := make(map[string]interface{}, len(recordFields))
	for _, f := range recordFields {
		if v, ok := r.Attr(f); ok {
			m[f] = v
		}
	}
	return m
}
