package filter

import (
	"context"

	"github.com/rushteam/petmatch/core"
)

// DefaultMatchFields 是推荐时必须与查询完全一致的类别字段。
var DefaultMatchFields = []string{
	core.FieldType,
	core.FieldGender,
	core.FieldMaturitySize,
	core.FieldFurLength,
	core.FieldColor,
}

// AttributeMatchFilter 要求 item 的每个字段都与查询中同名字段完全相等（严格 AND）。
// 任一字段不相等，或查询中缺少该字段，item 即被过滤。
type AttributeMatchFilter struct {
	Fields []string
}

// NewAttributeMatchFilter 创建属性匹配过滤器，fields 为空时使用 DefaultMatchFields。
func NewAttributeMatchFilter(fields ...string) *AttributeMatchFilter {
	if len(fields) == 0 {
		fields = DefaultMatchFields
	}
	return &AttributeMatchFilter{Fields: fields}
}

func (f *AttributeMatchFilter) Name() string {
	return "filter.attribute_match"
}

func (f *AttributeMatchFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item.Pet == nil {
		return true, nil
	}
	for _, field := range f.Fields {
		want, ok := rctx.Preference(field)
		if !ok {
			return true, nil
		}
		got, ok := item.Pet.Attr(field)
		if !ok || !equalAttr(got, want) {
			return true, nil
		}
	}
	return false, nil
}

func equalAttr(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	default:
		return false
	}
}
