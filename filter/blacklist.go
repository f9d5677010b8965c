package filter

import (
	"context"

	"github.com/rushteam/petmatch/core"
)

// BlacklistFilter 过滤掉指定名字的宠物（例如已被领养、暂不开放）。
type BlacklistFilter struct {
	names map[string]struct{}
}

// NewBlacklistFilter 创建黑名单过滤器
func NewBlacklistFilter(names []string) *BlacklistFilter {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return &BlacklistFilter{names: m}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	_, ok := f.names[item.ID]
	return ok, nil
}
