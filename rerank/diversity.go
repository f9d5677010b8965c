package rerank

import (
	"context"
	"fmt"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/pipeline"
)

// Diversity 按目录字段打散：同一字段值最多保留 MaxPerGroup 条，保持原有顺序。
// 例如 Field = "Breed1_Name", MaxPerGroup = 2 时，同一品种最多出现两次。
type Diversity struct {
	// Field 分组字段（目录列名），默认 Breed1_Name
	Field string

	// MaxPerGroup 每组最多保留条数，<= 0 时为 1
	MaxPerGroup int
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	field := n.Field
	if field == "" {
		field = core.FieldBreed
	}
	limit := n.MaxPerGroup
	if limit <= 0 {
		limit = 1
	}

	seen := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil || it.Pet == nil {
			continue
		}
		v, ok := it.Pet.Attr(field)
		if !ok {
			// 未知字段不打散
			out = append(out, it)
			continue
		}
		key := fmt.Sprint(v)
		if seen[key] >= limit {
			continue
		}
		seen[key]++
		out = append(out, it)
	}
	return out, nil
}
