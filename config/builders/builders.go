package builders

import (
	"fmt"

	"github.com/rushteam/petmatch/config"
	"github.com/rushteam/petmatch/filter"
	"github.com/rushteam/petmatch/images"
	"github.com/rushteam/petmatch/pipeline"
	"github.com/rushteam/petmatch/pkg/conv"
	"github.com/rushteam/petmatch/rank"
	"github.com/rushteam/petmatch/rerank"
)

func init() {
	config.Register("rank.similarity", BuildSimilarityNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.images", BuildImageNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
}

// BuildSimilarityNode threshold 可选（不配置则不做阈值截断），top_k 可选。
func BuildSimilarityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	node := &rank.SimilarityNode{
		TopK: int(conv.ConfigGetInt64(cfg, "top_k", 0)),
	}
	if _, ok := cfg["threshold"]; ok {
		t, ok := conv.ConfigGetFloat64(cfg, "threshold")
		if !ok {
			return nil, fmt.Errorf("threshold must be a number")
		}
		node.Threshold = t
		node.HasThreshold = true
	}
	return node, nil
}

func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "attribute_match":
			fields := conv.SliceAnyToString(filterMap["fields"])
			filters = append(filters, filter.NewAttributeMatchFilter(fields...))
		case "blacklist":
			filters = append(filters, filter.NewBlacklistFilter(conv.SliceAnyToString(filterMap["names"])))
		case "expr":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("expr filter requires expr")
			}
			f, err := filter.NewExprFilter(expr)
			if err != nil {
				return nil, fmt.Errorf("expr filter: %w", err)
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func BuildImageNode(cfg map[string]interface{}) (pipeline.Node, error) {
	baseURL := conv.ConfigGet(cfg, "base_url", "")
	if baseURL == "" {
		return nil, fmt.Errorf("base_url not found")
	}
	return &rerank.ImageNode{
		Resolver: images.NewURLResolver(baseURL),
		Limit:    int(conv.ConfigGetInt64(cfg, "limit", rerank.DefaultImageLimit)),
	}, nil
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

func BuildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.Diversity{
		Field:       conv.ConfigGet(cfg, "field", ""),
		MaxPerGroup: int(conv.ConfigGetInt64(cfg, "max_per_group", 1)),
	}, nil
}
