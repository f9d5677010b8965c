package rerank

import (
	"context"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/pipeline"
)

// TopNNode 是 Top-N 截断节点，放在排序与过滤之后，限制返回的推荐数量。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rank.SimilarityNode{...},
//	        &filter.FilterNode{...},
//	        &rerank.ImageNode{...},
//	        &rerank.TopNNode{N: 20},
//	    },
//	}
type TopNNode struct {
	// N 要保留的数量，<= 0 时不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
