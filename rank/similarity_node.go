package rank

import (
	"context"
	"fmt"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/pipeline"
	"github.com/rushteam/petmatch/pkg/utils"
)

// SimilarityNode 是推荐 Pipeline 的排序节点：
// 用 rctx.QueryVector 对每个 item.Vector 打分，按分数稳定降序输出。
//
// 使用场景：
//   - 推荐服务：对全量目录打分（先打分，后过滤），Threshold = 0.7
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rank.SimilarityNode{Threshold: 0.7, HasThreshold: true},
//	        &filter.FilterNode{...},
//	        &rerank.ImageNode{...},
//	    },
//	}
type SimilarityNode struct {
	// Threshold 分数严格大于该值才保留，仅在 HasThreshold 为 true 时生效
	Threshold    float64
	HasThreshold bool

	// TopK 截断数量，<= 0 表示不截断
	TopK int
}

func (n *SimilarityNode) Name() string {
	return "rank.similarity"
}

func (n *SimilarityNode) Kind() pipeline.Kind {
	return pipeline.KindRank
}

func (n *SimilarityNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	if rctx == nil || len(rctx.QueryVector) == 0 {
		return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidInput, "rank: query vector is required")
	}

	candidates := make([][]float64, len(items))
	for i, it := range items {
		candidates[i] = it.Vector
	}

	opts := []Option{WithTopK(n.TopK)}
	if n.HasThreshold {
		opts = append(opts, WithThreshold(n.Threshold))
	}
	ranked, err := Rank(rctx.QueryVector, candidates, opts...)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(ranked))
	for pos, r := range ranked {
		it := items[r.Index]
		it.Score = r.Score
		it.PutLabel("rank_position", utils.Label{Value: fmt.Sprintf("%d", pos+1), Source: "rank"})
		out = append(out, it)
	}
	return out, nil
}
