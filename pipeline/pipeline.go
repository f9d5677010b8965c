package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/petmatch/core"
)

// Pipeline 把一次推荐拆成可组合的 Node 链：rank → filter → rerank。
// Pipeline 本身无状态，可被并发请求共享；请求级数据都在 RecommendContext 和 items 中。
type Pipeline struct {
	Name  string
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
