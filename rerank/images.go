package rerank

import (
	"context"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/pipeline"
	"github.com/rushteam/petmatch/pkg/utils"
)

// DefaultImageLimit 每条推荐最多展示的图片数
const DefaultImageLimit = 3

// URLResolver 把目录中的图片路径转换为展示地址，images.URLResolver 实现了它。
type URLResolver interface {
	Resolve(imagePath string) string
}

// ImageNode 为每个 item 生成展示图片地址：
// 按目录中的顺序取前 Limit 张，没有任何可展示图片的 item 被丢弃。
type ImageNode struct {
	Resolver URLResolver

	// Limit 每条最多保留的图片数，<= 0 时使用 DefaultImageLimit
	Limit int
}

func (n *ImageNode) Name() string {
	return "rerank.images"
}

func (n *ImageNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *ImageNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.Limit
	if limit <= 0 {
		limit = DefaultImageLimit
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil || it.Pet == nil {
			continue
		}
		urls := make([]string, 0, limit)
		for _, p := range it.Pet.ImagePaths {
			if len(urls) == limit {
				break
			}
			if u := n.Resolver.Resolve(p); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) == 0 {
			it.PutLabel("dropped", utils.Label{Value: "no_images", Source: n.Name()})
			continue
		}
		it.Images = urls
		out = append(out, it)
	}
	return out, nil
}
