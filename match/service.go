// Package match 实现以图搜宠：上传图片 -> 特征提取 -> 与特征库逐条余弦比较 -> Top 3 -> 目录记录。
package match

import (
	"context"
	"fmt"

	"github.com/rushteam/petmatch/catalog"
	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/metrics"
	"github.com/rushteam/petmatch/pkg/logging"
	"github.com/rushteam/petmatch/rank"
	"github.com/rushteam/petmatch/store"
	"github.com/rushteam/petmatch/vision"
)

// DefaultTopK 返回的最相似图片数
const DefaultTopK = 3

// Catalog 按图片标识查找目录记录，catalog.Catalog 实现了它。
type Catalog interface {
	FindByImage(id string) (*core.Pet, int, bool)
}

// URLResolver 生成图片展示地址
type URLResolver interface {
	Resolve(imagePath string) string
}

// Service 匹配服务
type Service struct {
	Extractor vision.Extractor
	Resolver  URLResolver

	// TopK <= 0 时使用 DefaultTopK
	TopK int
}

func NewService(extractor vision.Extractor, resolver URLResolver) *Service {
	return &Service{Extractor: extractor, Resolver: resolver, TopK: DefaultTopK}
}

// Match 返回与上传图片最相似的宠物，按相似度降序，不做阈值过滤。
// 任何一步失败（解码、提取、标识找不到目录记录）都直接返回错误，不返回部分结果。
func (s *Service) Match(ctx context.Context, data []byte, fs *store.FeatureStore, cat Catalog) (results []core.PetResult, err error) {
	defer func() {
		metrics.MatchRequests.WithLabelValues(outcome(err)).Inc()
	}()

	if fs == nil {
		return nil, core.NewDomainError(core.ModuleMatch, core.ErrorCodeUnavailable, "match: feature store is not ready")
	}

	query, err := vision.ExtractBytes(ctx, s.Extractor, data)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}

	ids, vectors := fs.All()
	topK := s.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	ranked, err := rank.Rank(query, vectors, rank.WithTopK(topK))
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}

	results = make([]core.PetResult, 0, len(ranked))
	for _, r := range ranked {
		id := ids[r.Index]
		pet, _, ok := cat.FindByImage(id)
		if !ok {
			return nil, core.NewDomainError(core.ModuleMatch, core.ErrorCodeNotFound,
				fmt.Sprintf("match: no catalog record for image %q", id))
		}
		res := core.NewPetResult(pet, r.Score)
		if s.Resolver != nil {
			res.ImageURL = s.Resolver.Resolve(id)
		}
		results = append(results, res)
	}

	logging.Debug().
		Str("request_id", core.RequestIDFromContext(ctx)).
		Int("store_size", len(ids)).
		Int("results", len(results)).
		Msg("match done")
	return results, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case core.IsDecodeError(err):
		return "decode_error"
	case core.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

var _ Catalog = (*catalog.Catalog)(nil)
