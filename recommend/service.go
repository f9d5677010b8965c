// Package recommend 实现基于表格属性的宠物推荐：
// 校验查询 -> 目录与查询统一编码 -> 推荐 Pipeline（打分、过滤、图片、截断）-> 结果。
package recommend

import (
	"context"
	"fmt"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/feature"
	"github.com/rushteam/petmatch/metrics"
	"github.com/rushteam/petmatch/pipeline"
	"github.com/rushteam/petmatch/pkg/logging"
	"github.com/rushteam/petmatch/pkg/validation"
)

// Encoder 把目录与查询编码到同一个向量空间，feature.TabularEncoder 实现了它。
type Encoder interface {
	FitAndEncode(table feature.Table, query core.Record) ([][]float64, []float64, error)
}

// Service 推荐服务。Service 无请求间状态，可被并发调用。
type Service struct {
	Encoder  Encoder
	Pipeline *pipeline.Pipeline
}

// NewService 创建推荐服务，encoder 为 nil 时使用默认 Schema 的 TabularEncoder。
func NewService(encoder Encoder, p *pipeline.Pipeline) *Service {
	if encoder == nil {
		encoder = feature.NewTabularEncoder()
	}
	return &Service{Encoder: encoder, Pipeline: p}
}

// Recommend 返回与查询条件相似且属性完全匹配的宠物，按相似度降序。
// 没有结果时返回空切片而不是错误。
func (s *Service) Recommend(ctx context.Context, cat feature.Table, prefs *core.Preferences) ([]core.PetResult, error) {
	if prefs == nil {
		return nil, core.NewConfigurationError(core.ModuleRecommend, "Recommend", "preferences")
	}
	if err := validation.ValidateStruct(prefs); err != nil {
		if field := validation.FirstField(err); field != "" {
			return nil, core.NewConfigurationError(core.ModuleRecommend, "Recommend", field)
		}
		return nil, core.WrapDomainError(core.ModuleRecommend, core.ErrorCodeInvalidInput, "Recommend: invalid preferences", err)
	}

	rows, query, err := s.Encoder.FitAndEncode(cat, prefs)
	if err != nil {
		return nil, fmt.Errorf("recommend: encode: %w", err)
	}

	items := make([]*core.Item, 0, len(rows))
	for i, vec := range rows {
		pet, err := petAt(cat, i)
		if err != nil {
			return nil, err
		}
		items = append(items, core.NewItem(i, pet, vec))
	}

	rctx := &core.RecommendContext{
		RequestID:   core.RequestIDFromContext(ctx),
		Preferences: prefs,
		QueryVector: query,
		Params:      map[string]any{},
	}

	out := items
	if s.Pipeline != nil {
		out, err = s.Pipeline.Run(ctx, rctx, items)
		if err != nil {
			return nil, fmt.Errorf("recommend: pipeline %s: %w", s.Pipeline.Name, err)
		}
	}

	results := make([]core.PetResult, 0, len(out))
	for _, it := range out {
		results = append(results, it.Result())
	}

	metrics.RecommendResults.Observe(float64(len(results)))
	logging.Debug().
		Str("request_id", rctx.RequestID).
		Int("candidates", len(items)).
		Int("results", len(results)).
		Msg("recommend done")
	return results, nil
}

// petAt 取第 i 行的目录记录，表格行不是 *core.Pet 时无法组装结果。
func petAt(cat feature.Table, i int) (*core.Pet, error) {
	pet, ok := cat.Record(i).(*core.Pet)
	if !ok || pet == nil {
		return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInternalError,
			fmt.Sprintf("recommend: row %d is not a catalog record", i))
	}
	return pet, nil
}
