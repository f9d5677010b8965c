package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/images"
	"github.com/rushteam/petmatch/metrics"
	"github.com/rushteam/petmatch/pkg/logging"
	"github.com/rushteam/petmatch/vision"
)

// DefaultConcurrency 默认并发提取数
const DefaultConcurrency = 4

// Builder 从图片源构建特征库。
//
// 只收录 .png / .jpg / .jpeg（大小写不敏感），保持图片源的列举顺序。
// 单个文件失败（读取、解码、提取、维度不一致）会被记录并跳过，不影响其他文件。
// 列举失败或 ctx 被取消时整体失败。
type Builder struct {
	Source    images.Source
	Extractor vision.Extractor

	// Concurrency 并发提取数，<= 0 时使用 DefaultConcurrency
	Concurrency int
}

// SkippedFile 构建时被跳过的文件
type SkippedFile struct {
	Name string
	Err  error
}

// BuildReport 一次构建的统计
type BuildReport struct {
	Listed    int // 图片源中可收录的文件数
	Extracted int // 成功写入特征库的文件数
	Skipped   []SkippedFile
}

// Err 存在被跳过的文件时返回 EXTRACTION_FAILURE 汇总错误（不影响构建结果）
func (r *BuildReport) Err() error {
	if r == nil || len(r.Skipped) == 0 {
		return nil
	}
	names := make([]string, len(r.Skipped))
	causes := make([]error, len(r.Skipped))
	for i, s := range r.Skipped {
		names[i] = s.Name
		causes[i] = fmt.Errorf("%s: %w", s.Name, s.Err)
	}
	return core.WrapDomainError(core.ModuleStore, core.ErrorCodeExtractionFailure,
		fmt.Sprintf("store: %d of %d files skipped (%s)", len(r.Skipped), r.Listed, strings.Join(names, ", ")),
		errors.Join(causes...))
}

// Build 列举并提取全部图片，返回特征库与构建统计
func (b *Builder) Build(ctx context.Context) (*FeatureStore, *BuildReport, error) {
	names, err := b.Source.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("store: list images from %s: %w", b.Source.Name(), err)
	}
	names = images.FilterSupported(names)

	limit := b.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	vectors := make([][]float64, len(names))
	errs := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vectors[i], errs[i] = b.extract(gctx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("store: build: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("store: build: %w", err)
	}

	fs := NewFeatureStore()
	report := &BuildReport{Listed: len(names)}
	log := logging.With().Str("component", "store.builder").Str("source", b.Source.Name()).Logger()
	for i, name := range names {
		err := errs[i]
		if err == nil {
			err = fs.Add(name, vectors[i])
		}
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedFile{Name: name, Err: err})
			metrics.StoreBuildFiles.WithLabelValues("skipped").Inc()
			log.Warn().Err(err).Str("image", name).Msg("skipping image")
			continue
		}
		report.Extracted++
		metrics.StoreBuildFiles.WithLabelValues("ok").Inc()
	}

	log.Info().Int("listed", report.Listed).Int("extracted", report.Extracted).Int("skipped", len(report.Skipped)).Msg("feature store built")
	return fs, report, nil
}

func (b *Builder) extract(ctx context.Context, name string) ([]float64, error) {
	rc, err := b.Source.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return vision.ExtractBytes(ctx, b.Extractor, data)
}
