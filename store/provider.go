package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/metrics"
	"github.com/rushteam/petmatch/pkg/logging"
)

// Provider 一次性初始化特征库，并在进程内共享。
//
// 初始化流程：
//  1. 从 Persister 加载；成功则直接使用
//  2. 加载失败（不存在、损坏、后端不可用）时记录日志，用 Builder 从图片源重建
//  3. 重建结果非空时写回 Persister，写回失败只记录日志
//
// 成功的初始化只执行一次；在它完成之前到达的请求会阻塞等待。
// 初始化失败（列举失败、全部图片提取失败）返回 UNAVAILABLE，不会被缓存，下一次 Get 重试。
type Provider struct {
	// Persister 持久化后端，可为 nil（每次启动都重建）
	Persister core.FeatureStorePersister
	Builder   *Builder

	// Rebuild 为 true 时跳过加载，直接重建并覆盖持久化内容
	Rebuild bool

	mu    sync.Mutex
	store *FeatureStore
}

// NewProvider 创建 Provider
func NewProvider(persister core.FeatureStorePersister, builder *Builder) *Provider {
	return &Provider{Persister: persister, Builder: builder}
}

// Get 返回初始化完成的特征库。
// 初始化不受首个调用方 ctx 取消的影响。
func (p *Provider) Get(ctx context.Context) (*FeatureStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store != nil {
		return p.store, nil
	}

	fs, err := p.init(context.WithoutCancel(ctx))
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: feature store not ready", err)
	}
	p.store = fs
	metrics.StoreEntries.Set(float64(fs.Len()))
	return fs, nil
}

func (p *Provider) init(ctx context.Context) (*FeatureStore, error) {
	log := logging.With().Str("component", "store.provider").Logger()

	if p.Persister != nil && !p.Rebuild {
		entries, err := p.Persister.Load(ctx)
		if err == nil {
			fs, ferr := FromEntries(entries)
			if ferr == nil {
				metrics.StoreLoads.WithLabelValues("persisted").Inc()
				log.Info().Str("backend", p.Persister.Name()).Int("entries", fs.Len()).Int("dimension", fs.Dimension()).Msg("feature store loaded")
				return fs, nil
			}
			err = ferr
		}
		if core.IsNotFound(err) {
			log.Info().Str("backend", p.Persister.Name()).Msg("no persisted feature store, building")
		} else {
			log.Warn().Err(err).Str("backend", p.Persister.Name()).Msg("cannot load feature store, rebuilding")
		}
	}

	fs, report, err := p.Builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	if report.Listed > 0 && report.Extracted == 0 {
		metrics.StoreLoads.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("store: no image could be extracted: %w", report.Err())
	}
	metrics.StoreLoads.WithLabelValues("rebuilt").Inc()
	if rerr := report.Err(); rerr != nil {
		log.Warn().Err(rerr).Msg("feature store built with skipped files")
	}

	if p.Persister != nil && fs.Len() > 0 {
		if err := p.Persister.Persist(ctx, fs.Entries()); err != nil {
			log.Error().Err(err).Str("backend", p.Persister.Name()).Msg("cannot persist feature store")
		}
	}
	return fs, nil
}

// Close 关闭持久化后端
func (p *Provider) Close() error {
	if p.Persister != nil {
		return p.Persister.Close()
	}
	return nil
}
