package service

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/pkg/logging"
)

// BreakerConfig 熔断配置
type BreakerConfig struct {
	// MaxRequests 半开状态下允许通过的请求数
	MaxRequests uint32 `koanf:"max_requests"`

	// Interval 闭合状态下计数的重置周期，0 表示不重置
	Interval time.Duration `koanf:"interval"`

	// Timeout 打开状态持续多久后进入半开
	Timeout time.Duration `koanf:"timeout"`

	// FailureThreshold 连续失败多少次后打开
	FailureThreshold uint32 `koanf:"failure_threshold"`
}

// DefaultBreakerConfig 默认熔断配置
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerService 用熔断器包装任意 core.MLService。
// 熔断打开期间 Predict 直接返回 UNAVAILABLE，不再访问模型服务。
// 调用方输入错误（INVALID_INPUT）不计入失败。
type BreakerService struct {
	next core.MLService
	cb   *gobreaker.CircuitBreaker[*core.MLPredictResponse]
}

// NewBreakerService 创建熔断包装
func NewBreakerService(name string, next core.MLService, cfg BreakerConfig) *BreakerService {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsInvalidInput(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("model service breaker state changed")
		},
	}
	return &BreakerService{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*core.MLPredictResponse](settings),
	}
}

// Predict 经过熔断器调用下游
func (s *BreakerService) Predict(ctx context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	resp, err := s.cb.Execute(func() (*core.MLPredictResponse, error) {
		return s.next.Predict(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "model service circuit open", err)
	}
	return resp, err
}

// State 返回当前熔断状态
func (s *BreakerService) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerService) Health(ctx context.Context) error {
	return s.next.Health(ctx)
}

func (s *BreakerService) Close() error {
	return s.next.Close()
}

var _ core.MLService = (*BreakerService)(nil)
