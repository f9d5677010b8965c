package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rushteam/petmatch/core"
)

// NewMLService 根据配置创建 MLService 实例（工厂方法）。
// 配置了 Breaker 时返回 BreakerService 包装。
func NewMLService(config *ServiceConfig) (core.MLService, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var svc core.MLService
	switch config.Type {
	case ServiceTypeTFServing, "":
		opts := []TFServingOption{
			WithTFServingTimeout(timeout),
		}
		if config.ModelVersion != "" {
			opts = append(opts, WithTFServingVersion(config.ModelVersion))
		}
		if config.SignatureName != "" {
			opts = append(opts, WithTFServingSignature(config.SignatureName))
		}
		if config.Auth != nil {
			opts = append(opts, WithTFServingAuth(config.Auth))
		}
		svc = NewTFServingClient(strings.TrimRight(config.Endpoint, "/"), config.ModelName, opts...)

	case ServiceTypeTorchServe:
		opts := []TorchServeOption{
			WithTorchServeTimeout(timeout),
		}
		if config.ModelVersion != "" {
			opts = append(opts, WithTorchServeVersion(config.ModelVersion))
		}
		if config.Auth != nil {
			opts = append(opts, WithTorchServeAuth(config.Auth))
		}
		svc = NewTorchServeClient(strings.TrimRight(config.Endpoint, "/"), config.ModelName, opts...)

	default:
		return nil, fmt.Errorf("unsupported service type: %s", config.Type)
	}

	if config.Breaker != nil {
		svc = NewBreakerService(config.ModelName, svc, *config.Breaker)
	}
	return svc, nil
}

// ValidateConfig 验证服务配置
func ValidateConfig(config *ServiceConfig) error {
	if config == nil {
		return fmt.Errorf("service config is required")
	}
	if config.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if !strings.HasPrefix(config.Endpoint, "http://") && !strings.HasPrefix(config.Endpoint, "https://") {
		return fmt.Errorf("endpoint must be an http(s) url: %s", config.Endpoint)
	}
	if config.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}

// TestConnection 测试服务连接
func TestConnection(ctx context.Context, svc core.MLService) error {
	if svc == nil {
		return fmt.Errorf("service is nil")
	}
	return svc.Health(ctx)
}
