// Package service 提供 core.MLService 的实现：TF Serving / TorchServe REST 客户端与熔断包装。
//
// 使用示例：
//
//	svc, err := service.NewMLService(&service.ServiceConfig{
//	    Type:      service.ServiceTypeTFServing,
//	    Endpoint:  "http://localhost:8501",
//	    ModelName: "vgg16",
//	})
//	resp, err := svc.Predict(ctx, &core.MLPredictRequest{Instances: []any{tensor}})
package service

import (
	"fmt"
	"net/http"
)

// ServiceType 服务类型
type ServiceType string

const (
	ServiceTypeTFServing  ServiceType = "tf_serving"  // TensorFlow Serving
	ServiceTypeTorchServe ServiceType = "torch_serve" // TorchServe
)

// ServiceConfig 服务配置
type ServiceConfig struct {
	// Type 服务类型
	Type ServiceType `koanf:"type"`

	// Endpoint 服务端点
	// TF Serving: "http://localhost:8501"
	// TorchServe: "http://localhost:8080"
	Endpoint string `koanf:"endpoint"`

	// ModelName 模型名称
	ModelName string `koanf:"name"`

	// ModelVersion 模型版本（可选）
	ModelVersion string `koanf:"version"`

	// SignatureName 签名名称（可选，TF Serving 使用）
	SignatureName string `koanf:"signature"`

	// Timeout 超时时间（秒）
	Timeout int `koanf:"timeout"`

	// Auth 认证信息（可选）
	Auth *AuthConfig `koanf:"auth"`

	// Breaker 熔断配置（可选，为空则不包装）
	Breaker *BreakerConfig `koanf:"breaker"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	Type     string `koanf:"type"` // "basic", "bearer", "api_key"
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Token    string `koanf:"token"`
	APIKey   string `koanf:"api_key"`
}

// apply 把认证信息写入 HTTP 请求
func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	switch a.Type {
	case "basic":
		req.SetBasicAuth(a.Username, a.Password)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case "api_key":
		req.Header.Set("X-API-Key", a.APIKey)
	}
}

// Flatten 把任意嵌套的数值数组（JSON 解码结果）按行优先展平为一维。
// 例如 VGG16 卷积基输出 [7][7][512] 展平为 25088 维。
func Flatten(v any) ([]float64, error) {
	out := make([]float64, 0, 64)
	if err := flattenInto(&out, v); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(out *[]float64, v any) error {
	switch val := v.(type) {
	case float64:
		*out = append(*out, val)
	case float32:
		*out = append(*out, float64(val))
	case int:
		*out = append(*out, float64(val))
	case int64:
		*out = append(*out, float64(val))
	case []float64:
		*out = append(*out, val...)
	case []any:
		for _, e := range val {
			if err := flattenInto(out, e); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unexpected prediction element type: %T", v)
	}
	return nil
}
