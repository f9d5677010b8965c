package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/petmatch/core"
)

// TorchServeClient 是 TorchServe Inference API（端口 8080）的客户端。
//
// 请求：POST {Endpoint}/predictions/{name}[/{version}]，请求体 {"data": instances}。
// 响应兼容三种常见 handler 输出：
//   - {"predictions": [out1, out2, ...]}：每个实例一个输出
//   - [out1, out2, ...]：实例数 > 1 时每个元素对应一个实例
//   - 任意嵌套数组：单实例请求时整体作为该实例的输出
type TorchServeClient struct {
	// Endpoint 服务端点，例如 "http://localhost:8080"
	Endpoint string

	// ModelName 模型名称
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// Timeout 超时时间
	Timeout time.Duration

	// Auth 认证信息
	Auth *AuthConfig

	httpClient *http.Client
}

// NewTorchServeClient 创建一个新的 TorchServe 客户端。
func NewTorchServeClient(endpoint, modelName string, opts ...TorchServeOption) *TorchServeClient {
	client := &TorchServeClient{
		Endpoint:  endpoint,
		ModelName: modelName,
		Timeout:   30 * time.Second,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{
			Timeout: client.Timeout,
		}
	}

	return client
}

// TorchServeOption TorchServe 客户端配置选项
type TorchServeOption func(*TorchServeClient)

// WithTorchServeVersion 设置模型版本
func WithTorchServeVersion(version string) TorchServeOption {
	return func(c *TorchServeClient) {
		c.ModelVersion = version
	}
}

// WithTorchServeTimeout 设置超时时间
func WithTorchServeTimeout(timeout time.Duration) TorchServeOption {
	return func(c *TorchServeClient) {
		c.Timeout = timeout
		if c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithTorchServeAuth 设置认证信息
func WithTorchServeAuth(auth *AuthConfig) TorchServeOption {
	return func(c *TorchServeClient) {
		c.Auth = auth
	}
}

// WithTorchServeHTTPClient 使用自定义 HTTP 客户端
func WithTorchServeHTTPClient(httpClient *http.Client) TorchServeOption {
	return func(c *TorchServeClient) {
		c.httpClient = httpClient
	}
}

// Predict 实现 core.MLService 接口
func (c *TorchServeClient) Predict(ctx context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	if req == nil || len(req.Instances) == 0 {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "torchserve: instances are required")
	}

	name, version := c.ModelName, c.ModelVersion
	if req.ModelName != "" {
		name = req.ModelName
	}
	if req.ModelVersion != "" {
		version = req.ModelVersion
	}
	url := fmt.Sprintf("%s/predictions/%s", c.Endpoint, name)
	if version != "" {
		url = url + "/" + version
	}

	jsonData, err := json.Marshal(map[string]any{"data": req.Instances})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.Auth.apply(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "torchserve: request failed", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("torchserve", resp.StatusCode, bodyBytes)
	}

	outputs, err := splitOutputs(bodyBytes, len(req.Instances))
	if err != nil {
		return nil, err
	}

	predictions := make([][]float64, len(outputs))
	for i, out := range outputs {
		flat, err := Flatten(out)
		if err != nil {
			return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeShape, "torchserve: invalid prediction", err)
		}
		predictions[i] = flat
	}

	return &core.MLPredictResponse{
		Predictions:  predictions,
		ModelVersion: version,
	}, nil
}

// splitOutputs 按实例拆分响应
func splitOutputs(body []byte, instances int) ([]any, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if obj, ok := raw.(map[string]any); ok {
		preds, ok := obj["predictions"].([]any)
		if !ok {
			return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeShape, "torchserve: response has no predictions")
		}
		raw = preds
		if len(preds) == instances {
			return preds, nil
		}
	}

	if instances == 1 {
		return []any{raw}, nil
	}
	arr, ok := raw.([]any)
	if !ok || len(arr) != instances {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeShape,
			fmt.Sprintf("torchserve: response does not match %d instances", instances))
	}
	return arr, nil
}

// Health 调用 TorchServe 的 /ping
func (c *TorchServeClient) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"/ping", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.Auth.apply(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "torchserve: health check failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return statusError("torchserve", resp.StatusCode, bodyBytes)
	}
	return nil
}

// Close 关闭连接
func (c *TorchServeClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ core.MLService = (*TorchServeClient)(nil)
