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

// TFServingClient 是 TensorFlow Serving REST API（端口 8501）的客户端。
//
// 请求：POST {Endpoint}/v1/models/{name}[/versions/{v}]:predict
//
//	{"instances": [...], "signature_name": "serving_default"}
//
// 响应中每个实例的输出张量被展平为一维，例如 VGG16 卷积基（include_top=False）
// 对 224x224x3 输入输出 7x7x512，展平后为 25088 维。
type TFServingClient struct {
	// Endpoint 服务端点，例如 "http://localhost:8501"
	Endpoint string

	// ModelName 模型名称
	ModelName string

	// ModelVersion 模型版本（可选，为空则使用最新版本）
	ModelVersion string

	// SignatureName 签名名称（可选，默认为 "serving_default"）
	SignatureName string

	// Timeout 超时时间
	Timeout time.Duration

	// Auth 认证信息
	Auth *AuthConfig

	httpClient *http.Client
}

// NewTFServingClient 创建一个新的 TF Serving 客户端。
func NewTFServingClient(endpoint, modelName string, opts ...TFServingOption) *TFServingClient {
	client := &TFServingClient{
		Endpoint:      endpoint,
		ModelName:     modelName,
		SignatureName: "serving_default",
		Timeout:       30 * time.Second,
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

// TFServingOption TF Serving 客户端配置选项
type TFServingOption func(*TFServingClient)

// WithTFServingVersion 设置模型版本
func WithTFServingVersion(version string) TFServingOption {
	return func(c *TFServingClient) {
		c.ModelVersion = version
	}
}

// WithTFServingSignature 设置签名名称
func WithTFServingSignature(signatureName string) TFServingOption {
	return func(c *TFServingClient) {
		c.SignatureName = signatureName
	}
}

// WithTFServingTimeout 设置超时时间
func WithTFServingTimeout(timeout time.Duration) TFServingOption {
	return func(c *TFServingClient) {
		c.Timeout = timeout
	}
}

// WithTFServingAuth 设置认证信息
func WithTFServingAuth(auth *AuthConfig) TFServingOption {
	return func(c *TFServingClient) {
		c.Auth = auth
	}
}

// WithTFServingHTTPClient 使用自定义 HTTP 客户端
func WithTFServingHTTPClient(httpClient *http.Client) TFServingOption {
	return func(c *TFServingClient) {
		c.httpClient = httpClient
	}
}

func (c *TFServingClient) modelURL(req *core.MLPredictRequest) string {
	name, version := c.ModelName, c.ModelVersion
	if req != nil && req.ModelName != "" {
		name = req.ModelName
	}
	if req != nil && req.ModelVersion != "" {
		version = req.ModelVersion
	}
	if version != "" {
		return fmt.Sprintf("%s/v1/models/%s/versions/%s", c.Endpoint, name, version)
	}
	return fmt.Sprintf("%s/v1/models/%s", c.Endpoint, name)
}

// Predict 实现 core.MLService 接口
func (c *TFServingClient) Predict(ctx context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	if req == nil || len(req.Instances) == 0 {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "tf serving: instances are required")
	}

	body := map[string]any{"instances": req.Instances}
	signature := c.SignatureName
	if req.SignatureName != "" {
		signature = req.SignatureName
	}
	if signature != "" {
		body["signature_name"] = signature
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL(req)+":predict", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.Auth.apply(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "tf serving: request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, statusError("tf serving", resp.StatusCode, bodyBytes)
	}

	var result struct {
		Predictions []any `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Predictions) != len(req.Instances) {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeShape,
			fmt.Sprintf("tf serving: got %d predictions for %d instances", len(result.Predictions), len(req.Instances)))
	}

	predictions := make([][]float64, len(result.Predictions))
	for i, pred := range result.Predictions {
		flat, err := Flatten(pred)
		if err != nil {
			return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeShape, "tf serving: invalid prediction", err)
		}
		predictions[i] = flat
	}

	return &core.MLPredictResponse{
		Predictions:  predictions,
		ModelVersion: c.ModelVersion,
	}, nil
}

// Health 查询模型状态（GET /v1/models/{name}）
func (c *TFServingClient) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelURL(nil), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.Auth.apply(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "tf serving: health check failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return statusError("tf serving", resp.StatusCode, bodyBytes)
	}
	return nil
}

// Close 关闭连接
func (c *TFServingClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// statusError 5xx 视为服务不可用，其余为内部错误
func statusError(backend string, status int, body []byte) error {
	code := core.ErrorCodeInternalError
	if status >= 500 {
		code = core.ErrorCodeUnavailable
	}
	return core.NewDomainError(core.ModuleService, code,
		fmt.Sprintf("%s error: status=%d, body=%s", backend, status, string(body)))
}

var _ core.MLService = (*TFServingClient)(nil)
