package core

import "context"

// MLService 是模型推理服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（service）实现
//   - 遵循依赖倒置原则：vision 只依赖此接口，不关心模型部署在 TF Serving 还是 TorchServe
//
// 使用场景：
//   - 图片特征提取：VGG16 卷积基（include_top=False）输出 7x7x512 特征图
//
// 实现：
//   - service.TFServingClient
//   - service.TorchServeClient
//   - service.BreakerService（熔断包装）
type MLService interface {
	// Predict 批量推理
	Predict(ctx context.Context, req *MLPredictRequest) (*MLPredictResponse, error)

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 关闭连接
	Close() error
}

// MLPredictRequest 推理请求
type MLPredictRequest struct {
	// Instances 输入实例列表，每个实例是一个任意维度的嵌套数组
	// 例如图片张量：[][][]float64（H x W x C）
	Instances []any

	// ModelName 模型名称（可选，覆盖客户端默认值）
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// SignatureName 签名名称（可选，TF Serving 使用）
	SignatureName string
}

// MLPredictResponse 推理响应
type MLPredictResponse struct {
	// Predictions 与请求实例一一对应，每个实例的输出张量展平为一维
	Predictions [][]float64

	// ModelVersion 模型版本（如果服务返回）
	ModelVersion string
}
