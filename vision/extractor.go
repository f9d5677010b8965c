package vision

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/metrics"
)

// Extractor 把一张图片转换为定长特征向量。
// 实现必须可被并发调用。
type Extractor interface {
	Extract(ctx context.Context, img image.Image) ([]float64, error)
}

// ModelExtractor 通过模型服务（例如 TF Serving 托管的 VGG16 卷积基）提取特征。
//
// 模型服务客户端在启动时创建一次，之后只读共享。
type ModelExtractor struct {
	// Model 模型推理服务
	Model core.MLService

	// InputSize 输入边长，默认 224
	InputSize int

	// OutputDim 期望的输出维度（VGG16 卷积基为 7*7*512 = 25088），<= 0 表示不校验
	OutputDim int

	// ModelName / SignatureName 可选，覆盖客户端默认值
	ModelName     string
	SignatureName string
}

// VGG16OutputDim VGG16（include_top=False，224x224 输入）展平后的特征维度
const VGG16OutputDim = 7 * 7 * 512

// NewModelExtractor 创建 VGG16 特征提取器
func NewModelExtractor(model core.MLService) *ModelExtractor {
	return &ModelExtractor{
		Model:     model,
		InputSize: DefaultInputSize,
		OutputDim: VGG16OutputDim,
	}
}

// Extract 预处理图片并调用模型服务，返回展平后的特征。
// 输出维度与 OutputDim 不符时返回 SHAPE_ERROR。
func (e *ModelExtractor) Extract(ctx context.Context, img image.Image) (vec []float64, err error) {
	start := time.Now()
	defer func() { metrics.ObserveExtraction(time.Since(start), err) }()

	size := e.InputSize
	if size == 0 {
		size = DefaultInputSize
	}
	tensor, err := Preprocess(img, size)
	if err != nil {
		return nil, err
	}

	resp, err := e.Model.Predict(ctx, &core.MLPredictRequest{
		Instances:     []any{tensor},
		ModelName:     e.ModelName,
		SignatureName: e.SignatureName,
	})
	if err != nil {
		return nil, fmt.Errorf("vision: predict: %w", err)
	}
	if len(resp.Predictions) != 1 {
		return nil, core.NewDomainError(core.ModuleVision, core.ErrorCodeShape,
			fmt.Sprintf("vision: expected 1 prediction, got %d", len(resp.Predictions)))
	}
	vec = resp.Predictions[0]
	if len(vec) == 0 {
		return nil, core.NewDomainError(core.ModuleVision, core.ErrorCodeShape, "vision: empty feature vector")
	}
	if e.OutputDim > 0 && len(vec) != e.OutputDim {
		return nil, core.NewDomainError(core.ModuleVision, core.ErrorCodeShape,
			fmt.Sprintf("vision: expected %d features, got %d", e.OutputDim, len(vec)))
	}
	return vec, nil
}

// ExtractBytes 解码图片字节后提取特征；无法解码时返回 DECODE_ERROR。
func ExtractBytes(ctx context.Context, ex Extractor, data []byte) ([]float64, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return ex.Extract(ctx, img)
}

var _ Extractor = (*ModelExtractor)(nil)
