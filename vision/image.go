// Package vision 把图片转换为深度特征向量：解码、缩放、VGG16 预处理、调用模型服务、展平。
package vision

import (
	"bytes"
	"image"

	// 注册解码器
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/rushteam/petmatch/core"
)

// DefaultInputSize VGG16 的输入边长
const DefaultInputSize = 224

// ImageNetMeans VGG16 "caffe" 预处理使用的 BGR 通道均值
var ImageNetMeans = [3]float64{103.939, 116.779, 123.68}

// Decode 解码图片字节（PNG / JPEG / GIF / BMP / WebP），失败返回 DECODE_ERROR。
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, core.NewDomainError(core.ModuleVision, core.ErrorCodeDecode, "vision: empty image data")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleVision, core.ErrorCodeDecode, "vision: cannot decode image", err)
	}
	return img, nil
}

// Resize 用最近邻插值缩放到 size x size（与 Keras load_img 的默认插值一致）。
func Resize(img image.Image, size int) (*image.NRGBA, error) {
	if img == nil {
		return nil, core.NewDomainError(core.ModuleVision, core.ErrorCodeShape, "vision: nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, core.NewDomainError(core.ModuleVision, core.ErrorCodeShape, "vision: image has zero size")
	}
	if size <= 0 {
		return nil, core.NewDomainError(core.ModuleVision, core.ErrorCodeShape, "vision: target size must be positive")
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

// Preprocess 生成模型输入张量 [size][size][3]（HWC）：
// 缩放后取 RGB，转换为 BGR 并减去 ImageNet 均值，不做缩放。
func Preprocess(img image.Image, size int) ([][][]float64, error) {
	resized, err := Resize(img, size)
	if err != nil {
		return nil, err
	}
	tensor := make([][][]float64, size)
	for y := 0; y < size; y++ {
		row := make([][]float64, size)
		for x := 0; x < size; x++ {
			c := resized.NRGBAAt(x, y)
			row[x] = []float64{
				float64(c.B) - ImageNetMeans[0],
				float64(c.G) - ImageNetMeans[1],
				float64(c.R) - ImageNetMeans[2],
			}
		}
		tensor[y] = row
	}
	return tensor, nil
}
