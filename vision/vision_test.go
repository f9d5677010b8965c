package vision

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"golang.org/x/image/draw"

	"github.com/rushteam/petmatch/core"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	data := encodePNG(t, solid(4, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("bounds = %v", b)
	}

	for name, bad := range map[string][]byte{
		"empty": nil,
		"text":  []byte("this is not an image"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(bad)
			if !core.IsDecodeError(err) {
				t.Errorf("err = %v, want DECODE_ERROR", err)
			}
		})
	}
}

func TestPreprocess(t *testing.T) {
	img := solid(50, 30, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	tensor, err := Preprocess(img, DefaultInputSize)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if len(tensor) != 224 || len(tensor[0]) != 224 || len(tensor[0][0]) != 3 {
		t.Fatalf("shape = %dx%dx%d", len(tensor), len(tensor[0]), len(tensor[0][0]))
	}
	// BGR 顺序减均值
	want := []float64{50 - 103.939, 100 - 116.779, 200 - 123.68}
	for _, px := range [][]float64{tensor[0][0], tensor[223][223], tensor[100][17]} {
		for c := range want {
			if math.Abs(px[c]-want[c]) > 1e-9 {
				t.Errorf("pixel = %v, want %v", px, want)
			}
		}
	}
}

func TestPreprocessShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		size int
	}{
		{"zero sized", image.NewNRGBA(image.Rect(0, 0, 0, 0)), 224},
		{"non-positive size", solid(2, 2, color.Black), 0},
		{"nil image", nil, 224},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Preprocess(tt.img, tt.size)
			if !core.IsShapeError(err) {
				t.Errorf("err = %v, want SHAPE_ERROR", err)
			}
		})
	}
}

type stubModel struct {
	out  [][]float64
	err  error
	reqs []*core.MLPredictRequest
}

func (s *stubModel) Predict(_ context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &core.MLPredictResponse{Predictions: s.out}, nil
}
func (s *stubModel) Health(context.Context) error { return nil }
func (s *stubModel) Close() error                 { return nil }

func TestModelExtractor(t *testing.T) {
	img := solid(8, 8, color.White)
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		model := &stubModel{out: [][]float64{{1, 2, 3}}}
		ex := &ModelExtractor{Model: model, InputSize: 4, OutputDim: 3}
		vec, err := ex.Extract(ctx, img)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(vec) != 3 || vec[2] != 3 {
			t.Errorf("vec = %v", vec)
		}
		tensor, ok := model.reqs[0].Instances[0].([][][]float64)
		if !ok || len(tensor) != 4 {
			t.Errorf("instance = %T", model.reqs[0].Instances[0])
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		ex := &ModelExtractor{Model: &stubModel{out: [][]float64{{1, 2}}}, InputSize: 4, OutputDim: 3}
		_, err := ex.Extract(ctx, img)
		if !core.IsShapeError(err) {
			t.Errorf("err = %v, want SHAPE_ERROR", err)
		}
	})

	t.Run("model unavailable", func(t *testing.T) {
		unavailable := core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable, "down")
		ex := &ModelExtractor{Model: &stubModel{err: unavailable}, InputSize: 4}
		_, err := ex.Extract(ctx, img)
		if !core.IsUnavailable(err) {
			t.Errorf("err = %v, want UNAVAILABLE", err)
		}
	})

	t.Run("undecodable bytes", func(t *testing.T) {
		ex := NewModelExtractor(&stubModel{})
		_, err := ExtractBytes(ctx, ex, []byte("not an image"))
		if !core.IsDecodeError(err) {
			t.Errorf("err = %v, want DECODE_ERROR", err)
		}
	})
}
