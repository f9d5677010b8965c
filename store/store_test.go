package store

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/rushteam/petmatch/core"
)

// memSource 是内存图片源
type memSource struct {
	files map[string][]byte
}

func (s *memSource) Name() string { return "mem" }

func (s *memSource) List(context.Context) ([]string, error) {
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	data, ok := s.files[name]
	if !ok {
		return nil, core.NewDomainError(core.ModuleImages, core.ErrorCodeNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// grayExtractor 把图片左上角像素的灰度作为 2 维特征
type grayExtractor struct {
	calls atomic.Int32
}

func (e *grayExtractor) Extract(_ context.Context, img image.Image) ([]float64, error) {
	e.calls.Add(1)
	r, g, b, _ := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
	return []float64{float64(r>>8) + 1, float64(g>>8+b>>8) + 1}, nil
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFeatureStore_Add(t *testing.T) {
	fs := NewFeatureStore()
	if err := fs.Add("a.jpg", []float64{1, 2, 3}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tests := []struct {
		name string
		id   string
		vec  []float64
	}{
		{"duplicate id", "a.jpg", []float64{1, 2, 3}},
		{"dimension mismatch", "b.jpg", []float64{1, 2}},
		{"empty vector", "c.jpg", nil},
		{"empty id", "", []float64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fs.Add(tt.id, tt.vec); !core.IsInvalidInput(err) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
	if fs.Len() != 1 || fs.Dimension() != 3 {
		t.Errorf("Len = %d, Dimension = %d", fs.Len(), fs.Dimension())
	}
	if v, ok := fs.Get("a.jpg"); !ok || v[2] != 3 {
		t.Errorf("Get = %v, %v", v, ok)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	vecs := [][]float64{
		{0, 0, 0, 0},
		{1.5, -2.25, math.MaxFloat64, math.SmallestNonzeroFloat64},
		{math.Copysign(0, -1), math.Inf(1), math.NaN()},
		{},
	}
	for _, vec := range vecs {
		got, err := DecodeVector(EncodeVector(vec))
		if err != nil {
			t.Fatalf("DecodeVector: %v", err)
		}
		if len(got) != len(vec) {
			t.Fatalf("len = %d, want %d", len(got), len(vec))
		}
		for i := range vec {
			if math.Float64bits(got[i]) != math.Float64bits(vec[i]) {
				t.Errorf("[%d] bits differ: %v vs %v", i, got[i], vec[i])
			}
		}
	}
	if _, err := DecodeVector([]byte{1, 2, 3}); !errors.Is(err, core.ErrFeatureStoreCorrupt) {
		t.Errorf("err = %v, want corrupt", err)
	}
}

func TestBadgerPersister(t *testing.T) {
	p, err := OpenBadger("", true)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	if _, err := p.Load(ctx); !core.IsNotFound(err) {
		t.Fatalf("empty Load err = %v, want NOT_FOUND", err)
	}

	entries := []core.FeatureEntry{
		{ID: "cat_001.jpg", Vector: []float64{0.1, 0.2, 0.3}},
		{ID: "cat_002.jpg", Vector: []float64{0, 0, 0}},
		{ID: "dog_001.jpg", Vector: []float64{-1e-300, 7, 1e300}},
	}
	if err := p.Persist(ctx, entries); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	assertEntries(t, p, entries)

	// 覆盖写入更短的列表
	if err := p.Persist(ctx, entries[:1]); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	assertEntries(t, p, entries[:1])
}

func TestBadgerPersisterCorrupt(t *testing.T) {
	p, err := OpenBadger("", true)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	if err := p.Persist(ctx, []core.FeatureEntry{{ID: "a.jpg", Vector: []float64{1}}}); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := p.db.DropPrefix([]byte(core.DatasetFeatures + "/")); err != nil {
		t.Fatal(err)
	}
	_, err = p.Load(ctx)
	if !errors.Is(err, core.ErrFeatureStoreCorrupt) {
		t.Errorf("err = %v, want corrupt", err)
	}
}

func TestRedisPersister(t *testing.T) {
	addr := os.Getenv("PETMATCH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PETMATCH_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	p, err := OpenRedis(ctx, RedisConfig{Addr: addr, Prefix: "petmatch:test:"})
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer p.Close()
	p.client.Del(ctx, p.key(core.DatasetFilePaths), p.key(core.DatasetFeatures))

	if _, err := p.Load(ctx); !core.IsNotFound(err) {
		t.Fatalf("empty Load err = %v, want NOT_FOUND", err)
	}
	entries := []core.FeatureEntry{
		{ID: "cat_001.jpg", Vector: []float64{0.1, 0.2}},
		{ID: "cat_002.jpg", Vector: []float64{0, 0}},
	}
	if err := p.Persist(ctx, entries); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	assertEntries(t, p, entries)
}

func assertEntries(t *testing.T, p core.FeatureStorePersister, want []core.FeatureEntry) {
	t.Helper()
	got, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("[%d] id = %q, want %q", i, got[i].ID, want[i].ID)
		}
		if !bytes.Equal(EncodeVector(got[i].Vector), EncodeVector(want[i].Vector)) {
			t.Errorf("[%d] vector = %v, want %v", i, got[i].Vector, want[i].Vector)
		}
	}
}

func TestBuilder_Build(t *testing.T) {
	src := &memSource{files: map[string][]byte{
		"a.jpg":      pngBytes(t, color.NRGBA{R: 10, A: 255}),
		"b.PNG":      pngBytes(t, color.NRGBA{G: 20, A: 255}),
		"broken.jpg": []byte("not an image"),
		"notes.txt":  []byte("ignored"),
		"c.jpeg":     pngBytes(t, color.NRGBA{B: 30, A: 255}),
	}}
	b := &Builder{Source: src, Extractor: &grayExtractor{}, Concurrency: 2}

	fs, report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ids, vecs := fs.All()
	wantIDs := []string{"a.jpg", "b.PNG", "c.jpeg"}
	if len(ids) != len(wantIDs) {
		t.Fatalf("ids = %q, want %q", ids, wantIDs)
	}
	for i := range wantIDs {
		if ids[i] != wantIDs[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], wantIDs[i])
		}
	}
	if vecs[0][0] != 11 {
		t.Errorf("a.jpg vector = %v", vecs[0])
	}

	if report.Listed != 4 || report.Extracted != 3 || len(report.Skipped) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Skipped[0].Name != "broken.jpg" || !core.IsDecodeError(report.Skipped[0].Err) {
		t.Errorf("skipped = %+v", report.Skipped[0])
	}
	if !core.IsExtractionFailure(report.Err()) {
		t.Errorf("report.Err() = %v, want EXTRACTION_FAILURE", report.Err())
	}
}

func TestBuilder_Cancelled(t *testing.T) {
	src := &memSource{files: map[string][]byte{"a.jpg": pngBytes(t, color.Black)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := (&Builder{Source: src, Extractor: &grayExtractor{}}).Build(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// memPersister 记录 Persist 调用
type memPersister struct {
	entries  []core.FeatureEntry
	loadErr  error
	persists int
}

func (p *memPersister) Name() string { return "mem" }
func (p *memPersister) Persist(_ context.Context, entries []core.FeatureEntry) error {
	p.persists++
	p.entries = entries
	p.loadErr = nil
	return nil
}
func (p *memPersister) Load(context.Context) ([]core.FeatureEntry, error) {
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.entries, nil
}
func (p *memPersister) Close() error { return nil }

func TestProvider(t *testing.T) {
	src := &memSource{files: map[string][]byte{
		"a.jpg": pngBytes(t, color.NRGBA{R: 10, A: 255}),
		"b.jpg": pngBytes(t, color.NRGBA{R: 20, A: 255}),
	}}

	tests := []struct {
		name         string
		persister    *memPersister
		wantCalls    int32
		wantPersists int
		wantLen      int
	}{
		{
			name:         "not found falls back to build",
			persister:    &memPersister{loadErr: core.ErrFeatureStoreNotFound},
			wantCalls:    2,
			wantPersists: 1,
			wantLen:      2,
		},
		{
			name:         "corrupt falls back to build",
			persister:    &memPersister{loadErr: core.ErrFeatureStoreCorrupt},
			wantCalls:    2,
			wantPersists: 1,
			wantLen:      2,
		},
		{
			name:         "duplicate ids in persisted data rebuild",
			persister:    &memPersister{entries: []core.FeatureEntry{{ID: "x", Vector: []float64{1}}, {ID: "x", Vector: []float64{1}}}},
			wantCalls:    2,
			wantPersists: 1,
			wantLen:      2,
		},
		{
			name:      "persisted store is used",
			persister: &memPersister{entries: []core.FeatureEntry{{ID: "x.jpg", Vector: []float64{1, 2}}}},
			wantLen:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &grayExtractor{}
			p := NewProvider(tt.persister, &Builder{Source: src, Extractor: ex})
			fs, err := p.Get(context.Background())
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			again, _ := p.Get(context.Background())
			if again != fs {
				t.Error("Get should return the same store")
			}
			if fs.Len() != tt.wantLen {
				t.Errorf("Len = %d, want %d", fs.Len(), tt.wantLen)
			}
			if ex.calls.Load() != tt.wantCalls {
				t.Errorf("extractions = %d, want %d", ex.calls.Load(), tt.wantCalls)
			}
			if tt.persister.persists != tt.wantPersists {
				t.Errorf("persists = %d, want %d", tt.persister.persists, tt.wantPersists)
			}
		})
	}
}

func TestProviderWithoutPersister(t *testing.T) {
	src := &memSource{files: map[string][]byte{"a.jpg": pngBytes(t, color.White)}}
	p := NewProvider(nil, &Builder{Source: src, Extractor: &grayExtractor{}})
	fs, err := p.Get(context.Background())
	if err != nil || fs.Len() != 1 {
		t.Fatalf("Get = %v, %v", fs, err)
	}
}

func TestProviderRebuildSkipsLoad(t *testing.T) {
	src := &memSource{files: map[string][]byte{"a.jpg": pngBytes(t, color.White)}}
	persister := &memPersister{entries: []core.FeatureEntry{{ID: "old.jpg", Vector: []float64{1}}}}
	p := NewProvider(persister, &Builder{Source: src, Extractor: &grayExtractor{}})
	p.Rebuild = true

	fs, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := fs.Get("old.jpg"); ok {
		t.Error("persisted entries should be ignored on rebuild")
	}
	if fs.Len() != 1 || persister.persists != 1 || persister.entries[0].ID != "a.jpg" {
		t.Errorf("len = %d, persists = %d, entries = %v", fs.Len(), persister.persists, persister.entries)
	}
}

// flakyExtractor 在 down 为 true 时模拟模型服务不可用
type flakyExtractor struct {
	grayExtractor
	down atomic.Bool
}

func (e *flakyExtractor) Extract(ctx context.Context, img image.Image) ([]float64, error) {
	if e.down.Load() {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable, "model server down")
	}
	return e.grayExtractor.Extract(ctx, img)
}

func TestProviderRetriesAfterFailedBuild(t *testing.T) {
	src := &memSource{files: map[string][]byte{
		"a.jpg": pngBytes(t, color.NRGBA{R: 10, A: 255}),
		"b.jpg": pngBytes(t, color.NRGBA{R: 20, A: 255}),
	}}
	ex := &flakyExtractor{}
	ex.down.Store(true)
	persister := &memPersister{loadErr: core.ErrFeatureStoreNotFound}
	p := NewProvider(persister, &Builder{Source: src, Extractor: ex})

	fs, err := p.Get(context.Background())
	if !core.IsUnavailable(err) {
		t.Fatalf("Get during outage = %v, %v; want UNAVAILABLE", fs, err)
	}
	if !errors.Is(err, core.NewDomainError(core.ModuleStore, core.ErrorCodeExtractionFailure, "")) {
		t.Errorf("outage error should carry the skipped files: %v", err)
	}
	if persister.persists != 0 {
		t.Errorf("failed build persisted %d times", persister.persists)
	}

	ex.down.Store(false)
	fs, err = p.Get(context.Background())
	if err != nil || fs.Len() != 2 {
		t.Fatalf("Get after recovery = %v, %v", fs, err)
	}
	if persister.persists != 1 {
		t.Errorf("persists = %d, want 1", persister.persists)
	}

	again, err := p.Get(context.Background())
	if err != nil || again != fs {
		t.Errorf("successful store should be reused, got %p, %v", again, err)
	}
}

func TestProviderEmptySourceIsReady(t *testing.T) {
	p := NewProvider(nil, &Builder{Source: &memSource{}, Extractor: &grayExtractor{}})
	fs, err := p.Get(context.Background())
	if err != nil || fs.Len() != 0 {
		t.Fatalf("Get = %v, %v", fs, err)
	}
}

// failingListSource 列举失败
type failingListSource struct{ memSource }

func (failingListSource) List(context.Context) ([]string, error) {
	return nil, errors.New("listing failed")
}

func TestProviderListingFailureUnavailable(t *testing.T) {
	p := NewProvider(nil, &Builder{Source: &failingListSource{}, Extractor: &grayExtractor{}})
	if _, err := p.Get(context.Background()); !core.IsUnavailable(err) {
		t.Fatalf("Get = %v, want UNAVAILABLE", err)
	}
}
