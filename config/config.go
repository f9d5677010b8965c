package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/petmatch/images"
	"github.com/rushteam/petmatch/pkg/logging"
	"github.com/rushteam/petmatch/service"
	"github.com/rushteam/petmatch/store"
)

// 配置加载顺序：结构体默认值 -> YAML 文件（可选）-> 环境变量（最高优先级）。
//
// 环境变量以 PETMATCH_ 开头，双下划线表示层级：
//
//	PETMATCH_SERVER__ADDR=:9000                -> server.addr
//	PETMATCH_FEATURE_STORE__BACKEND=redis      -> feature_store.backend
//	PETMATCH_MODEL__ENDPOINT=http://tf:8501    -> model.endpoint

// EnvPrefix 环境变量前缀
const EnvPrefix = "PETMATCH_"

// PathEnvVar 指定配置文件路径的环境变量
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths 未指定 CONFIG_PATH 时依次查找的配置文件
var DefaultPaths = []string{"config.yaml", "config.yml"}

// 从环境变量读入时按逗号拆分的切片字段
var sliceFields = []string{"server.cors_origins"}

// Config 应用配置
type Config struct {
	Server       ServerConfig          `koanf:"server"`
	Logging      logging.Config        `koanf:"logging"`
	Catalog      CatalogConfig         `koanf:"catalog"`
	Images       ImagesConfig          `koanf:"images"`
	Model        service.ServiceConfig `koanf:"model"`
	FeatureStore FeatureStoreConfig    `koanf:"feature_store"`
	Recommend    RecommendConfig       `koanf:"recommend"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr string `koanf:"addr"`

	// BaseURL 对外展示图片地址的前缀，{base_url}/images/{name}
	BaseURL string `koanf:"base_url"`

	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimit 每个客户端 IP 在 RateWindow 内允许的请求数，0 表示不限流
	RateLimit  int           `koanf:"rate_limit"`
	RateWindow time.Duration `koanf:"rate_window"`

	// MaxUploadBytes 上传图片大小上限
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// CatalogConfig 宠物目录
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// ImagesConfig 图片源
type ImagesConfig struct {
	// Type dir / minio
	Type  string             `koanf:"type"`
	Dir   string             `koanf:"dir"`
	Minio images.MinioConfig `koanf:"minio"`
}

// FeatureStoreConfig 特征库
type FeatureStoreConfig struct {
	// Backend 持久化后端：badger / redis / none
	Backend string            `koanf:"backend"`
	Path    string            `koanf:"path"`
	Redis   store.RedisConfig `koanf:"redis"`

	// Concurrency 构建时并发提取数
	Concurrency int `koanf:"concurrency"`

	// Warmup 启动时立即构建特征库，否则在第一次匹配请求时构建
	Warmup bool `koanf:"warmup"`
}

// RecommendConfig 推荐链路
type RecommendConfig struct {
	// Threshold 相似度严格大于该值才会被推荐
	Threshold float64 `koanf:"threshold"`

	// TopN 最多返回条数，0 表示不限制
	TopN int `koanf:"top_n"`

	// ImageLimit 每条推荐最多展示的图片数
	ImageLimit int `koanf:"image_limit"`

	// Expr 额外的 CEL 过滤表达式（可选），为 true 时保留
	Expr string `koanf:"expr"`

	// PipelinePath 自定义 Pipeline YAML，为空时使用内置定义
	PipelinePath string `koanf:"pipeline_path"`

	// SchemaPath 编码 Schema 文件（YAML/JSON），为空时使用默认 Schema
	SchemaPath string `koanf:"schema_path"`

	// EncoderCache 按目录版本复用拟合结果（默认关闭，每次请求重新拟合）
	EncoderCache    bool          `koanf:"encoder_cache"`
	EncoderCacheTTL time.Duration `koanf:"encoder_cache_ttl"`
}

// Default 返回默认配置
func Default() *Config {
	breaker := service.DefaultBreakerConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			BaseURL:         "http://localhost:8000",
			CORSOrigins:     []string{"*"},
			RateLimit:       100,
			RateWindow:      time.Minute,
			MaxUploadBytes:  5 << 20,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: logging.DefaultConfig(),
		Catalog: CatalogConfig{
			Path: "input/pets.csv",
		},
		Images: ImagesConfig{
			Type: "dir",
			Dir:  "input/images",
		},
		Model: service.ServiceConfig{
			Type:      service.ServiceTypeTFServing,
			Endpoint:  "http://localhost:8501",
			ModelName: "vgg16",
			Timeout:   30,
			Breaker:   &breaker,
		},
		FeatureStore: FeatureStoreConfig{
			Backend:     "badger",
			Path:        "data/features",
			Concurrency: store.DefaultConcurrency,
			Warmup:      true,
		},
		Recommend: RecommendConfig{
			Threshold:       0.7,
			ImageLimit:      3,
			EncoderCache:    false,
			EncoderCacheTTL: 30 * time.Minute,
		},
	}
}

// Load 加载配置并校验
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey PETMATCH_FEATURE_STORE__BACKEND -> feature_store.backend
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceFields {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("config: set %s: %w", path, err)
		}
	}
	return nil
}

// Validate 检查配置组合是否有效
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, "server.max_upload_bytes must be positive")
	}
	if c.Catalog.Path == "" {
		errs = append(errs, "catalog.path is required")
	}

	switch c.Images.Type {
	case "dir":
		if c.Images.Dir == "" {
			errs = append(errs, "images.dir is required for type dir")
		}
	case "minio":
		if c.Images.Minio.Endpoint == "" || c.Images.Minio.Bucket == "" {
			errs = append(errs, "images.minio.endpoint and images.minio.bucket are required for type minio")
		}
	default:
		errs = append(errs, fmt.Sprintf("images.type must be dir or minio, got %q", c.Images.Type))
	}

	if err := service.ValidateConfig(&c.Model); err != nil {
		errs = append(errs, "model: "+err.Error())
	}

	switch c.FeatureStore.Backend {
	case "badger":
		if c.FeatureStore.Path == "" {
			errs = append(errs, "feature_store.path is required for backend badger")
		}
	case "redis":
		if c.FeatureStore.Redis.Addr == "" {
			errs = append(errs, "feature_store.redis.addr is required for backend redis")
		}
	case "none", "":
	default:
		errs = append(errs, fmt.Sprintf("feature_store.backend must be badger, redis or none, got %q", c.FeatureStore.Backend))
	}

	if c.Recommend.Threshold < -1 || c.Recommend.Threshold > 1 {
		errs = append(errs, "recommend.threshold must be within [-1, 1]")
	}
	if c.Recommend.TopN < 0 {
		errs = append(errs, "recommend.top_n must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
