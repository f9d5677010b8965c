package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rushteam/petmatch/pipeline"
)

// DefaultPipelineName 内置推荐链路名称
const DefaultPipelineName = "recommend"

// DefaultPipelineConfig 返回内置的推荐链路定义：
//
//	rank.similarity（threshold） -> filter（attribute_match [+ expr]） -> rerank.images -> rerank.topn
func DefaultPipelineConfig(rc RecommendConfig, baseURL string) *pipeline.Config {
	filters := []interface{}{
		map[string]interface{}{"type": "attribute_match"},
	}
	if rc.Expr != "" {
		filters = append(filters, map[string]interface{}{"type": "expr", "expr": rc.Expr})
	}

	cfg := &pipeline.Config{}
	cfg.Pipeline.Name = DefaultPipelineName
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{
		{Type: "rank.similarity", Config: map[string]interface{}{"threshold": rc.Threshold}},
		{Type: "filter", Config: map[string]interface{}{"filters": filters}},
		{Type: "rerank.images", Config: map[string]interface{}{"limit": rc.ImageLimit, "base_url": baseURL}},
		{Type: "rerank.topn", Config: map[string]interface{}{"n": rc.TopN}},
	}
	return cfg
}

// LoadPipelineConfig 读取推荐链路定义：配置了 PipelinePath 时从文件加载（.json 按 JSON 解析，其余按 YAML），
// 否则使用内置定义。文件中 rerank.images 未配置 base_url 时补上 baseURL。
func LoadPipelineConfig(rc RecommendConfig, baseURL string) (*pipeline.Config, error) {
	if rc.PipelinePath == "" {
		return DefaultPipelineConfig(rc, baseURL), nil
	}

	var (
		cfg *pipeline.Config
		err error
	)
	if strings.EqualFold(filepath.Ext(rc.PipelinePath), ".json") {
		cfg, err = pipeline.LoadFromJSON(rc.PipelinePath)
	} else {
		cfg, err = pipeline.LoadFromYAML(rc.PipelinePath)
	}
	if err != nil {
		return nil, fmt.Errorf("config: load pipeline %s: %w", rc.PipelinePath, err)
	}

	for i := range cfg.Pipeline.Nodes {
		nc := &cfg.Pipeline.Nodes[i]
		if nc.Type != "rerank.images" {
			continue
		}
		if nc.Config == nil {
			nc.Config = map[string]interface{}{}
		}
		if _, ok := nc.Config["base_url"]; !ok {
			nc.Config["base_url"] = baseURL
		}
	}
	return cfg, nil
}

// BuildPipeline 校验节点类型均已注册后，用注册表构建 Pipeline。
func BuildPipeline(cfg *pipeline.Config) (*pipeline.Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config: pipeline config is nil")
	}
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg.BuildPipeline(DefaultFactory())
}
