package feature

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/petmatch/core"
)

// Schema 描述表格编码使用哪些列，对应 schema.yaml / schema.json：
//
//	numeric: ["Age(months)", "Fee"]
//	categorical: ["Type", "Gender", "MaturitySize", "FurLength", "Color1_Name", "Fee"]
type Schema struct {
	// Numeric 做 z-score 的列（按顺序）
	Numeric []string `yaml:"numeric" json:"numeric"`
	// Categorical 做 one-hot 的列（按顺序）
	Categorical []string `yaml:"categorical" json:"categorical"`
}

// DefaultSchema 返回默认编码 Schema
func DefaultSchema() Schema {
	return Schema{
		Numeric:     append([]string(nil), DefaultNumeric...),
		Categorical: append([]string(nil), DefaultCategorical...),
	}
}

// 可参与编码的列：目录记录与查询条件都能提供的属性列。
// Name、image_paths 不在查询条件中。
var encodableColumns = map[string]bool{
	core.FieldType:         true,
	core.FieldAge:          true,
	core.FieldGender:       true,
	core.FieldMaturitySize: true,
	core.FieldFurLength:    true,
	core.FieldFee:          true,
	core.FieldColor:        true,
	core.FieldBreed:        true,
	core.FieldHealth:       true,
}

// Validate 检查 Schema 非空且列名可编码
func (s Schema) Validate() error {
	if len(s.Numeric)+len(s.Categorical) == 0 {
		return fmt.Errorf("feature: schema has no columns")
	}
	for _, cols := range [][]string{s.Numeric, s.Categorical} {
		for _, c := range cols {
			if !encodableColumns[c] {
				return fmt.Errorf("feature: schema column %q cannot be encoded", c)
			}
		}
	}
	return nil
}

// ColumnSet 能报告自己拥有哪些列，目录实现了它
type ColumnSet interface {
	HasColumn(name string) bool
}

// CheckColumns 检查 Schema 中的每一列目录都能提供，缺失时返回 CONFIGURATION_ERROR。
// 启动时调用，避免每次推荐请求才报错。
func (s Schema) CheckColumns(cols ColumnSet) error {
	for _, group := range [][]string{s.Numeric, s.Categorical} {
		for _, c := range group {
			if !cols.HasColumn(c) {
				return core.NewConfigurationError(core.ModuleEncoder, "CheckColumns", c)
			}
		}
	}
	return nil
}

// Encoder 按 Schema 创建编码器
func (s Schema) Encoder() *TabularEncoder {
	return &TabularEncoder{Numeric: s.Numeric, Categorical: s.Categorical}
}

// LoadSchema 从文件加载 Schema：.json 按 JSON 解析，其余按 YAML
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("feature: read schema: %w", err)
	}

	var s Schema
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return Schema{}, fmt.Errorf("feature: parse schema %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}
