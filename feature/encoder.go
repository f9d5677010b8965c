package feature

import (
	"sort"
	"strconv"
)

// OneHotEncoder One-Hot 编码（独热编码）
// 将类别特征转换为二进制向量，每个类别对应一个维度。
// 类别表由 FitOneHotEncoder 从目录观测值拟合，按字典序排列。
type OneHotEncoder struct {
	Categories []string // 类别列表（有序）
	index      map[string]int
}

// NewOneHotEncoder 用给定类别列表创建编码器（顺序即维度顺序）
func NewOneHotEncoder(categories []string) *OneHotEncoder {
	e := &OneHotEncoder{
		Categories: categories,
		index:      make(map[string]int, len(categories)),
	}
	for i, c := range categories {
		if _, ok := e.index[c]; !ok {
			e.index[c] = i
		}
	}
	return e
}

// FitOneHotEncoder 从观测值拟合：去重后按字典序排列
func FitOneHotEncoder(values []string) *OneHotEncoder {
	seen := make(map[string]struct{}, len(values))
	cats := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		cats = append(cats, v)
	}
	sort.Strings(cats)
	return NewOneHotEncoder(cats)
}

// Dim 返回编码维度（类别数）
func (e *OneHotEncoder) Dim() int {
	return len(e.Categories)
}

// Encode 编码单个值；未见过的类别编码为全 0
func (e *OneHotEncoder) Encode(value string) []float64 {
	out := make([]float64, e.Dim())
	e.EncodeTo(out, value)
	return out
}

// EncodeTo 把编码写入 dst（长度需为 Dim），dst 需预先清零
func (e *OneHotEncoder) EncodeTo(dst []float64, value string) {
	if i, ok := e.index[value]; ok {
		dst[i] = 1.0
	}
}

// CategoryKey 把字段值转为类别键。
// 数值按最短表示格式化，保证 100 与 100.0 落在同一类别。
func CategoryKey(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return "", false
	}
}
