package feature

import (
	"math"
)

// ZScoreNormalizer Z-score 标准化（Standardization）
// 公式: z = (x - μ) / σ
// 特点: 均值变为 0，标准差变为 1；σ 为 0 时只做中心化（缩放系数取 1）。
type ZScoreNormalizer struct {
	Mean map[string]float64 // 特征均值
	Std  map[string]float64 // 特征标准差（总体标准差）
}

// NewZScoreNormalizer 创建 Z-score 标准化器
func NewZScoreNormalizer(mean, std map[string]float64) *ZScoreNormalizer {
	return &ZScoreNormalizer{
		Mean: mean,
		Std:  std,
	}
}

// FitZScoreNormalizer 按列拟合均值与总体标准差
func FitZScoreNormalizer(columns map[string][]float64) *ZScoreNormalizer {
	n := &ZScoreNormalizer{
		Mean: make(map[string]float64, len(columns)),
		Std:  make(map[string]float64, len(columns)),
	}
	for k, values := range columns {
		stats := ComputeStatistics(values)
		n.Mean[k] = stats.Mean
		n.Std[k] = stats.Std
	}
	return n
}

// Normalize 标准化特征
func (n *ZScoreNormalizer) Normalize(features map[string]float64) map[string]float64 {
	normalized := make(map[string]float64, len(features))
	for k, v := range features {
		normalized[k] = n.NormalizeValueWithKey(k, v)
	}
	return normalized
}

// NormalizeValueWithKey 标准化单个值（指定特征名）
func (n *ZScoreNormalizer) NormalizeValueWithKey(key string, value float64) float64 {
	mean := n.Mean[key]
	std := n.Std[key]
	if std > 0 {
		return (value - mean) / std
	}
	return value - mean
}

// FeatureStatistics 特征统计信息
type FeatureStatistics struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// ComputeStatistics 计算均值、总体标准差与极值
func ComputeStatistics(values []float64) *FeatureStatistics {
	if len(values) == 0 {
		return &FeatureStatistics{}
	}

	stats := &FeatureStatistics{Min: values[0], Max: values[0]}
	sum := 0.0
	for _, v := range values {
		sum += v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	stats.Mean = sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - stats.Mean) * (v - stats.Mean)
	}
	stats.Std = math.Sqrt(variance / float64(len(values)))

	return stats
}
