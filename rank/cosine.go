package rank

import "math"

// CosineSimilarity 计算余弦相似度：dot(a, b) / (‖a‖ * ‖b‖)。
//
// 约定：
//   - 任一向量范数为 0 时返回 0（不会除零，不会产生 NaN）
//   - 长度不一致时返回 0
//   - 结果截断到 [-1, 1]，消除浮点误差
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(sim):
		return 0
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	}
	return sim
}
