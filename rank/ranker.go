package rank

import (
	"fmt"
	"sort"

	"github.com/rushteam/petmatch/core"
)

// Scored 是一次排序的单条结果：候选下标 + 相似度分数。
// 名次即其在返回切片中的位置。
type Scored struct {
	Index int
	Score float64
}

// Options 排序选项
type Options struct {
	// TopK 截断数量，<= 0 表示不截断
	TopK int

	// Threshold 最低分数（严格大于），仅在 HasThreshold 为 true 时生效
	Threshold    float64
	HasThreshold bool
}

// Option 排序选项
type Option func(*Options)

// WithTopK 只保留前 k 个结果
func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

// WithThreshold 只保留分数严格大于 t 的结果，在 TopK 截断之前生效
func WithThreshold(t float64) Option {
	return func(o *Options) {
		o.Threshold = t
		o.HasThreshold = true
	}
}

// Rank 计算查询向量与每个候选向量的余弦相似度，并按分数降序返回。
//
// 推荐服务与匹配服务共用此函数：
//   - 每个候选独立计算（逐对 1x1 相似度），不依赖批量矩阵运算
//   - 分数相同时保持原始顺序（先出现的下标在前）
//   - 先按阈值过滤，再做 TopK 截断
//
// 所有向量长度必须与查询向量一致，否则返回 INVALID_INPUT 错误。
func Rank(query []float64, candidates [][]float64, opts ...Option) ([]Scored, error) {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		if len(c) != len(query) {
			return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidInput,
				fmt.Sprintf("rank: candidate %d has length %d, query has length %d", i, len(c), len(query)))
		}
		scores[i] = CosineSimilarity(query, c)
	}
	return Order(scores, opts...), nil
}

// Order 对已计算好的分数排序：稳定降序、阈值过滤、TopK 截断。
func Order(scores []float64, opts ...Option) []Scored {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}

	out := make([]Scored, 0, len(scores))
	for i, s := range scores {
		if o.HasThreshold && !(s > o.Threshold) {
			continue
		}
		out = append(out, Scored{Index: i, Score: s})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if o.TopK > 0 && len(out) > o.TopK {
		out = out[:o.TopK]
	}
	return out
}
