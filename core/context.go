package core

import "context"

// RecommendContext 承载一次推荐请求的查询条件与编码结果，贯穿整个 Pipeline 透传。
// 它是请求级对象，不在请求之间共享。
type RecommendContext struct {
	RequestID string

	// Preferences 原始查询条件，过滤节点用它做逐字段比较
	Preferences *Preferences

	// QueryVector 查询条件在本次拟合的编码空间中的向量
	QueryVector []float64

	// Params 请求级扩展参数（CEL 表达式可通过 rctx.params 访问）
	Params map[string]any
}

// Preference 读取查询字段，Preferences 为空时返回 false。
func (rctx *RecommendContext) Preference(field string) (any, bool) {
	if rctx == nil || rctx.Preferences == nil {
		return nil, false
	}
	return rctx.Preferences.Attr(field)
}

type requestIDKey struct{}

// WithRequestID 把请求 ID 放入 context，HTTP 中间件在入口处调用。
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext 读取请求 ID，没有时返回空串。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
