// Package server 提供 HTTP 接口：推荐、以图匹配、图片访问、健康检查与 Prometheus 指标。
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/petmatch/catalog"
	"github.com/rushteam/petmatch/images"
	"github.com/rushteam/petmatch/match"
	"github.com/rushteam/petmatch/recommend"
	"github.com/rushteam/petmatch/store"
)

// DefaultMaxUploadBytes 上传图片默认大小上限（5 MiB）
const DefaultMaxUploadBytes = 5 << 20

// StoreProvider 返回就绪的特征库；特征库尚在构建时阻塞等待。
type StoreProvider interface {
	Get(ctx context.Context) (*store.FeatureStore, error)
}

// Options HTTP 层配置
type Options struct {
	CORSOrigins    []string
	RateLimit      int
	RateWindow     time.Duration
	MaxUploadBytes int64
}

// Server 持有各服务的只读句柄，处理函数之间不共享请求级状态。
type Server struct {
	opts      Options
	catalog   *catalog.Catalog
	images    images.Source
	recommend *recommend.Service
	match     *match.Service
	stores    StoreProvider
	router    chi.Router
}

// New 创建 Server 并注册路由
func New(opts Options, cat *catalog.Catalog, src images.Source, rec *recommend.Service, m *match.Service, stores StoreProvider) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	s := &Server{
		opts:      opts,
		catalog:   cat,
		images:    src,
		recommend: rec,
		match:     m,
		stores:    stores,
	}
	s.router = s.routes()
	return s
}

// Handler 返回根 http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(httprate.Limit(s.opts.RateLimit, s.opts.RateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeDetail(w, http.StatusTooManyRequests, "rate limit exceeded")
				}),
			))
		}
		r.Post("/recommend-pets", s.handleRecommend)
		r.Post("/find-matching-pets", s.handleMatch)
		r.Get("/images/{name}", s.handleImage)
	})
	return r
}
