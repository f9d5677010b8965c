// Package metrics 定义进程内的 Prometheus 指标，由 /metrics 暴露。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petmatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "petmatch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// 图片特征提取
	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "petmatch_extraction_duration_seconds",
			Help:    "Image feature extraction latency in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	// 特征库
	StoreBuildFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petmatch_store_build_files_total",
			Help: "Image files processed while building the feature store",
		},
		[]string{"outcome"}, // "ok", "skipped"
	)

	StoreEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "petmatch_store_entries",
			Help: "Number of entries in the loaded feature store",
		},
	)

	StoreLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petmatch_store_loads_total",
			Help: "Feature store initializations by source",
		},
		[]string{"source"}, // "persisted", "rebuilt", "failed"
	)

	// 推荐与匹配
	RecommendResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "petmatch_recommend_results",
			Help:    "Number of recommendations returned per request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	MatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petmatch_match_requests_total",
			Help: "Image matching requests by outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveHTTP 记录一次 HTTP 请求
func ObserveHTTP(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveExtraction 记录一次特征提取耗时
func ObserveExtraction(d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ExtractionDuration.WithLabelValues(status).Observe(d.Seconds())
}
