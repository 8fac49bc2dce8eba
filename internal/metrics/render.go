package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	renderOnce sync.Once

	renderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvstudio",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "PDF 渲染耗时分布（秒），含子进程调用。",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"layout", "outcome"},
	)

	renderTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvstudio",
			Subsystem: "render",
			Name:      "total",
			Help:      "PDF 渲染次数，按布局与结果分类。",
		},
		[]string{"layout", "outcome"},
	)
)

// ObserveRender 记录一次渲染的布局、结果与耗时。
func ObserveRender(layout, outcome string, elapsed time.Duration) {
	renderOnce.Do(func() {
		prometheus.MustRegister(renderDuration, renderTotal)
	})
	labels := prometheus.Labels{"layout": layout, "outcome": outcome}
	renderDuration.With(labels).Observe(elapsed.Seconds())
	renderTotal.With(labels).Inc()
}
