package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var aiCallTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "talenthub",
		Subsystem: "ai",
		Name:      "calls_total",
		Help:      "生成式 AI 调用总数，按操作与结果分类。",
	},
	[]string{"operation", "outcome"},
)

// ObserveAICall 记录一次 AI 调用结果。
// outcome 为 "ok" 或失败分类（rate_limited / transient_unavailable / malformed_response），
// 便于把 AI 供应商故障与数据库故障分开诊断。
func ObserveAICall(operation, outcome string) {
	aiCallTotal.WithLabelValues(operation, outcome).Inc()
}
