package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики цикла мониторинга
// ============================================================
//
// Использование:
// - Grafana дашборды латентности оценки и глубины очередей
// - Alertmanager при недоступности источников данных

// ============ Метрики латентности ============

// AssessmentDuration - полное время оценки сущности: сбор снимка,
// движки, агрегация, запись
var AssessmentDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "riskmonitor",
		Subsystem: "monitor",
		Name:      "assessment_duration_seconds",
		Help:      "End to end time to assess one entity in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
	[]string{"entity_type"},
)

// SourceLatency - латентность health-проверки источника
var SourceLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "riskmonitor",
		Subsystem: "sources",
		Name:      "health_check_latency_ms",
		Help:      "Data source health check latency in milliseconds",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
	},
	[]string{"source"},
)

// ============ Счётчики событий ============

// AssessmentsTotal - количество оценок по результатам
var AssessmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskmonitor",
		Subsystem: "monitor",
		Name:      "assessments_total",
		Help:      "Total number of entity assessments",
	},
	[]string{"entity_type", "result"}, // result: ok, collect_error, aggregate_error, save_error, alert_error
)

// QueueDropped - задания, не поместившиеся в очередь шарда
var QueueDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskmonitor",
		Subsystem: "monitor",
		Name:      "queue_dropped_total",
		Help:      "Number of assessment jobs dropped on full shard queue",
	},
	[]string{"shard"},
)

// DegradedAssessments - оценки с выпавшими факторами
var DegradedAssessments = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskmonitor",
		Subsystem: "monitor",
		Name:      "degraded_assessments_total",
		Help:      "Number of assessments produced with missing factors",
	},
	[]string{"entity_type"},
)

// ============ Метрики состояния ============

// TrackedEntities - количество сущностей под мониторингом
var TrackedEntities = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskmonitor",
		Subsystem: "monitor",
		Name:      "tracked_entities",
		Help:      "Current number of monitored entities",
	},
)

// ShardQueueDepth - глубина очереди каждого шарда
var ShardQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "riskmonitor",
		Subsystem: "monitor",
		Name:      "shard_queue_depth",
		Help:      "Current depth of shard job queue",
	},
	[]string{"shard"},
)

// SourceUp - доступность источника данных (1=ok, 0=down)
var SourceUp = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "riskmonitor",
		Subsystem: "sources",
		Name:      "up",
		Help:      "Data source availability (1=healthy, 0=unhealthy)",
	},
	[]string{"source"},
)

// CompositeScore - распределение композитных скоров
var CompositeScore = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "riskmonitor",
		Subsystem: "monitor",
		Name:      "composite_score",
		Help:      "Distribution of composite risk scores",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	},
	[]string{"entity_type", "severity"},
)

// ============ Вспомогательные функции ============

// RecordAssessment записывает результат одной оценки
func RecordAssessment(entityType, result string, durationSeconds float64) {
	AssessmentsTotal.WithLabelValues(entityType, result).Inc()
	AssessmentDuration.WithLabelValues(entityType).Observe(durationSeconds)
}

// RecordCompositeScore записывает композитный скор
func RecordCompositeScore(entityType, severity string, score float64, degraded bool) {
	CompositeScore.WithLabelValues(entityType, severity).Observe(score)
	if degraded {
		DegradedAssessments.WithLabelValues(entityType).Inc()
	}
}

// RecordQueueDrop записывает потерянное задание
func RecordQueueDrop(shard string) {
	QueueDropped.WithLabelValues(shard).Inc()
}

// UpdateSourceStatus обновляет доступность источника
func UpdateSourceStatus(source string, healthy bool, latencyMs float64) {
	if healthy {
		SourceUp.WithLabelValues(source).Set(1)
	} else {
		SourceUp.WithLabelValues(source).Set(0)
	}
	SourceLatency.WithLabelValues(source).Observe(latencyMs)
}
