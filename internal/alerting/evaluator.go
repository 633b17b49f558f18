package alerting

import (
	"go.uber.org/zap"

	"riskmonitor/internal/models"
)

// evaluator.go - проверка порогов против последней оценки риска
//
// Назначение:
// Для каждого включенного порога пользователя берет текущее значение
// метрики из оценки и классифицирует нарушение. Специфичный для
// сущности порог вытесняет глобальный порог той же метрики.

// ThresholdSource - источник порогов для сущности.
// Специфичные пороги идут раньше глобальных.
type ThresholdSource interface {
	ListForEntity(userAddress, entityType, entityID string) ([]*models.AlertThreshold, error)
}

// Outcome - результат проверки одного порога
type Outcome struct {
	Threshold *models.AlertThreshold
	Current   float64
	Breached  bool
}

type Evaluator struct {
	thresholds ThresholdSource
	logger     *zap.Logger
}

func NewEvaluator(thresholds ThresholdSource, logger *zap.Logger) *Evaluator {
	return &Evaluator{thresholds: thresholds, logger: logger}
}

// Evaluate проверяет пороги пользователя против оценки.
// Метрики, выпавшие из деградированной оценки, пропускаются:
// нарушение по ним не определимо.
func (e *Evaluator) Evaluate(userAddress string, a *models.RiskAssessment) ([]Outcome, error) {
	thresholds, err := e.thresholds.ListForEntity(userAddress, a.EntityType, a.EntityID)
	if err != nil {
		return nil, err
	}

	metrics := models.RiskMetricsMap(a)

	var outcomes []Outcome
	seen := make(map[string]bool)
	for _, th := range thresholds {
		// Первый порог метрики в выборке - самый специфичный
		if seen[th.Metric] {
			continue
		}
		seen[th.Metric] = true

		current, ok := metrics[th.Metric]
		if !ok {
			e.logger.Debug("metric unavailable in assessment, threshold skipped",
				zap.String("entity_id", a.EntityID),
				zap.String("metric", th.Metric))
			continue
		}

		outcomes = append(outcomes, Outcome{
			Threshold: th,
			Current:   current,
			Breached:  th.IsExceeded(current),
		})
	}

	return outcomes, nil
}
