package alerting

import (
	"fmt"

	"riskmonitor/internal/models"
)

// Pipeline прогоняет готовую оценку через пороги и жизненный цикл
// алертов. Одна точка входа для планировщика и для оценок по запросу.
type Pipeline struct {
	evaluator *Evaluator
	manager   *Manager
}

func NewPipeline(evaluator *Evaluator, manager *Manager) *Pipeline {
	return &Pipeline{evaluator: evaluator, manager: manager}
}

// Process оценивает пороги и применяет каждый исход.
// Ошибка одного порога не останавливает остальные.
func (p *Pipeline) Process(userAddress string, a *models.RiskAssessment) error {
	outcomes, err := p.evaluator.Evaluate(userAddress, a)
	if err != nil {
		return fmt.Errorf("evaluate thresholds: %w", err)
	}

	var firstErr error
	for _, outcome := range outcomes {
		if err := p.manager.Apply(outcome, a); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
