package risk

import (
	"context"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/utils"
)

// impermanent_loss.go - движок impermanent loss
//
// Скор фактора равен сырой величине IL относительно HODL, без
// нормировки: пороги пользователей (metric=impermanent_loss)
// сравниваются с долей потерь напрямую, например 0.05 = 5%.
// В композитный скор фактор не взвешивается.

type ImpermanentLossEngine struct{}

func NewImpermanentLossEngine() *ImpermanentLossEngine {
	return &ImpermanentLossEngine{}
}

func (e *ImpermanentLossEngine) Factor() string {
	return models.FactorImpermanentLoss
}

func (e *ImpermanentLossEngine) Compute(ctx context.Context, snap *models.EntitySnapshot, params models.FactorParams) (FactorResult, error) {
	if err := ctx.Err(); err != nil {
		return FactorResult{}, err
	}

	if snap.EntryPriceRatio <= 0 || snap.CurrentPriceRatio <= 0 {
		return FactorResult{
			Factor:     models.FactorImpermanentLoss,
			Score:      0,
			Confidence: lowConfidence,
		}, nil
	}

	il := utils.ImpermanentLossRatio(snap.EntryPriceRatio, snap.CurrentPriceRatio)

	return FactorResult{
		Factor:     models.FactorImpermanentLoss,
		Score:      il,
		Confidence: 0.95,
		Evidence: map[string]float64{
			"entry_price_ratio":   snap.EntryPriceRatio,
			"current_price_ratio": snap.CurrentPriceRatio,
			"price_ratio_change":  snap.CurrentPriceRatio / snap.EntryPriceRatio,
		},
	}, nil
}
