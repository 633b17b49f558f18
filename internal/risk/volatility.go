package risk

import (
	"context"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/utils"
)

// volatility.go - движок риска волатильности
//
// Скор - годовая волатильность лог-доходностей ценового ряда,
// нормированная на high_volatility_threshold профиля. Уверенность
// растет с длиной ряда до volatility_lookback_days наблюдений.

// Ценовой ряд снимка дневной
const dailyPeriodsPerYear = 365

type VolatilityEngine struct{}

func NewVolatilityEngine() *VolatilityEngine {
	return &VolatilityEngine{}
}

func (e *VolatilityEngine) Factor() string {
	return models.FactorVolatility
}

func (e *VolatilityEngine) Compute(ctx context.Context, snap *models.EntitySnapshot, params models.FactorParams) (FactorResult, error) {
	if err := ctx.Err(); err != nil {
		return FactorResult{}, err
	}

	prices := make([]float64, 0, len(snap.PriceHistory))
	for _, p := range snap.PriceHistory {
		prices = append(prices, p.Price)
	}

	if len(prices) < 2 {
		return FactorResult{
			Factor:     models.FactorVolatility,
			Score:      neutralScore,
			Confidence: lowConfidence,
		}, nil
	}

	vol := utils.AnnualizedVolatility(prices, dailyPeriodsPerYear)
	score := utils.RatioScore(vol, params.HighVolatilityThreshold)

	// Короткий ряд относительно окна профиля снижает уверенность
	confidence := 1.0
	if params.VolatilityLookbackDays > 0 {
		confidence = utils.Min(1, float64(len(prices)-1)/float64(params.VolatilityLookbackDays))
	}

	return FactorResult{
		Factor:     models.FactorVolatility,
		Score:      score,
		Confidence: utils.Clamp(confidence, lowConfidence, 1),
		Evidence: map[string]float64{
			"annualized_volatility": vol,
			"observations":          float64(len(prices)),
			"lookback_days":         float64(params.VolatilityLookbackDays),
		},
	}, nil
}
