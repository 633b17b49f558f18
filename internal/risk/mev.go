package risk

import (
	"context"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/utils"
)

// mev.go - движок MEV-риска
//
// Скор собирается из наблюдаемой MEV-активности вокруг пула:
// доля сэндвич-атак, доля фронтранов и отклонение оракула от spot,
// каждая компонента нормирована на порог профиля.

var mevComponentWeights = []float64{0.40, 0.30, 0.30}

type MEVEngine struct{}

func NewMEVEngine() *MEVEngine {
	return &MEVEngine{}
}

func (e *MEVEngine) Factor() string {
	return models.FactorMEV
}

func (e *MEVEngine) Compute(ctx context.Context, snap *models.EntitySnapshot, params models.FactorParams) (FactorResult, error) {
	if err := ctx.Err(); err != nil {
		return FactorResult{}, err
	}

	m := snap.MEV
	if m == nil {
		return FactorResult{
			Factor:     models.FactorMEV,
			Score:      neutralScore,
			Confidence: lowConfidence,
		}, nil
	}

	sandwichScore := utils.RatioScore(m.SandwichRate, params.SandwichAttackThreshold)
	frontrunScore := utils.RatioScore(m.FrontrunRate, params.FrontrunThreshold)
	oracleScore := utils.RatioScore(m.OracleDeviation, params.OracleDeviationThreshold)

	score := utils.WeightedAverage(
		[]float64{sandwichScore, frontrunScore, oracleScore},
		mevComponentWeights,
	)

	return FactorResult{
		Factor:     models.FactorMEV,
		Score:      utils.Clamp01(score),
		Confidence: 0.9,
		Evidence: map[string]float64{
			"sandwich_rate":    m.SandwichRate,
			"sandwich_score":   sandwichScore,
			"frontrun_rate":    m.FrontrunRate,
			"frontrun_score":   frontrunScore,
			"oracle_deviation": m.OracleDeviation,
			"oracle_score":     oracleScore,
		},
	}, nil
}
