package risk

import (
	"context"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/utils"
)

// crosschain.go - движок кросс-чейн риска
//
// Компоненты скора:
// - риск мостов, взвешенный долей ликвидности через каждый мост
// - фрагментация ликвидности между чейнами
// - расхождение governance-состояний между чейнами
//
// Сущность без мостов кросс-чейн экспозиции не имеет: скор 0
// с полной уверенностью, а не нейтральный.

var crossChainComponentWeights = []float64{0.50, 0.25, 0.25}

type CrossChainEngine struct{}

func NewCrossChainEngine() *CrossChainEngine {
	return &CrossChainEngine{}
}

func (e *CrossChainEngine) Factor() string {
	return models.FactorCrossChain
}

func (e *CrossChainEngine) Compute(ctx context.Context, snap *models.EntitySnapshot, params models.FactorParams) (FactorResult, error) {
	if err := ctx.Err(); err != nil {
		return FactorResult{}, err
	}

	if len(snap.Bridges) == 0 {
		return FactorResult{
			Factor:     models.FactorCrossChain,
			Score:      0,
			Confidence: 1,
			Evidence:   map[string]float64{"bridge_count": 0},
		}, nil
	}

	var (
		bridgeScores  []float64
		bridgeWeights []float64
		largestShare  float64
		maxLag        float64
	)
	for _, b := range snap.Bridges {
		bridgeScores = append(bridgeScores, b.RiskScore)
		bridgeWeights = append(bridgeWeights, b.LiquidityShare)
		largestShare = utils.Max(largestShare, b.LiquidityShare)
		maxLag = utils.Max(maxLag, b.GovernanceLag)
	}

	avgBridgeRisk := utils.WeightedAverage(bridgeScores, bridgeWeights)
	bridgeScore := utils.RatioScore(avgBridgeRisk, params.BridgeRiskTolerance)

	// Чем меньше доля крупнейшего чейна, тем сильнее размазана ликвидность
	fragmentation := utils.Clamp01(1 - largestShare)
	fragmentationScore := utils.RatioScore(fragmentation, params.FragmentationThreshold)

	divergenceScore := utils.RatioScore(maxLag, params.GovernanceDivergenceLimit)

	score := utils.WeightedAverage(
		[]float64{bridgeScore, fragmentationScore, divergenceScore},
		crossChainComponentWeights,
	)

	return FactorResult{
		Factor:     models.FactorCrossChain,
		Score:      utils.Clamp01(score),
		Confidence: 0.9,
		Evidence: map[string]float64{
			"bridge_count":         float64(len(snap.Bridges)),
			"avg_bridge_risk":      avgBridgeRisk,
			"bridge_score":         bridgeScore,
			"fragmentation":        fragmentation,
			"fragmentation_score":  fragmentationScore,
			"governance_lag":       maxLag,
			"divergence_score":     divergenceScore,
		},
	}, nil
}
