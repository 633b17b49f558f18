package risk

import (
	"context"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/utils"
)

// liquidity.go - движок риска ликвидности
//
// Компоненты скора:
// - дефицит TVL относительно min_tvl_threshold профиля
// - оценка проскальзывания при выходе из позиции против max_slippage
// - концентрация пула (доля крупнейшего LP) против thin_pool_threshold
// - падение TVL за 24ч против tvl_drop_threshold

// Ширина ценового окна, в пределах которого измерена глубина снимка
const depthWindowPct = 0.02

// Внутренние веса компонент скора ликвидности
var liquidityComponentWeights = []float64{0.35, 0.25, 0.20, 0.20}

type LiquidityEngine struct{}

func NewLiquidityEngine() *LiquidityEngine {
	return &LiquidityEngine{}
}

func (e *LiquidityEngine) Factor() string {
	return models.FactorLiquidity
}

func (e *LiquidityEngine) Compute(ctx context.Context, snap *models.EntitySnapshot, params models.FactorParams) (FactorResult, error) {
	if err := ctx.Err(); err != nil {
		return FactorResult{}, err
	}

	tvl, _ := snap.TVLUSD.Float64()
	depth, _ := snap.DepthUSD.Float64()
	position, _ := snap.PositionValueUSD.Float64()

	if tvl <= 0 {
		// Без TVL про ликвидность сказать нечего
		return FactorResult{
			Factor:     models.FactorLiquidity,
			Score:      neutralScore,
			Confidence: lowConfidence,
		}, nil
	}

	// Размер сделки для оценки проскальзывания: стоимость позиции,
	// либо 1% TVL когда позиция неизвестна (protocol, pool, token)
	tradeSize := position
	if tradeSize <= 0 {
		tradeSize = tvl * 0.01
	}

	tvlScore := utils.InverseRatioScore(tvl, params.MinTVLThreshold)
	slippage := utils.SlippageEstimate(tradeSize, depth, depthWindowPct)
	slippageScore := utils.RatioScore(slippage, params.MaxSlippage)
	concentrationScore := utils.RatioScore(snap.TopHolderShare, params.ThinPoolThreshold)
	tvlDrop := snap.TVLDropRatio()
	dropScore := utils.RatioScore(tvlDrop, params.TVLDropThreshold)

	score := utils.WeightedAverage(
		[]float64{tvlScore, slippageScore, concentrationScore, dropScore},
		liquidityComponentWeights,
	)

	confidence := 1.0
	if depth <= 0 {
		// Проскальзывание оценено по худшему случаю
		confidence *= 0.7
	}
	if snap.TVL24hAgoUSD.IsZero() {
		confidence *= 0.9
	}

	return FactorResult{
		Factor:     models.FactorLiquidity,
		Score:      utils.Clamp01(score),
		Confidence: utils.Clamp(confidence, lowConfidence, 1),
		Evidence: map[string]float64{
			"tvl_usd":            tvl,
			"tvl_score":          tvlScore,
			"slippage_estimate":  slippage,
			"slippage_score":     slippageScore,
			"top_holder_share":   snap.TopHolderShare,
			"concentration_score": concentrationScore,
			"tvl_drop_24h":       tvlDrop,
			"tvl_drop_score":     dropScore,
		},
	}, nil
}
