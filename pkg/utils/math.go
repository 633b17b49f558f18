package utils

import (
	"math"
)

// math.go - математические утилиты риск-скоринга
//
// Назначение:
// Чистые функции без побочных эффектов, используемые факторными
// движками и агрегатором.
//
// Функции:
// - Clamp01: ограничение скора диапазоном [0,1]
// - WeightedAverage: взвешенное среднее факторов
// - AnnualizedVolatility: волатильность по лог-доходностям
// - ImpermanentLossRatio: IL относительно HODL
// - SlippageEstimate: оценка проскальзывания по глубине

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Clamp01 ограничивает скор диапазоном [0,1].
func Clamp01(value float64) float64 {
	return Clamp(value, 0, 1)
}

// Min возвращает минимум из двух чисел.
func Min(a, b float64) float64 {
	return math.Min(a, b)
}

// Max возвращает максимум из двух чисел.
func Max(a, b float64) float64 {
	return math.Max(a, b)
}

// WeightedAverage вычисляет взвешенное среднее.
//
// Формула:
//
//	avg = Σ(value_i × weight_i) / Σ(weight_i)
//
// Возвращает 0 при пустых или несогласованных входах.
// Отрицательные веса пропускаются.
func WeightedAverage(values, weights []float64) float64 {
	if len(values) == 0 || len(values) != len(weights) {
		return 0
	}

	var sumWeighted, sumWeights float64
	for i := range values {
		if weights[i] < 0 {
			continue
		}
		sumWeighted += values[i] * weights[i]
		sumWeights += weights[i]
	}

	if sumWeights == 0 {
		return 0
	}
	return sumWeighted / sumWeights
}

// LogReturns вычисляет логарифмические доходности ценового ряда.
//
// Точки с неположительными ценами пропускаются.
// Для ряда из n цен возвращает до n-1 доходностей.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	prev := prices[0]
	for _, p := range prices[1:] {
		if prev > 0 && p > 0 {
			returns = append(returns, math.Log(p/prev))
		}
		prev = p
	}
	return returns
}

// StdDev вычисляет выборочное стандартное отклонение.
// Для выборки короче двух элементов возвращает 0.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff / float64(n-1))
}

// AnnualizedVolatility вычисляет годовую волатильность по ряду цен
// с заданным количеством наблюдений в год.
//
// Пример: для дневных цен periodsPerYear = 365.
func AnnualizedVolatility(prices []float64, periodsPerYear float64) float64 {
	if periodsPerYear <= 0 {
		return 0
	}
	returns := LogReturns(prices)
	return StdDev(returns) * math.Sqrt(periodsPerYear)
}

// ImpermanentLossRatio вычисляет impermanent loss позиции 50/50 AMM
// пула относительно удержания активов.
//
// Формула для constant-product пула:
//
//	IL = 1 - 2*sqrt(r) / (1 + r)
//
// где r = текущее соотношение цен / соотношение цен на входе.
// Результат в [0,1): 0 при неизменном соотношении.
func ImpermanentLossRatio(entryRatio, currentRatio float64) float64 {
	if entryRatio <= 0 || currentRatio <= 0 {
		return 0
	}
	r := currentRatio / entryRatio
	il := 1 - 2*math.Sqrt(r)/(1+r)
	return Clamp01(il)
}

// SlippageEstimate оценивает проскальзывание сделки размера tradeUSD
// при доступной глубине depthUSD в пределах ценового окна.
//
// Линейная модель: сделка размером с всю глубину двигает цену на
// ширину окна (windowPct). Результат в долях, ограничен [0,1].
func SlippageEstimate(tradeUSD, depthUSD, windowPct float64) float64 {
	if tradeUSD <= 0 || windowPct <= 0 {
		return 0
	}
	if depthUSD <= 0 {
		return 1
	}
	return Clamp01(tradeUSD / depthUSD * windowPct)
}

// RatioScore нормализует отношение value/threshold в скор [0,1].
//
// value == 0 дает 0, value >= threshold дает 1.
// Используется для факторов вида "чем больше, тем хуже".
func RatioScore(value, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return Clamp01(value / threshold)
}

// InverseRatioScore нормализует отношение в скор "чем меньше, тем хуже".
//
// value >= threshold дает 0 (безопасно), value == 0 дает 1.
func InverseRatioScore(value, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return Clamp01(1 - value/threshold)
}
