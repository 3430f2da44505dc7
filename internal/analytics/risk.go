package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Volatility is the annualized standard deviation of daily returns, in percent.
func Volatility(returns []float64) *float64 {
	if len(returns) < MinDataPoints {
		return nil
	}
	_, std := MeanStdDev(returns)
	return ptr(std * math.Sqrt(TradingDaysPerYear) * 100)
}

// VolatilityOfCloses computes Volatility over the returns of a close series.
func VolatilityOfCloses(closes []float64) *float64 {
	return Volatility(DailyReturns(closes))
}

// Sharpe is the annualized mean excess return over its standard deviation.
// riskFree is an annual rate (0.1 for 10%). A flat series yields 0.
func Sharpe(returns []float64, riskFree float64) *float64 {
	if len(returns) < MinDataPoints {
		return nil
	}
	mean, std := MeanStdDev(excess(returns, riskFree))
	if nearZero(std) {
		return ptr(0)
	}
	return ptr(mean / std * math.Sqrt(TradingDaysPerYear))
}

// Sortino is Sharpe with the denominator restricted to the standard
// deviation of negative excess returns. Nil when that deviation is zero.
func Sortino(returns []float64, riskFree float64) *float64 {
	if len(returns) < MinDataPoints {
		return nil
	}
	ex := excess(returns, riskFree)
	var downside []float64
	for _, r := range ex {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return nil
	}
	_, downStd := MeanStdDev(downside)
	if nearZero(downStd) {
		return nil
	}
	mean, _ := MeanStdDev(ex)
	return ptr(mean / downStd * math.Sqrt(TradingDaysPerYear))
}

// Beta is cov(asset, benchmark) / var(benchmark) over the days both series
// have a return. Nil under MinDataPoints overlapping days or when the
// benchmark does not move.
func Beta(asset, benchmark Series) *float64 {
	xs, ys := Align(asset, benchmark)
	if len(xs) < MinDataPoints {
		return nil
	}
	variance := stat.Variance(ys, nil)
	if nearZero(variance) {
		return nil
	}
	return ptr(stat.Covariance(xs, ys, nil) / variance)
}

// AnnualizedReturn compounds daily returns and scales the growth to one
// trading year, in percent.
func AnnualizedReturn(returns []float64) *float64 {
	if len(returns) < MinDataPoints {
		return nil
	}
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	if growth <= 0 {
		return ptr(-100)
	}
	years := float64(len(returns)) / TradingDaysPerYear
	return ptr((math.Pow(growth, 1/years) - 1) * 100)
}

func excess(returns []float64, riskFree float64) []float64 {
	if riskFree == 0 {
		return returns
	}
	daily := riskFree / TradingDaysPerYear
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r - daily
	}
	return out
}
