package analytics

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Weights normalizes market values into shares summing to one.
// Non-positive values are dropped.
func Weights(values map[string]float64) map[string]float64 {
	tickers := make([]string, 0, len(values))
	amounts := make([]float64, 0, len(values))
	for t, v := range values {
		if v > 0 {
			tickers = append(tickers, t)
			amounts = append(amounts, v)
		}
	}
	total := floats.Sum(amounts)
	out := make(map[string]float64, len(tickers))
	if total <= 0 {
		return out
	}
	for i, t := range tickers {
		out[t] = amounts[i] / total
	}
	return out
}

// PortfolioReturns aggregates per-asset daily returns into one series using
// fixed weights. The weights are today's market-value shares applied to
// every historical day; they do not follow the holdings through time.
// On days where only some assets have a return, the sum is divided by the
// weight of the assets present.
func PortfolioReturns(assets map[string]Series, weights map[string]float64) Series {
	type acc struct {
		date      time.Time
		sum, wsum float64
	}
	byDay := make(map[string]*acc)
	for ticker, series := range assets {
		w, ok := weights[ticker]
		if !ok || w <= 0 {
			continue
		}
		for _, p := range series {
			k := dayKey(p.Date)
			a, ok := byDay[k]
			if !ok {
				a = &acc{date: p.Date}
				byDay[k] = a
			}
			a.sum += w * p.Value
			a.wsum += w
		}
	}

	out := make(Series, 0, len(byDay))
	for _, a := range byDay {
		if a.wsum > 0 {
			out = append(out, Point{Date: a.date, Value: a.sum / a.wsum})
		}
	}
	out.Sort()
	return out
}

// RiskReturnPoint is one asset on the risk/return scatter, both in percent.
type RiskReturnPoint struct {
	Ticker string  `json:"ticker"`
	Risk   float64 `json:"risk"`
	Return float64 `json:"return"`
}

// RiskReturn pairs annualized volatility with annualized return per asset,
// in tickers order. Assets with too little data are omitted.
func RiskReturn(tickers []string, assets map[string]Series) []RiskReturnPoint {
	var out []RiskReturnPoint
	for _, t := range tickers {
		values := assets[t].Values()
		risk := Volatility(values)
		ret := AnnualizedReturn(values)
		if risk == nil || ret == nil {
			continue
		}
		out = append(out, RiskReturnPoint{Ticker: t, Risk: *risk, Return: *ret})
	}
	return out
}

// Correlation is a symmetric matrix of pairwise Pearson coefficients.
type Correlation struct {
	Tickers []string    `json:"tickers"`
	Matrix  [][]float64 `json:"matrix"`
}

// CorrelationMatrix correlates every pair of return series over their
// shared days. Pairs without enough overlap, or with a flat series, get 0.
func CorrelationMatrix(tickers []string, assets map[string]Series) *Correlation {
	if len(tickers) == 0 {
		return nil
	}
	sorted := append([]string(nil), tickers...)
	sort.Strings(sorted)

	n := len(sorted)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := pairCorrelation(assets[sorted[i]], assets[sorted[j]])
			matrix[i][j], matrix[j][i] = c, c
		}
	}
	return &Correlation{Tickers: sorted, Matrix: matrix}
}

func pairCorrelation(a, b Series) float64 {
	xs, ys := Align(a, b)
	if len(xs) < MinDataPoints {
		return 0
	}
	if nearZero(stat.Variance(xs, nil)) || nearZero(stat.Variance(ys, nil)) {
		return 0
	}
	return stat.Correlation(xs, ys, nil)
}
