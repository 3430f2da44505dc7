// Package analytics holds the pure statistics behind the portfolio metrics:
// daily returns, annualized volatility, Sharpe and Sortino ratios, beta,
// drawdown, risk/return pairs and correlations.
//
// Functions never panic on short or degenerate input. Where a metric cannot
// be computed they return nil, except Sharpe which reports 0 for a flat series.
package analytics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// TradingDaysPerYear annualizes daily statistics.
	TradingDaysPerYear = 252
	// MinDataPoints is the shortest return series a metric is computed over.
	MinDataPoints = 5
)

// Point is one dated observation.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a date-ascending sequence of observations.
type Series []Point

// Values returns the observation values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Sort orders the series by date in place.
func (s Series) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DailyReturns converts closes into day-over-day simple returns.
// A zero previous close yields a zero return.
func DailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out[i-1] = (closes[i] - closes[i-1]) / closes[i-1]
	}
	return out
}

// DatedReturns is DailyReturns keeping the date of the later close.
func DatedReturns(closes Series) Series {
	if len(closes) < 2 {
		return nil
	}
	out := make(Series, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		r := 0.0
		if prev := closes[i-1].Value; prev != 0 {
			r = (closes[i].Value - prev) / prev
		}
		out = append(out, Point{Date: closes[i].Date, Value: r})
	}
	return out
}

// Align pairs the observations of a and b sharing a calendar day, in a's order.
func Align(a, b Series) (xs, ys []float64) {
	byDay := make(map[string]float64, len(b))
	for _, p := range b {
		byDay[dayKey(p.Date)] = p.Value
	}
	for _, p := range a {
		if v, ok := byDay[dayKey(p.Date)]; ok {
			xs = append(xs, p.Value)
			ys = append(ys, v)
		}
	}
	return xs, ys
}

// MeanStdDev returns the mean and population standard deviation of x.
func MeanStdDev(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return 0, 0
	}
	mean, std = stat.PopMeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

// nearZero guards denominators against floating point residue.
func nearZero(v float64) bool {
	return math.Abs(v) < 1e-12
}

func ptr(v float64) *float64 { return &v }
