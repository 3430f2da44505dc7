package analytics

import "time"

// Drawdown describes the deepest peak-to-trough decline of an index series.
// Percentages are negative or zero.
type Drawdown struct {
	MaxDrawdown     float64    `json:"max_drawdown"`
	CurrentDrawdown float64    `json:"current_drawdown"`
	PeakDate        *time.Time `json:"peak_date"`
	TroughDate      *time.Time `json:"trough_date"`
	ChartData       Series     `json:"chart_data"`
}

// CumulativeIndex compounds daily returns into an index starting at 1.0 on
// start.
func CumulativeIndex(start time.Time, returns Series) Series {
	out := make(Series, 0, len(returns)+1)
	out = append(out, Point{Date: start, Value: 1})
	level := 1.0
	for _, r := range returns {
		level *= 1 + r.Value
		out = append(out, Point{Date: r.Date, Value: level})
	}
	return out
}

// MaxDrawdown walks the index tracking the running peak. ChartData holds the
// running drawdown percentage at every point. Nil for fewer than two points.
func MaxDrawdown(index Series) *Drawdown {
	if len(index) < 2 {
		return nil
	}

	dd := &Drawdown{ChartData: make(Series, 0, len(index))}
	peak := index[0]
	current := 0.0
	for _, p := range index {
		if p.Value > peak.Value {
			peak = p
		}
		current = 0
		if peak.Value > 0 {
			current = (p.Value - peak.Value) / peak.Value * 100
		}
		dd.ChartData = append(dd.ChartData, Point{Date: p.Date, Value: current})

		if current < dd.MaxDrawdown {
			dd.MaxDrawdown = current
			peakDate, troughDate := peak.Date, p.Date
			dd.PeakDate, dd.TroughDate = &peakDate, &troughDate
		}
	}
	dd.CurrentDrawdown = current
	return dd
}
