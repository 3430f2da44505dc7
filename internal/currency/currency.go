// Package currency converts and formats display amounts. Portfolios are kept
// in their base currency; conversion only applies to what is shown.
package currency

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Converter converts between currencies through a base currency using fixed
// rates. rates[code] is how many base units one unit of code buys.
type Converter struct {
	base  string
	rates map[string]float64
}

// NewConverter creates a converter. The base currency always has rate 1.
func NewConverter(base string, rates map[string]float64) *Converter {
	base = strings.ToUpper(base)
	c := &Converter{base: base, rates: map[string]float64{base: 1}}
	for code, rate := range rates {
		if rate > 0 {
			c.rates[strings.ToUpper(code)] = rate
		}
	}
	c.rates[base] = 1
	return c
}

// Base returns the base currency code.
func (c *Converter) Base() string { return c.base }

// Supports reports whether code has a conversion rate.
func (c *Converter) Supports(code string) bool {
	_, ok := c.rates[strings.ToUpper(code)]
	return ok
}

// Codes returns the supported currency codes, sorted.
func (c *Converter) Codes() []string {
	out := make([]string, 0, len(c.rates))
	for code := range c.rates {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Convert converts amount from one currency to another.
func (c *Converter) Convert(amount float64, from, to string) (float64, error) {
	fromRate, ok := c.rates[strings.ToUpper(from)]
	if !ok {
		return 0, fmt.Errorf("unsupported currency %q", from)
	}
	toRate, ok := c.rates[strings.ToUpper(to)]
	if !ok {
		return 0, fmt.Errorf("unsupported currency %q", to)
	}
	return amount * fromRate / toRate, nil
}

// Format renders amount with the symbol and separators of code, rounded to
// the currency's minor unit. Unknown codes fall back to "CODE 0.00".
func Format(amount float64, code string) string {
	code = strings.ToUpper(code)
	cur := money.GetCurrency(code)
	if cur == nil {
		return fmt.Sprintf("%s %.2f", code, amount)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), code).Display()
}

// Round rounds amount to the minor unit of code (two decimals by default).
func Round(amount float64, code string) float64 {
	fraction := 2
	if cur := money.GetCurrency(strings.ToUpper(code)); cur != nil {
		fraction = cur.Fraction
	}
	scale := math.Pow10(fraction)
	return math.Round(amount*scale) / scale
}
