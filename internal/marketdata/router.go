package marketdata

import (
	"regexp"
	"strings"
)

// regionalPattern matches B3 symbols: common and preferred shares (four
// letters plus 3 or 4, with an optional F for the fractional lot), units and
// FIIs (ending in 11).
var regionalPattern = regexp.MustCompile(`^[A-Z]{4}[34]F?$|^[A-Z]{4}11$|^[A-Z]{3}11$`)

const regionalSuffix = ".SA"

// NormalizeTicker upper-cases and trims a ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// IsRegionalTicker reports whether ticker looks like a B3 listing.
func IsRegionalTicker(ticker string) bool {
	t := NormalizeTicker(ticker)
	if strings.HasSuffix(t, regionalSuffix) {
		return true
	}
	return regionalPattern.MatchString(t)
}

// BaseTicker strips the Yahoo B3 suffix.
func BaseTicker(ticker string) string {
	return strings.TrimSuffix(NormalizeTicker(ticker), regionalSuffix)
}

// route is one provider attempt with the symbol in that provider's notation.
type route struct {
	provider Provider
	symbol   string
}

// routes returns the primary attempt followed by the single fallback.
func (m *Market) routes(ticker string) []route {
	t := NormalizeTicker(ticker)
	if IsRegionalTicker(t) {
		base := BaseTicker(t)
		return []route{
			{provider: m.regional, symbol: base},
			{provider: m.global, symbol: base + regionalSuffix},
		}
	}
	return []route{
		{provider: m.global, symbol: t},
		{provider: m.regional, symbol: t},
	}
}

// historyRange maps a day count onto the fixed ranges the chart APIs accept.
func historyRange(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 31:
		return "1mo"
	case days <= 93:
		return "3mo"
	case days <= 186:
		return "6mo"
	case days <= 366:
		return "1y"
	case days <= 731:
		return "2y"
	case days <= 1827:
		return "5y"
	default:
		return "max"
	}
}
