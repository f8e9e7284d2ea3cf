package portfolio

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// FormatMicro renders a base-unit amount in whole units with places decimals.
// Unparseable input renders as zero.
func FormatMicro(amount string, places int32) string {
	v, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero.StringFixed(places)
	}
	return v.Shift(-6).StringFixed(places)
}

// FormatCompact abbreviates large values with K and M suffixes
func FormatCompact(n decimal.Decimal, places int32) string {
	switch {
	case n.GreaterThanOrEqual(million):
		return n.Div(million).StringFixed(places) + "M"
	case n.GreaterThanOrEqual(thousand):
		return n.Div(thousand).StringFixed(places) + "K"
	default:
		return n.StringFixed(places)
	}
}

// FormatPercent renders v as a percentage, v is already scaled to 100
func FormatPercent(v decimal.Decimal, places int32) string {
	return v.StringFixed(places) + "%"
}

// FormatUSD renders a dollar amount with thousands separators and two decimals
func FormatUSD(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}

	fixed := v.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// TruncateAddress keeps the first start and last end characters of an address.
// Addresses too short to shorten are returned unchanged.
func TruncateAddress(address string, start, end int) string {
	if address == "" {
		return ""
	}
	if start < 0 || end < 0 || len(address) <= start+end {
		return address
	}
	return address[:start] + "..." + address[len(address)-end:]
}
