package catalog

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice reads a price the way suppliers print it: currency symbols,
// spaces and either comma or dot as thousands separator. Anything that
// cannot be read becomes 0.
//
//	"1,234.50€" -> 1234.50
//	"1.234,50"  -> 1234.50
//	"12,5"      -> 12.5
//	"0.125"     -> 0.125
func ParsePrice(s string) float64 {
	if strings.ContainsAny(s, "eE") {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			if f < 0 {
				return 0
			}
			return f
		}
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	num := b.String()
	if num == "" || num == "-" {
		return 0
	}
	num = normalizeSeparators(num)
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// normalizeSeparators keeps the last separator as the decimal point when it
// is followed by one or two digits, and drops every other separator.
func normalizeSeparators(num string) string {
	last := strings.LastIndexAny(num, ".,")
	if last < 0 {
		return num
	}
	frac := num[last+1:]
	decimalSep := len(frac) > 0 && len(frac) <= 2 && !strings.ContainsAny(frac, ".,")
	if !decimalSep && strings.Count(num, string(num[last])) == 1 && num[last] == '.' && len(frac) != 3 {
		// "12.3456" is a long fraction, not grouping
		decimalSep = true
	}
	if !decimalSep && len(frac) > 0 && strings.Count(num, string(num[last])) == 1 {
		// nothing groups a leading zero: "0.125", "-0,500"
		if ip := strings.TrimLeft(num[:last], "-"); ip == "" || strings.Trim(ip, "0") == "" {
			decimalSep = true
		}
	}
	intPart := num
	if decimalSep {
		intPart = num[:last]
	} else {
		frac = ""
	}
	intPart = strings.NewReplacer(".", "", ",", "").Replace(intPart)
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}

// ParseInventory reads a stock count. Negative or unreadable values become 0.
func ParseInventory(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}

// SellingPrice applies markupPercent to base and rounds half away from zero to cents.
func SellingPrice(base, markupPercent float64) float64 {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(markupPercent).Div(decimal.NewFromInt(100)))
	f, _ := decimal.NewFromFloat(base).Mul(factor).Round(2).Float64()
	return f
}

// LineTotal is unit price times quantity rounded to cents.
func LineTotal(unit float64, qty int) float64 {
	f, _ := decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(qty))).Round(2).Float64()
	return f
}

// Sum adds money amounts without float drift.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	f, _ := total.Round(2).Float64()
	return f
}
