package shared

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencyScale is the number of decimal places a posted amount may carry.
const CurrencyScale = 2

var amountPrinter = message.NewPrinter(language.English)

// RoundMoney rounds half away from zero to currency scale.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(CurrencyScale)
}

// HasCurrencyScale reports whether v carries at most two decimal places.
func HasCurrencyScale(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(CurrencyScale))
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// FormatAmount renders v with thousands separators and two decimals, e.g. "$1,130.00".
// Digits come from the decimal itself so large amounts stay exact.
func FormatAmount(v decimal.Decimal) string {
	fixed := RoundMoney(v).Abs().StringFixed(CurrencyScale)
	whole, frac, _ := strings.Cut(fixed, ".")
	sign := ""
	if RoundMoney(v).IsNegative() {
		sign = "-"
	}
	return sign + "$" + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return amountPrinter.Sprintf("%d", n)
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
