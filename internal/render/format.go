// Package render builds the HTML texts posted to Telegram: the per-group buy
// post, the trending channel post and the leaderboard message.
package render

import (
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Fixed formats v with the given number of decimal places and thousands separators.
// Non-finite values render as "Unknown".
func Fixed(v float64, places int32) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "Unknown"
	}
	s := decimal.NewFromFloat(v).StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, hasFrac := strings.Cut(s, ".")
	out := groupThousands(intPart)
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// Count formats an integer with thousands separators.
func Count(n int64) string {
	if n < 0 {
		return "-" + groupThousands(strconv.FormatInt(-n, 10))
	}
	return groupThousands(strconv.FormatInt(n, 10))
}

// Price formats a token price with up to 8 decimals and no trailing zeros.
func Price(v float64) string {
	s := Fixed(v, 8)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

// ShortAddress abbreviates an address to its first and last keep characters.
func ShortAddress(addr *string, keep int) string {
	if addr == nil {
		return "Unknown"
	}
	a := strings.TrimSpace(*addr)
	if a == "" {
		return "Unknown"
	}
	if len(a) <= keep*2+3 {
		return a
	}
	return a[:keep] + "..." + a[len(a)-keep:]
}

// TxURL returns the explorer link for a transaction hash, or "" when unknown.
func TxURL(hash *string) string {
	if hash == nil || strings.TrimSpace(*hash) == "" {
		return ""
	}
	return "https://tonviewer.com/transaction/" + strings.TrimSpace(*hash)
}

func anchor(url, label string) string {
	return `<a href="` + html.EscapeString(url) + `">` + html.EscapeString(label) + `</a>`
}

// StrengthCount maps a buy's USD size to the number of dots in its grid.
func StrengthCount(usd *float64) int {
	if usd == nil {
		return 12
	}
	switch v := *usd; {
	case v < 50:
		return 8
	case v < 150:
		return 12
	case v < 400:
		return 18
	case v < 1000:
		return 24
	default:
		return 30
	}
}

// Grid lays count dots out in rows of perRow.
func Grid(dot string, count, perRow int) string {
	if perRow <= 0 {
		perRow = 12
	}
	rows := make([]string, 0, count/perRow+1)
	for i := 0; i < count; i += perRow {
		rows = append(rows, strings.Repeat(dot, min(perRow, count-i)))
	}
	return strings.Join(rows, "\n")
}
