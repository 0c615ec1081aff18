// Package extractor recovers buy details from pool transactions and their traces.
//
// Trace schemas are not fixed, so amounts are found by walking the whole tree and
// collecting numbers under amount-like keys. When several candidates exist the largest
// wins. This can pick a fee leg when it is of similar magnitude to the transfer.
package extractor

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"ton-buy-tracker/internal/jsontree"
	"ton-buy-tracker/internal/tonapi"
)

const nanoExp = 9

var (
	jettonTraceKeys  = []string{"jetton_amount", "jettonamount", "amount"}
	jettonRecordKeys = []string{"jetton_amount", "jettonamount"}
	usdTraceKeys     = []string{"value_usd", "amount_usd", "usd"}
	usdRecordKeys    = []string{"value_usd", "amount_usd", "usd", "total_value_usd"}

	// Base-unit threshold: jetton figures above it are nano-scaled.
	nanoThreshold = decimal.New(1, 12)

	numericString = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)
)

// Result is what could be recovered from one transaction. Unknown fields are nil.
type Result struct {
	TONAmount    *float64
	JettonAmount *float64
	USDAmount    *float64
	Buyer        *string
	TxHash       *string
}

// IsBuy reports whether anything usable was found.
func (r Result) IsBuy() bool {
	return r.TONAmount != nil || r.JettonAmount != nil || r.USDAmount != nil
}

// TONAmount converts the inbound message value from nanoton. Nil when absent or unparsable.
func TONAmount(tx tonapi.Transaction) *float64 {
	if tx.InMsg == nil || tx.InMsg.ValueNano == "" {
		return nil
	}
	d, err := decimal.NewFromString(tx.InMsg.ValueNano)
	if err != nil {
		return nil
	}
	return toFloat(d.Shift(-nanoExp))
}

// Extract builds a Result from a transaction and an optional trace (null when absent).
// It never fails; anything it cannot read stays unknown.
func Extract(tx tonapi.Transaction, trace jsontree.Value) Result {
	res := Result{TONAmount: TONAmount(tx)}

	if tx.Hash != "" {
		h := tx.Hash
		res.TxHash = &h
	}
	if tx.InMsg != nil && tx.InMsg.Source != "" {
		b := tx.InMsg.Source
		res.Buyer = &b
	}

	if !trace.IsNull() {
		if j, ok := Largest(trace, jettonTraceKeys...); ok {
			res.JettonAmount = toFloat(ScaleJetton(j))
		}
		if u, ok := Largest(trace, usdTraceKeys...); ok {
			res.USDAmount = toFloat(u)
		}
	}

	if res.USDAmount == nil {
		if u, ok := Largest(tx.Raw, usdRecordKeys...); ok {
			res.USDAmount = toFloat(u)
		}
	}
	if res.JettonAmount == nil {
		if j, ok := Largest(tx.Raw, jettonRecordKeys...); ok {
			res.JettonAmount = toFloat(ScaleJetton(j))
		}
	}
	return res
}

// ScaleJetton treats figures above 10^12 as base units with 9 decimals.
func ScaleJetton(raw decimal.Decimal) decimal.Decimal {
	if raw.GreaterThan(nanoThreshold) {
		return raw.Shift(-nanoExp)
	}
	return raw
}

// Largest walks root and returns the largest number found under any of keys
// (case-insensitive). Values may be JSON numbers or plain numeric strings.
// Negative figures are not amounts and are skipped.
func Largest(root jsontree.Value, keys ...string) (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)
	jsontree.Walk(root, func(key string, value jsontree.Value) bool {
		if !matchKey(key, keys) {
			return true
		}
		d, ok := numberOf(value)
		if !ok || d.IsNegative() {
			return true
		}
		if !found || d.GreaterThan(best) {
			best, found = d, true
		}
		return true
	})
	return best, found
}

func matchKey(key string, keys []string) bool {
	for _, k := range keys {
		if strings.EqualFold(key, k) {
			return true
		}
	}
	return false
}

func numberOf(v jsontree.Value) (decimal.Decimal, bool) {
	switch v.Kind() {
	case jsontree.Number:
		n, _ := v.AsNumber()
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case jsontree.String:
		s, _ := v.AsString()
		s = strings.TrimSpace(s)
		if !numericString.MatchString(s) {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

// toFloat returns nil for figures a float64 cannot hold.
func toFloat(d decimal.Decimal) *float64 {
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}
