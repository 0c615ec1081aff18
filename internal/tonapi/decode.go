package tonapi

import (
	"strconv"
	"strings"

	"ton-buy-tracker/internal/jsontree"
)

// transactionFromTree reads a transaction record, accepting both the nested
// transaction_id form and flat lt/hash fields.
func transactionFromTree(v jsontree.Value) (Transaction, bool) {
	tx := Transaction{Raw: v}

	ltVal, ok := v.Path("transaction_id", "lt")
	if !ok {
		ltVal, ok = v.Get("lt")
	}
	if !ok {
		return tx, false
	}
	lt, ok := ltVal.Int64()
	if !ok {
		return tx, false
	}
	tx.LT = lt

	if h, ok := v.Path("transaction_id", "hash"); ok {
		tx.Hash, _ = h.AsString()
	}
	if tx.Hash == "" {
		if h, ok := v.Get("hash"); ok {
			tx.Hash, _ = h.AsString()
		}
	}

	tx.TraceID = traceIDOf(v)

	if in, ok := v.Get("in_msg"); ok && in.Kind() == jsontree.Object {
		msg := &Message{}
		if val, ok := in.Get("value"); ok {
			if s, ok := val.Text(); ok {
				msg.ValueNano = strings.TrimSpace(s)
			}
		}
		msg.Source = addressOf(in, "source", "src", "from")
		tx.InMsg = msg
	}
	return tx, true
}

// addressOf returns the first non-empty address under keys; the value may be a
// plain string or an account object carrying an "address" field.
func addressOf(v jsontree.Value, keys ...string) string {
	for _, k := range keys {
		field, ok := v.Get(k)
		if !ok {
			continue
		}
		switch field.Kind() {
		case jsontree.String:
			if s, _ := field.AsString(); s != "" {
				return s
			}
		case jsontree.Object:
			if a, ok := field.Get("address"); ok {
				if s, _ := a.AsString(); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func jettonInfoFromTree(v jsontree.Value) *JettonInfo {
	info := &JettonInfo{}
	if h, ok := v.First("holders_count", "holders", "holdersCount"); ok {
		if n, ok := h.Int64(); ok {
			info.Holders = &n
		}
	}
	meta, _ := v.Get("metadata")
	for _, src := range []jsontree.Value{meta, v} {
		if s, ok := src.Get("symbol"); ok {
			if sym, ok := s.AsString(); ok && sym != "" {
				info.Symbol = &sym
				break
			}
		}
	}
	d, ok := meta.Get("decimals")
	if !ok {
		d, ok = v.Get("decimals")
	}
	if ok {
		if txt, ok := d.Text(); ok {
			if n, err := strconv.Atoi(txt); err == nil {
				info.Decimals = &n
			}
		}
	}
	return info
}

// traceIDOf prefers a top-level trace id and otherwise takes the first one found
// anywhere in the record.
func traceIDOf(v jsontree.Value) string {
	if id, ok := v.First("trace_id", "traceId"); ok {
		s, _ := id.AsString()
		return s
	}
	var found string
	jsontree.Walk(v, func(key string, value jsontree.Value) bool {
		if key != "trace_id" && key != "traceId" {
			return true
		}
		found, _ = value.AsString()
		return false
	})
	return found
}
