package tonapi

import (
	"context"
	"errors"

	"ton-buy-tracker/internal/jsontree"
)

// ErrNotFound is returned when the API responds 404 for a resource.
var ErrNotFound = errors.New("tonapi: not found")

// Source defines the chain data operations used by the tracker.
type Source interface {
	// AccountTransactions returns up to limit most recent transactions of an account.
	AccountTransactions(ctx context.Context, account string, limit int) ([]Transaction, error)

	// Trace returns the execution trace tree for a trace id.
	Trace(ctx context.Context, traceID string) (jsontree.Value, error)

	// JettonInfo returns holders count and metadata for a jetton master.
	JettonInfo(ctx context.Context, jetton string) (*JettonInfo, error)

	// TONPriceUSD returns the current TON/USD rate.
	TONPriceUSD(ctx context.Context) (float64, error)
}

// Transaction is a pool transaction as returned by the explorer.
// Fields are extracted leniently; anything missing stays zero.
type Transaction struct {
	LT      int64
	Hash    string
	TraceID string
	InMsg   *Message
	Raw     jsontree.Value // full record, for fallback extraction
}

// Message is the inbound message of a transaction.
type Message struct {
	ValueNano string // integer nanoton literal, empty if absent
	Source    string // sender address, empty if absent
}

// JettonInfo is jetton master metadata.
type JettonInfo struct {
	Holders  *int64
	Symbol   *string
	Decimals *int
}
