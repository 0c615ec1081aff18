package domain

import "strings"

// Exchange identifies a supported TON DEX.
type Exchange string

const (
	ExchangeSTONfi Exchange = "STONfi"
	ExchangeDeDust Exchange = "DeDust"
)

// Exchanges returns supported exchanges in polling order.
func Exchanges() []Exchange {
	return []Exchange{ExchangeSTONfi, ExchangeDeDust}
}

// String returns the string representation of Exchange.
func (e Exchange) String() string {
	return string(e)
}

// IsValid checks if the exchange is a supported value.
func (e Exchange) IsValid() bool {
	return e == ExchangeSTONfi || e == ExchangeDeDust
}

// ExchangeFromDexID maps a market-data dex identifier (e.g. "stonfi", "ston_fi_v2",
// "dedust") to an Exchange by normalized substring match.
func ExchangeFromDexID(dexID string) (Exchange, bool) {
	id := strings.ToLower(strings.TrimSpace(dexID))
	switch {
	case id == "":
		return "", false
	case strings.Contains(id, "ston"):
		return ExchangeSTONfi, true
	case strings.Contains(id, "dedust"), strings.Contains(id, "de_dust"), strings.Contains(id, "de dust"):
		return ExchangeDeDust, true
	}
	return "", false
}
