package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidConfiguration is returned when a watched configuration is malformed.
var ErrInvalidConfiguration = errors.New("invalid configuration")

var (
	rawAddressPattern = regexp.MustCompile(`^-?\d+:[0-9a-fA-F]{64}$`)
	symbolStrip       = regexp.MustCompile(`[^A-Za-z0-9_$]`)
)

// ValidateAddress checks a TON address in raw (wc:hex) or user-friendly (48 chars base64/base64url) form.
func ValidateAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidConfiguration)
	}
	if rawAddressPattern.MatchString(addr) {
		return nil
	}
	if len(addr) == 48 {
		enc := base64.URLEncoding
		if strings.ContainsAny(addr, "+/") {
			enc = base64.StdEncoding
		}
		if b, err := enc.DecodeString(addr); err == nil && len(b) == 36 {
			return nil
		}
	}
	return fmt.Errorf("%w: malformed address %q", ErrInvalidConfiguration, addr)
}

// ParseMinBuy parses a minimum buy threshold in TON.
func ParseMinBuy(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: min buy %q is not a number", ErrInvalidConfiguration, raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: min buy must be >= 0, got %v", ErrInvalidConfiguration, v)
	}
	return v, nil
}

// Validate checks all fields of a watched configuration.
func (c *WatchedConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfiguration)
	}
	if c.GroupID == 0 {
		return fmt.Errorf("%w: group id is required", ErrInvalidConfiguration)
	}
	if c.MinBuyTON < 0 || math.IsNaN(c.MinBuyTON) || math.IsInf(c.MinBuyTON, 0) {
		return fmt.Errorf("%w: min buy must be >= 0", ErrInvalidConfiguration)
	}
	if c.JettonAddress != nil {
		if err := ValidateAddress(*c.JettonAddress); err != nil {
			return fmt.Errorf("jetton address: %w", err)
		}
	}
	for ex, addr := range c.Pools {
		if !ex.IsValid() {
			return fmt.Errorf("%w: unsupported exchange %q", ErrInvalidConfiguration, ex)
		}
		if err := ValidateAddress(addr); err != nil {
			return fmt.Errorf("%s pool: %w", ex, err)
		}
	}
	return nil
}

// SafeSymbol strips a symbol to [A-Za-z0-9_$], max 16 chars, defaulting to TOKEN.
func SafeSymbol(sym string) string {
	s := symbolStrip.ReplaceAllString(strings.TrimSpace(sym), "")
	if s == "" {
		return "TOKEN"
	}
	if len(s) > 16 {
		s = s[:16]
	}
	return s
}
