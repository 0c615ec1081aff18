// Package dedup suppresses repeated shared-channel posts of the same trade.
package dedup

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"ton-buy-tracker/internal/domain"
)

// DefaultWindow is how long a fingerprint stays live.
const DefaultWindow = 120 * time.Second

// BucketWidth is the granularity of the observation time in composite fingerprints.
const BucketWidth = 10 * time.Second

// Gate reports whether a fingerprint was already seen within the window, marking it
// when it was not.
type Gate interface {
	SeenOrMark(ctx context.Context, fingerprint string, now time.Time) (bool, error)
}

// Fingerprint identifies a trade: the tx hash when known, otherwise
// exchange:pool:buyer:ton:jetton:bucket with unknown parts left empty. bucket is
// the observation time truncated to BucketWidth, in unix seconds.
func Fingerprint(e *domain.BuyEvent) string {
	if e.TxHash != nil && *e.TxHash != "" {
		return *e.TxHash
	}
	return composite(e, bucketOf(e.ObservedAt))
}

// Keys returns every fingerprint a trade is gated on: its tx hash when known,
// and the composite for its own and the following time bucket. Two sightings
// less than BucketWidth apart always share a composite key.
func Keys(e *domain.BuyEvent) []string {
	b := bucketOf(e.ObservedAt)
	keys := make([]string, 0, 3)
	if e.TxHash != nil && *e.TxHash != "" {
		keys = append(keys, *e.TxHash)
	}
	return append(keys, composite(e, b), composite(e, b+int64(BucketWidth/time.Second)))
}

// SeenOrMarkEvent marks all keys of e and reports whether any of them was live.
// Every key is marked even after a hit, so later sightings match on either form.
func SeenOrMarkEvent(ctx context.Context, g Gate, e *domain.BuyEvent, now time.Time) (bool, error) {
	var (
		seen bool
		errs []error
	)
	for _, k := range Keys(e) {
		s, err := g.SeenOrMark(ctx, k, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seen = seen || s
	}
	return seen, errors.Join(errs...)
}

func composite(e *domain.BuyEvent, bucket int64) string {
	parts := []string{
		string(e.Exchange),
		e.PoolAddress,
		optString(e.BuyerAddress),
		optFloat(e.TONAmount),
		optFloat(e.JettonAmount),
		strconv.FormatInt(bucket, 10),
	}
	return strings.Join(parts, ":")
}

func bucketOf(t time.Time) int64 {
	return t.Truncate(BucketWidth).Unix()
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
