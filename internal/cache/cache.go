// Package cache is the time-boxed response store that serves
// stale-but-valid payloads between refreshes. Correctness depends only
// on Get treating expired entries as absent; Sweep exists to bound
// memory and may run at any frequency.
package cache

import (
	"context"
	"time"
)

// TTL tiers per payload class. Odds payloads live for the full
// inter-refresh period since each sport is refreshed at most once per
// calendar day; the sport catalog changes rarely; the vendor status
// payload is short-lived.
const (
	OddsTTL    = 24 * time.Hour
	CatalogTTL = 72 * time.Hour
	StatusTTL  = time.Hour
)

// Cache keys share the moneta: prefix so a shared Redis instance can
// be inspected and flushed per application.
const (
	OddsKeyPrefix = "moneta:odds:"
	CatalogKey    = "moneta:catalog:sports"
)

// Entry is a stored payload with its storage time, so readers can
// compute the age of stale-but-cached data.
type Entry struct {
	Payload  []byte    `json:"payload"`
	StoredAt time.Time `json:"stored_at"`
}

// Store is the ResponseCache contract. Get returns (nil, nil) for
// absent or expired keys; Set is last-write-wins.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Sweep(ctx context.Context) (removed int, err error)
}
