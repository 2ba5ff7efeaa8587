package events

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DuplicateCache tracks event fingerprints seen within a TTL window. The
// dedupe transform drops an event when its fingerprint is already present.
type DuplicateCache struct {
	seen *ttlcache.Cache[uint64, time.Time]
}

// NewDuplicateCache creates a fingerprint cache with the given TTL.
func NewDuplicateCache(ttl time.Duration) *DuplicateCache {
	return &DuplicateCache{
		seen: ttlcache.New(
			ttlcache.WithTTL[uint64, time.Time](ttl),
		),
	}
}

// Start begins background expiry of stale fingerprints.
func (d *DuplicateCache) Start() {
	go d.seen.Start()
}

// Stop halts background expiry.
func (d *DuplicateCache) Stop() {
	d.seen.Stop()
}

// SeenOrRecord returns true if the fingerprint was already recorded within
// the TTL window. Otherwise it records the fingerprint and returns false.
func (d *DuplicateCache) SeenOrRecord(fingerprint uint64, now time.Time) bool {
	if d.seen.Has(fingerprint) {
		return true
	}

	d.seen.Set(fingerprint, now, ttlcache.DefaultTTL)

	return false
}

// Len returns the number of fingerprints currently tracked.
func (d *DuplicateCache) Len() int {
	return d.seen.Len()
}
