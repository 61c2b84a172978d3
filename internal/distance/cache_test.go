package distance

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestCacheKeyBucketsTimeByTTL(t *testing.T) {
	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	sameBucket := cacheKey(depot, site, base, DefaultEstimateTTL)
	withinTTL := cacheKey(depot, site, base.Add(10*time.Minute), DefaultEstimateTTL)
	nextBucket := cacheKey(depot, site, base.Add(DefaultEstimateTTL), DefaultEstimateTTL)

	if sameBucket != withinTTL {
		t.Fatalf("keys differ within one TTL bucket: %q vs %q", sameBucket, withinTTL)
	}
	if sameBucket == nextBucket {
		t.Fatalf("keys identical across TTL buckets: %q", sameBucket)
	}
	if !strings.HasPrefix(sameBucket, keyEstimate) {
		t.Fatalf("key %q missing prefix %q", sameBucket, keyEstimate)
	}
}

func TestCacheKeyRoundsCoordinates(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	a := cacheKey(depot, site, now, DefaultEstimateTTL)
	nudged := site
	nudged.Lat += 0.0001 // below the ~100m bucket resolution
	b := cacheKey(depot, nudged, now, DefaultEstimateTTL)

	if a != b {
		t.Fatalf("keys differ for sub-bucket nudge: %q vs %q", a, b)
	}
}

func TestDisabledCacheNeverHits(t *testing.T) {
	cache := &Cache{config: DefaultCacheConfig(), disabled: true}

	if cache.IsAvailable() {
		t.Fatal("disabled cache reports available")
	}
	if _, ok := cache.GetEstimate(context.Background(), depot, site, time.Now()); ok {
		t.Fatal("disabled cache returned a hit")
	}
	if err := cache.SetEstimate(context.Background(), depot, site, time.Now(), Estimate{ETAMinutes: 5}); err != nil {
		t.Fatalf("set on disabled cache: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
