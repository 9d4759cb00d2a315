package cache

import (
	"time"
)

// minTTL keeps entries from expiring immediately when a bar closes right now.
const minTTL = 5 * time.Second

// TimeUntilNextBoundary は now から次の足の区切り（UTC基準）までの期間を返します。
// d が 0 以下の場合は 0 を返します。
func TimeUntilNextBoundary(now time.Time, d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	now = now.UTC()
	next := now.Truncate(d).Add(d)
	return next.Sub(now)
}

// clampTTL は ttl を次の足の区切りまでに制限し、minTTL を下限とします。
func clampTTL(ttl time.Duration, now time.Time, bar time.Duration) time.Duration {
	if untilBar := TimeUntilNextBoundary(now, bar); untilBar > 0 && untilBar < ttl {
		ttl = untilBar
	}
	if ttl < minTTL {
		ttl = minTTL
	}
	return ttl
}
