package metrics

import "time"

// Collector receives events from the sync, scan, limiter, cache and API
// layers. Each consumer declares the subset it needs.
type Collector interface {
	SyncAttempt(mode, result string)
	RecordsSynced(n int)
	ScanCompleted(scanType, result string)
	RateLimitRejected()
	CacheLookup(hit bool)
	ObserveRequest(endpoint string, status int, elapsed time.Duration)
}
