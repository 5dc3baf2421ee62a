// Package metrics provides constants used across metric definitions.
package metrics

// Operation label values for station queries and loads.
const (
	// OpLoad is a reference table load.
	OpLoad = "load"
	// OpFetch is a primary source download.
	OpFetch = "fetch"
	// OpNearest is a nearest-station search.
	OpNearest = "nearest"
	// OpInfo is a station lookup by name or synonym.
	OpInfo = "info"
	// OpDistance is a distance-to-named-station query.
	OpDistance = "distance"
	// OpProperName is a synonym-only resolution.
	OpProperName = "proper_name"
	// OpList is a station list request.
	OpList = "list"
	// OpAllowlist is an allowlist filtering pass.
	OpAllowlist = "allowlist"
	// OpExport is a spreadsheet export.
	OpExport = "export"
)

// Status and result label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"

	ResultCacheHit  = "hit"
	ResultCacheMiss = "miss"
)

// Histogram bucket configuration constants.
const (
	// BucketStart10us is the starting bucket for in-memory query histograms (10µs to ~40ms range).
	BucketStart10us = 0.00001
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for network histograms (10ms to ~40s range).
	BucketStart10ms = 0.01

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
