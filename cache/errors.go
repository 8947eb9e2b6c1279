package cache

import "errors"

// Common errors for cache operations.
var (
	// ErrCacheMiss is returned when no valid entry exists for an
	// identifier: not found in any tier, or found but expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnknownBucket is returned when an operation names a bucket
	// outside the fixed set of known buckets.
	ErrUnknownBucket = errors.New("unknown cache bucket")

	// ErrNoIdentifier is returned by wrapped producers when the cache
	// identifier cannot be determined from the call arguments. This is a
	// configuration error, not a miss.
	ErrNoIdentifier = errors.New("cannot determine cache identifier from call arguments")
)
