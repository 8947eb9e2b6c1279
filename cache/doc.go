// Package cache provides a two-tier caching system segmented into named
// buckets. Entries are held in memory, optionally persisted as per-entry
// files on disk, and whole buckets can be snapshotted into a host-provided
// property store to survive process restarts. Within each bucket,
// identifiers for cache entries must be unique.
package cache
