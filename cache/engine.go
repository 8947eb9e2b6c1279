package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/streamhaven/bucketcache/config"
)

// Cache is the engine orchestrating the in-memory bucket store, the
// per-entry disk layer and the bucket-level property layer. Construct one
// per process with New and inject it wherever cache access is needed.
//
// All methods are safe for concurrent use: the TTL-check-then-purge
// sequence in Get is compound, so every read-modify-write runs under a
// single mutex.
type Cache struct {
	mu      sync.Mutex
	buckets map[string]bucket

	disk  *diskStore
	props PropertyStore

	defaultTTL time.Duration
	propPrefix string
	listTypes  []string

	logger *log.Logger
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used by the engine and its storage layers.
func WithLogger(logger *log.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithClock overrides the engine's notion of the current time.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache engine rooted at cfg.DataPath. The per-bucket disk
// directory tree is created eagerly. If props is nil, snapshots go to an
// in-memory store and won't survive the process.
func New(cfg config.Config, props PropertyStore, opts ...Option) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}

	disk, err := newDiskStore(cfg.DataPath, cfg.Compression)
	if err != nil {
		return nil, err
	}

	if props == nil {
		props = NewMemoryProperties()
	}

	c := &Cache{
		buckets:    make(map[string]bucket),
		disk:       disk,
		props:      props,
		defaultTTL: cfg.DefaultTTL,
		propPrefix: cfg.PropertyPrefix,
		listTypes:  cfg.KnownListTypes,
		logger:     log.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if cfg.Debug {
		c.logger.SetLevel(log.DebugLevel)
	}

	return c, nil
}

// Get retrieves an item from a cache bucket. On a memory miss the disk
// layer is consulted and a hit promoted into memory without rewriting the
// file. Returns ErrCacheMiss when the entry is absent from both tiers or
// has expired; an expired entry is purged from every tier first.
func (c *Cache) Get(bucketName, identifier string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.getBucket(bucketName)
	if err != nil {
		return nil, err
	}

	entry, ok := b[identifier]
	if !ok {
		entry, err = c.disk.read(bucketName, identifier)
		if err != nil {
			return nil, ErrCacheMiss
		}
		c.logger.Debug("Cache entry retrieved from disk",
			"bucket", bucketName, "identifier", identifier)
		b[identifier] = entry
	}

	if entry.Expired(c.now()) {
		c.logger.Debug("Cache entry has expired",
			"bucket", bucketName, "identifier", identifier, "eol", entry.EOL)
		c.purgeEntry(bucketName, identifier)
		return nil, ErrCacheMiss
	}

	c.logger.Debug("Cache hit",
		"bucket", bucketName, "identifier", identifier, "eol", entry.EOL)
	return entry.Content, nil
}

// Add inserts or overwrites an item in a cache bucket. A zero ttl means the
// configured default. When toDisk is set the entry is additionally written
// to the disk layer; disk failures are logged and never surfaced.
func (c *Cache) Add(bucketName, identifier string, content any, ttl time.Duration, toDisk bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.add(bucketName, identifier, content, ttl, toDisk)
}

// add is Add without locking, for callers already holding the mutex.
func (c *Cache) add(bucketName, identifier string, content any, ttl time.Duration, toDisk bool) error {
	b, err := c.getBucket(bucketName)
	if err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	entry := Entry{
		Content: content,
		EOL:     c.now().Add(ttl).Unix(),
	}
	b[identifier] = entry

	if toDisk {
		if err := c.disk.write(bucketName, identifier, entry); err != nil {
			c.logger.Error("Failed to write cache entry to disk",
				"bucket", bucketName, "identifier", identifier, "error", err)
		}
	}
	return nil
}

// InvalidateEntry removes an item from a bucket and deletes its disk file
// if present. Invalidation is idempotent: an absent identifier is logged,
// not an error.
func (c *Cache) InvalidateEntry(bucketName, identifier string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.getBucket(bucketName)
	if err != nil {
		return err
	}

	if _, ok := b[identifier]; !ok && !c.disk.exists(bucketName, identifier) {
		c.logger.Debug("Nothing to invalidate",
			"bucket", bucketName, "identifier", identifier)
		return nil
	}

	c.purgeEntry(bucketName, identifier)
	c.logger.Debug("Invalidated cache entry",
		"bucket", bucketName, "identifier", identifier)
	return nil
}

// purgeEntry removes an entry from memory and disk. Must be called with
// the lock held and a resident bucket.
func (c *Cache) purgeEntry(bucketName, identifier string) {
	delete(c.buckets[bucketName], identifier)
	if err := c.disk.remove(bucketName, identifier); err != nil {
		c.logger.Error("Failed to remove cache entry file",
			"bucket", bucketName, "identifier", identifier, "error", err)
	}
}

// InvalidateCache clears every bucket currently resident in memory,
// including its disk files and property slot, and resets the bucket store.
// Disk files of buckets never loaded in this process stay untouched, as
// does the reserved bucket's file.
func (c *Cache) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name := range c.buckets {
		if err := c.props.Clear(c.propertyKey(name)); err != nil {
			c.logger.Error("Failed to clear bucket property",
				"bucket", name, "error", err)
		}
		if err := c.disk.clearBucket(name); err != nil {
			c.logger.Error("Failed to clear bucket files",
				"bucket", name, "error", err)
		}
	}
	c.buckets = make(map[string]bucket)
	c.logger.Info("Cache invalidated")
}

// Commit serializes every resident bucket into the property store. Call at
// shutdown or checkpoint boundaries; persistence to the property layer is
// write-behind, not per mutation.
func (c *Cache) Commit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, contents := range c.buckets {
		c.persistBucket(name, contents)
	}
	c.logger.Debug("Persisted cache buckets to property store")
}

// Close commits the cache. It satisfies the usual shutdown contract for
// hosts that tear the engine down with a deferred Close.
func (c *Cache) Close() error {
	c.Commit()
	return nil
}

// getBucket validates the bucket name and returns the resident mapping,
// lazily rehydrating it from the property store on first access. Must be
// called with the lock held.
func (c *Cache) getBucket(name string) (bucket, error) {
	if !knownBucket(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBucket, name)
	}

	b, ok := c.buckets[name]
	if !ok {
		b = c.loadBucket(name)
		c.buckets[name] = b
	}
	return b, nil
}

func knownBucket(name string) bool {
	for _, known := range BucketNames {
		if name == known {
			return true
		}
	}
	return false
}

// loadBucket deserializes a bucket snapshot from the property store. Any
// failure yields a fresh empty bucket.
func (c *Cache) loadBucket(name string) bucket {
	data, err := c.props.Get(c.propertyKey(name))
	if err == nil {
		b, decodeErr := decodeBucket(data)
		if decodeErr == nil {
			// gob leaves the map nil when the snapshot was empty.
			if b == nil {
				b = make(bucket)
			}
			return b
		}
		err = decodeErr
	}
	c.logger.Debug("No usable snapshot for bucket, creating new instance",
		"bucket", name, "reason", err)
	return make(bucket)
}

// persistBucket serializes a bucket into its property slot. Failures are
// logged and swallowed. Must be called with the lock held.
func (c *Cache) persistBucket(name string, contents bucket) {
	data, err := encodeBucket(contents)
	if err != nil {
		c.logger.Error("Failed to serialize bucket",
			"bucket", name, "error", err)
		return
	}
	if err := c.props.Set(c.propertyKey(name), data); err != nil {
		c.logger.Error("Failed to persist bucket to property store",
			"bucket", name, "error", err)
	}
}

func (c *Cache) propertyKey(bucketName string) string {
	return c.propPrefix + "_" + bucketName
}
