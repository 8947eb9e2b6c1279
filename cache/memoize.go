package cache

import (
	"errors"
	"fmt"
	"time"
)

// Args carries a producer's call arguments so the wrapper can resolve the
// cache identifier from them.
type Args struct {
	Positional []any
	Named      map[string]any
}

// Producer computes a value that is worth caching.
type Producer func(Args) (any, error)

// MemoizeOptions selects the bucket and the identifier-resolution strategy
// for a wrapped producer.
type MemoizeOptions struct {
	Bucket string

	// FixedIdentifier, when non-empty, is used as the identifier for
	// every call.
	FixedIdentifier string

	// ArgName names the argument holding the identifier. A named
	// argument takes precedence over the positional one.
	ArgName string

	// ArgIndex is the positional argument holding the identifier when no
	// named argument matches.
	ArgIndex int

	TTL    time.Duration
	ToDisk bool
}

// identifier resolves the cache identifier for one call. A resolution
// failure is a configuration error, reported immediately.
func (o MemoizeOptions) identifier(args Args) (string, error) {
	if o.FixedIdentifier != "" {
		return o.FixedIdentifier, nil
	}
	if o.ArgName != "" {
		if v, ok := args.Named[o.ArgName]; ok {
			return fmt.Sprint(v), nil
		}
	}
	if o.ArgIndex < 0 || o.ArgIndex >= len(args.Positional) {
		return "", fmt.Errorf("%w: no argument named %q and no positional argument %d",
			ErrNoIdentifier, o.ArgName, o.ArgIndex)
	}
	return fmt.Sprint(args.Positional[o.ArgIndex]), nil
}

// Memoize wraps a producer so its output is cached. The first call with a
// given resolved identifier invokes the producer and stores the result; any
// later call returns the cached value until it expires or is invalidated.
// Producer errors are returned as-is and nothing is cached for them.
func (c *Cache) Memoize(opts MemoizeOptions, fn Producer) Producer {
	return func(args Args) (any, error) {
		identifier, err := opts.identifier(args)
		if err != nil {
			c.logger.Error("Invalid cache configuration", "bucket", opts.Bucket, "error", err)
			return nil, err
		}

		if content, err := c.Get(opts.Bucket, identifier); err == nil {
			return content, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			return nil, err
		}

		output, err := fn(args)
		if err != nil {
			return nil, err
		}
		if err := c.Add(opts.Bucket, identifier, output, opts.TTL, opts.ToDisk); err != nil {
			return nil, err
		}
		return output, nil
	}
}

// InjectCached wraps a producer that wants the previously cached value as
// an input. The cached value for the resolved identifier (or nil on miss)
// is passed to the producer as the named argument param, and the producer's
// result replaces it in the cache.
func (c *Cache) InjectCached(opts MemoizeOptions, param string, fn Producer) Producer {
	return func(args Args) (any, error) {
		identifier, err := opts.identifier(args)
		if err != nil {
			c.logger.Error("Invalid cache configuration", "bucket", opts.Bucket, "error", err)
			return nil, err
		}

		cached, err := c.Get(opts.Bucket, identifier)
		if err != nil && !errors.Is(err, ErrCacheMiss) {
			return nil, err
		}

		if args.Named == nil {
			args.Named = make(map[string]any)
		}
		args.Named[param] = cached

		output, err := fn(args)
		if err != nil {
			return nil, err
		}
		if err := c.Add(opts.Bucket, identifier, output, opts.TTL, opts.ToDisk); err != nil {
			return nil, err
		}
		return output, nil
	}
}
