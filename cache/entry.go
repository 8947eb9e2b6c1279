package cache

import (
	"bytes"
	"encoding/gob"
	"time"
)

// Known bucket names. The set is closed: operations on any other name fail
// with ErrUnknownBucket.
const (
	BucketCommon     = "cache_common"
	BucketVideoList  = "cache_video_list"
	BucketSeasons    = "cache_seasons"
	BucketEpisodes   = "cache_episodes"
	BucketMetadata   = "cache_metadata"
	BucketInfoLabels = "cache_infolabels"
	BucketArtInfo    = "cache_artinfo"

	// BucketLibrary is the reserved bucket. It resolves to a single fixed
	// file at the data root so users can't delete it along with the rest
	// of the cache tree.
	BucketLibrary = "library"
)

// BucketNames lists every known bucket.
var BucketNames = []string{
	BucketCommon, BucketVideoList, BucketSeasons, BucketEpisodes,
	BucketMetadata, BucketInfoLabels, BucketArtInfo, BucketLibrary,
}

// TTLInfinite is a TTL for entries that should effectively never expire.
const TTLInfinite = 100 * 365 * 24 * time.Hour

// Entry is a TTL-stamped wrapper around arbitrary cached content.
type Entry struct {
	// Content is the cached value. Custom content types must be
	// registered with RegisterContent before they cross a serialization
	// boundary (disk or property store).
	Content any

	// EOL is the absolute expiry instant in seconds since the epoch.
	EOL int64
}

// Expired reports whether the entry has reached its end of life at t.
func (e Entry) Expired(t time.Time) bool {
	return e.EOL < t.Unix()
}

// RegisterContent registers a content type for serialization. Hosts caching
// their own struct types must call this once per type at startup.
func RegisterContent(v any) {
	gob.Register(v)
}

func init() {
	// Content types commonly produced by decoding JSON API responses.
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(map[string]string{})
	gob.Register([]string{})
}

// bucket maps identifiers to entries. Identifiers are unique within a
// bucket only.
type bucket map[string]Entry

func encodeEntry(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func encodeBucket(b bucket) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBucket(data []byte) (bucket, error) {
	var b bucket
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, err
	}
	return b, nil
}
