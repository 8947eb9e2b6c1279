package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	// libraryFile is the fixed location of the reserved bucket's single
	// serialized unit, directly under the data root.
	libraryFile = "library.ndb"

	cacheDirName   = "cache"
	entryExtension = ".cache"

	// compressMin is the smallest payload worth compressing.
	compressMin = 1024
)

// zstd frame magic, used to recognize compressed entries on read.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// diskStore persists one file per (bucket, identifier) under the data root.
// The reserved library bucket maps every identifier to a single fixed path.
type diskStore struct {
	root     string
	compress bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// newDiskStore creates the store and eagerly creates the per-bucket
// directory tree. The reserved bucket gets no directory: its file lives
// directly at the root.
func newDiskStore(root string, compress bool) (*diskStore, error) {
	for _, name := range BucketNames {
		if name == BucketLibrary {
			continue
		}
		if err := os.MkdirAll(filepath.Join(root, cacheDirName, name), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory for %s: %w", name, err)
		}
	}

	ds := &diskStore{root: root, compress: compress}

	var err error
	ds.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	if compress {
		ds.encoder, err = zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}

	return ds, nil
}

// pathFlattener strips path separators from identifiers so an entry file
// can never land outside its bucket directory.
var pathFlattener = strings.NewReplacer("/", "_", "\\", "_")

// entryPath returns the file path for an entry.
func (ds *diskStore) entryPath(bucketName, identifier string) string {
	if bucketName == BucketLibrary {
		return filepath.Join(ds.root, libraryFile)
	}
	identifier = pathFlattener.Replace(identifier)
	return filepath.Join(ds.root, cacheDirName, bucketName, identifier+entryExtension)
}

// read loads an entry from disk. Every failure mode (missing file, corrupt
// data) is reported as ErrCacheMiss.
func (ds *diskStore) read(bucketName, identifier string) (Entry, error) {
	data, err := os.ReadFile(ds.entryPath(bucketName, identifier))
	if err != nil {
		return Entry{}, ErrCacheMiss
	}

	if bytes.HasPrefix(data, zstdMagic) {
		data, err = ds.decoder.DecodeAll(data, nil)
		if err != nil {
			return Entry{}, ErrCacheMiss
		}
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return Entry{}, ErrCacheMiss
	}
	return entry, nil
}

// write serializes an entry and overwrites any previous file.
func (ds *diskStore) write(bucketName, identifier string, entry Entry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize entry: %w", err)
	}

	if ds.compress && len(data) > compressMin {
		compressed := ds.encoder.EncodeAll(data, nil)
		if len(compressed) < len(data) {
			data = compressed
		}
	}

	return ds.writeFile(ds.entryPath(bucketName, identifier), data)
}

// writeFile writes to a temp file first, then renames.
func (ds *diskStore) writeFile(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}

// remove deletes the entry file. A file that doesn't exist is not an error.
func (ds *diskStore) remove(bucketName, identifier string) error {
	err := os.Remove(ds.entryPath(bucketName, identifier))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// exists reports whether an entry file is present on disk.
func (ds *diskStore) exists(bucketName, identifier string) bool {
	_, err := os.Stat(ds.entryPath(bucketName, identifier))
	return err == nil
}

// clearBucket removes every entry file of a bucket and recreates its empty
// directory. The reserved bucket is shielded from bulk clearing.
func (ds *diskStore) clearBucket(bucketName string) error {
	if bucketName == BucketLibrary {
		return nil
	}
	dir := filepath.Join(ds.root, cacheDirName, bucketName)
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
