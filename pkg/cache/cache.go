// Package cache stores repository responses (POM descriptors, version
// metadata, raw HTTP bodies) between runs.
//
// Three backends implement [Cache]:
//   - [FileCache]: JSON entries under a directory, for the CLI
//   - [RedisCache]: shared cache for `depresolve serve` deployments
//   - [NullCache]: disables caching
//
// Keys are built by a [Keyer] so that every backend agrees on the layout.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the cached value and true, or nil and false on a miss.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs per entry kind.
const (
	// DescriptorTTL applies to released POM descriptors, which never change.
	DescriptorTTL = 7 * 24 * time.Hour

	// SnapshotTTL applies to descriptors of SNAPSHOT versions.
	SnapshotTTL = time.Hour

	// MetadataTTL applies to maven-metadata.xml, which changes on every release.
	MetadataTTL = 6 * time.Hour
)
