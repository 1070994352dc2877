// Package cache provides the caching layer for the distflow pipeline.
//
// Two stages are cached: circuit extraction (a parsed network model,
// keyed by the hash of the circuit file) and solve results (keyed by
// the model hash plus the load case). The [Cache] interface has file,
// redis and null implementations; the CLI uses the file backend, the
// API server can use redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Default TTLs per cached stage. Extracted models only change when the
// circuit file changes (and the file hash is part of the key), so they
// can live long; solve results are cheap to recompute and kept shorter.
const (
	TTLModel = 30 * 24 * time.Hour
	TTLSolve = 24 * time.Hour
)

// Cache is a byte-oriented key-value store with expiry.
type Cache interface {
	// Get returns the cached data and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// Keyer builds namespaced cache keys for the pipeline stages.
type Keyer struct {
	// Prefix isolates namespaces when one backend is shared, e.g.
	// between API tenants. Empty is fine for the CLI.
	Prefix string
}

// ModelKey is the cache key for a model extracted from a circuit file
// with the given content hash and bases.
func (k Keyer) ModelKey(circuitHash string, vBaseKVLL, sBaseMVA float64) string {
	return k.Prefix + hashKey("model", circuitHash, vBaseKVLL, sBaseMVA)
}

// SolveKey is the cache key for a solve result over a model hash and a
// serialized load case.
func (k Keyer) SolveKey(modelHash string, caseHash string) string {
	return k.Prefix + hashKey("solve", modelHash, caseHash)
}

// hashKey hashes the parts into a prefixed key.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash computes the SHA-256 of data as a 64-character hex string.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NullCache is a no-op cache used when caching is disabled.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache { return &NullCache{} }

// Get always misses.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error { return nil }

// Close does nothing.
func (c *NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
