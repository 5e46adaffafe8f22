package cache

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"time"
)

// NoExpiration keeps an item until it is overwritten or deleted
const NoExpiration time.Duration = -1

// Cache defines the storage medium for cached documents
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// SourceKey derives the cache key for a source URL with a stable 32-bit
// FNV-1a hash. A non-empty override is used verbatim.
func SourceKey(url, override string) string {
	if override != "" {
		return override
	}
	if url == "" {
		url = "no_url"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(url))
	return fmt.Sprintf("tabfind_cache__%x", h.Sum32())
}

// New builds the medium named by backend under dir
func New(backend, dir string) (Cache, error) {
	switch backend {
	case "", "layered":
		return NewLayeredCache(NoExpiration, filepath.Join(dir, "documents"), NoExpiration), nil
	case "memory":
		return NewMemoryCache(NoExpiration, 10*time.Minute), nil
	case "disk":
		return NewDiskCache(filepath.Join(dir, "documents"), NoExpiration), nil
	case "sqlite":
		return NewSQLiteCache(filepath.Join(dir, "cache.db"))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
