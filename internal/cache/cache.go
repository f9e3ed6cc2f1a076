package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// keyVersion is bumped whenever the cached payload format changes
const keyVersion = "v1"

// Key builds a namespaced cache key, e.g. Key("search", "serper", "10", query).
// Parts are hashed so keys are safe as file names.
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "firecheck_" + keyVersion + "_" + namespace + "_" + hex.EncodeToString(hash[:])
}
