// Package settings implements the flat key-value option store the dispatch
// layer reads its configuration from. Driver options are namespaced per
// driver so no two drivers can collide; a handful of global keys control the
// active driver selection and the host-wide sender override.
package settings

import (
	"strconv"
	"strings"
	"sync"
)

// Global option keys. Everything else in the store is driver scoped via
// DriverKey.
const (
	KeyActiveDriver = "mailroute_active_driver"
	KeyFromEmail    = "mailroute_from_email"
	KeyFromName     = "mailroute_from_name"
	KeyForceFrom    = "mailroute_force_from"
	KeyAdminEmail   = "mailroute_admin_email"
)

const keyPrefix = "mailroute_"

// Store is the contract every configuration consumer goes through. Reads
// return the supplied default when the key is absent or empty. Writes are
// expected to happen outside the hot send path (startup or admin time);
// implementations must still be safe for concurrent readers.
type Store interface {
	Get(key, def string) string
	GetInt(key string, def int) int
	GetBool(key string, def bool) bool
	Set(key, value string) error
}

// DriverKey builds the namespaced option key for a driver-scoped setting.
func DriverKey(driver, key string) string {
	return keyPrefix + driver + "_" + key
}

// GlobalKey builds the option key for a global, non-driver-scoped setting.
func GlobalKey(key string) string {
	return keyPrefix + key
}

// MemoryStore is an in-memory Store, used by tests and as the base for the
// file-backed implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates a MemoryStore seeded with the supplied values.
func NewMemoryStore(seed map[string]string) *MemoryStore {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

// Get returns the stored value for key, or def when absent or empty.
func (s *MemoryStore) Get(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if val, ok := s.values[key]; ok && val != "" {
		return val
	}
	return def
}

// GetInt returns the stored value parsed as an integer, or def when the key
// is absent or the value does not parse.
func (s *MemoryStore) GetInt(key string, def int) int {
	return parseInt(s.Get(key, ""), def)
}

// GetBool returns the stored value parsed as a boolean, or def when the key
// is absent or the value does not parse. Checkbox settings are persisted as
// "1"/"0", which strconv.ParseBool accepts.
func (s *MemoryStore) GetBool(key string, def bool) bool {
	return parseBool(s.Get(key, ""), def)
}

// Set stores a value. Empty values delete the key so Get falls back to the
// caller's default.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(value) == "" {
		delete(s.values, key)
		return nil
	}
	s.values[key] = value
	return nil
}

// snapshot returns a copy of the current values for persistence.
func (s *MemoryStore) snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func parseInt(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return i
}

func parseBool(raw string, def bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
