package account

import (
	"context"
	"strconv"
	"sync"

	"commercekit/internal/security"
)

// DefaultMetaPrefix is the namespace used for account meta keys when none
// is configured.
const DefaultMetaPrefix = "_ict"

// Store is the per-user key/value persistence used by the account service.
// Values are strings; absence is reported through the boolean.
type Store interface {
	// Get returns the value stored under key for userID.
	Get(ctx context.Context, userID int64, key string) (string, bool, error)

	// Set writes value under key for userID, creating it if needed.
	Set(ctx context.Context, userID int64, key, value string) error

	// Increment atomically adds one to the integer stored under key and
	// returns the new value. A missing key counts as zero.
	Increment(ctx context.Context, userID int64, key string) (int64, error)

	// SetAllMatching overwrites key with value for every user that has it
	// and returns how many rows changed.
	SetAllMatching(ctx context.Context, key, value string) (int64, error)
}

// MetaKeys names the four per-user values the service persists.
type MetaKeys struct {
	Tier     string
	Expiry   string
	Count    string
	LastSync string
}

// NewMetaKeys derives the key set from a namespace prefix. An empty prefix
// uses DefaultMetaPrefix.
func NewMetaKeys(prefix string) MetaKeys {
	if prefix == "" {
		prefix = DefaultMetaPrefix
	}
	return MetaKeys{
		Tier:     prefix + "_account_tier",
		Expiry:   prefix + "_pro_expiry",
		Count:    prefix + "_api_calls_count",
		LastSync: prefix + "_last_sync_date",
	}
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.Mutex
	data map[int64]map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[int64]map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, userID int64, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[userID][key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, userID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userLocked(userID)[key] = value
	return nil
}

func (s *MemoryStore) Increment(_ context.Context, userID int64, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.userLocked(userID)
	n := security.AbsInt(meta[key]) + 1
	meta[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (s *MemoryStore) SetAllMatching(_ context.Context, key, value string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, meta := range s.data {
		if _, ok := meta[key]; ok {
			meta[key] = value
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) userLocked(userID int64) map[string]string {
	meta, ok := s.data[userID]
	if !ok {
		meta = make(map[string]string)
		s.data[userID] = meta
	}
	return meta
}
