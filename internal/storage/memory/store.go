package memory

import (
	"context"
	"sort"
	"sync"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
//
// Rows are stored by value, so callers never share memory with the store.
// Writes made inside WithTx are buffered in an overlay and applied under a
// single write lock on commit: readers see either none or all of them.
type Store struct {
	mu        sync.RWMutex
	pools     map[string]domain.VestingPool  // keyed by address
	schedules map[string]domain.Schedule     // keyed by address
	accounts  map[string]domain.TokenAccount // keyed by address
	claims    map[string]domain.ClaimRecord  // keyed by claim_id
}

// NewStore creates a new in-memory vesting store.
func NewStore() *Store {
	return &Store{
		pools:     make(map[string]domain.VestingPool),
		schedules: make(map[string]domain.Schedule),
		accounts:  make(map[string]domain.TokenAccount),
		claims:    make(map[string]domain.ClaimRecord),
	}
}

// Pools returns an autocommit PoolStore.
func (s *Store) Pools() storage.PoolStore {
	return &PoolStore{rows: table[domain.VestingPool]{mu: &s.mu, base: s.pools}}
}

// Schedules returns an autocommit ScheduleStore.
func (s *Store) Schedules() storage.ScheduleStore {
	return &ScheduleStore{rows: table[domain.Schedule]{mu: &s.mu, base: s.schedules}}
}

// Accounts returns an autocommit TokenAccountStore.
func (s *Store) Accounts() storage.TokenAccountStore {
	return &TokenAccountStore{rows: table[domain.TokenAccount]{mu: &s.mu, base: s.accounts}}
}

// Claims returns an autocommit ClaimStore.
func (s *Store) Claims() storage.ClaimStore {
	return &ClaimStore{rows: table[domain.ClaimRecord]{mu: &s.mu, base: s.claims}}
}

// WithTx runs fn against buffered stores and commits their writes atomically.
// Nothing is applied if fn returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	tx := &memTx{
		pools:     newTable(&s.mu, s.pools),
		schedules: newTable(&s.mu, s.schedules),
		accounts:  newTable(&s.mu, s.accounts),
		claims:    newTable(&s.mu, s.claims),
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.pools.conflicts() || tx.schedules.conflicts() || tx.accounts.conflicts() || tx.claims.conflicts() {
		return storage.ErrDuplicateKey
	}
	tx.pools.apply()
	tx.schedules.apply()
	tx.accounts.apply()
	tx.claims.apply()
	return nil
}

// memTx implements storage.Tx over overlays of the store tables.
type memTx struct {
	pools     table[domain.VestingPool]
	schedules table[domain.Schedule]
	accounts  table[domain.TokenAccount]
	claims    table[domain.ClaimRecord]
}

func (t *memTx) Pools() storage.PoolStore {
	return &PoolStore{rows: t.pools}
}

func (t *memTx) Schedules() storage.ScheduleStore {
	return &ScheduleStore{rows: t.schedules}
}

func (t *memTx) Accounts() storage.TokenAccountStore {
	return &TokenAccountStore{rows: t.accounts}
}

func (t *memTx) Claims() storage.ClaimStore {
	return &ClaimStore{rows: t.claims}
}

// overlay buffers a transaction's writes to one table.
type overlay[T any] struct {
	rows     map[string]T
	inserted map[string]struct{}
}

// table reads and writes one keyed set of rows. With a nil overlay every call
// autocommits under mu; otherwise writes go to the overlay until apply.
type table[T any] struct {
	mu   *sync.RWMutex
	base map[string]T
	ov   *overlay[T]
}

func newTable[T any](mu *sync.RWMutex, base map[string]T) table[T] {
	return table[T]{
		mu:   mu,
		base: base,
		ov: &overlay[T]{
			rows:     make(map[string]T),
			inserted: make(map[string]struct{}),
		},
	}
}

func (t table[T]) get(key string) (T, bool) {
	if t.ov != nil {
		if v, ok := t.ov.rows[key]; ok {
			return v, true
		}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.base[key]
	return v, ok
}

func (t table[T]) insert(key string, v T) error {
	if t.ov == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, exists := t.base[key]; exists {
			return storage.ErrDuplicateKey
		}
		t.base[key] = v
		return nil
	}

	if _, exists := t.get(key); exists {
		return storage.ErrDuplicateKey
	}
	t.ov.rows[key] = v
	t.ov.inserted[key] = struct{}{}
	return nil
}

// getOrInsert returns the row at key, storing v first if there is none.
func (t table[T]) getOrInsert(key string, v T) T {
	if t.ov == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if cur, exists := t.base[key]; exists {
			return cur
		}
		t.base[key] = v
		return v
	}

	if cur, exists := t.get(key); exists {
		return cur
	}
	t.ov.rows[key] = v
	t.ov.inserted[key] = struct{}{}
	return v
}

func (t table[T]) update(key string, fn func(*T)) error {
	if t.ov == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		v, exists := t.base[key]
		if !exists {
			return storage.ErrNotFound
		}
		fn(&v)
		t.base[key] = v
		return nil
	}

	v, exists := t.get(key)
	if !exists {
		return storage.ErrNotFound
	}
	fn(&v)
	t.ov.rows[key] = v
	return nil
}

// filter returns copies of all rows matching keep, overlay rows shadowing base rows.
func (t table[T]) filter(keep func(*T) bool) []*T {
	merged := make(map[string]T)
	t.mu.RLock()
	for k, v := range t.base {
		merged[k] = v
	}
	t.mu.RUnlock()
	if t.ov != nil {
		for k, v := range t.ov.rows {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result []*T
	for _, k := range keys {
		v := merged[k]
		if keep(&v) {
			result = append(result, &v)
		}
	}
	return result
}

// conflicts reports whether a buffered insert collides with a committed row.
// Caller must hold mu.
func (t table[T]) conflicts() bool {
	for k := range t.ov.inserted {
		if _, exists := t.base[k]; exists {
			return true
		}
	}
	return false
}

// apply writes the overlay into base. Caller must hold mu.
func (t table[T]) apply() {
	for k, v := range t.ov.rows {
		t.base[k] = v
	}
}

// Verify interface compliance at compile time.
var _ storage.Store = (*Store)(nil)
