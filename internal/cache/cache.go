// Package cache implements the per-category result cache: a key→payload
// store with time-based expiry and size-bounded eviction. It performs no I/O
// and knows nothing about the provider; callers decide what a key means.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/meetmid/places-gateway/internal/domain"
)

// evictFraction is the share of a bucket removed (oldest first) when an
// insert pushes it over its entry limit.
const evictFraction = 0.2

// Policy configures one category's bucket. A zero TTL disables expiry; a
// zero MaxEntries leaves the bucket unbounded.
type Policy struct {
	TTL        time.Duration
	MaxEntries int
}

type entry struct {
	payload        domain.ProviderResponse
	storedAt       time.Time
	lastAccessedAt time.Time
	seq            uint64 // insertion order, breaks storedAt ties on eviction
}

type bucket struct {
	policy  Policy
	entries map[string]*entry
	nextSeq uint64
}

// Store is a thread-safe per-category cache. Buckets for categories without
// an explicit policy are created on first use with the default policy.
type Store struct {
	clock         clockwork.Clock
	defaultPolicy Policy

	mu      sync.Mutex
	buckets map[domain.Category]*bucket
}

// New creates a Store with the given per-category policies.
func New(clock clockwork.Clock, policies map[domain.Category]Policy, defaultPolicy Policy) *Store {
	s := &Store{
		clock:         clock,
		defaultPolicy: defaultPolicy,
		buckets:       make(map[domain.Category]*bucket, len(policies)),
	}
	for cat, p := range policies {
		s.buckets[cat] = &bucket{policy: p, entries: make(map[string]*entry)}
	}
	return s
}

// Get returns the cached payload for key, refreshing its last-access time.
// Entries at or past their category TTL read as absent and are dropped.
func (s *Store) Get(cat domain.Category, key string) (domain.ProviderResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[cat]
	if !ok {
		return domain.ProviderResponse{}, false
	}
	e, ok := b.entries[key]
	if !ok {
		return domain.ProviderResponse{}, false
	}

	now := s.clock.Now()
	if b.policy.TTL > 0 && now.Sub(e.storedAt) >= b.policy.TTL {
		delete(b.entries, key)
		return domain.ProviderResponse{}, false
	}

	e.lastAccessedAt = now
	return e.payload, true
}

// Put inserts or overwrites the entry for key, then evicts the oldest
// entries while the bucket exceeds its size limit. storedAt is not preserved
// on overwrite: a fresh payload restarts the expiry window.
func (s *Store) Put(cat domain.Category, key string, payload domain.ProviderResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[cat]
	if !ok {
		b = &bucket{policy: s.defaultPolicy, entries: make(map[string]*entry)}
		s.buckets[cat] = b
	}

	now := s.clock.Now()
	b.nextSeq++
	b.entries[key] = &entry{
		payload:        payload,
		storedAt:       now,
		lastAccessedAt: now,
		seq:            b.nextSeq,
	}

	for b.policy.MaxEntries > 0 && len(b.entries) > b.policy.MaxEntries {
		b.evictOldest()
	}
}

// evictOldest removes the oldest evictFraction of the bucket by storedAt,
// ties broken by insertion order. At least one entry is always removed so
// the caller's loop makes progress.
func (b *bucket) evictOldest() {
	n := int(float64(len(b.entries)) * evictFraction)
	if n < 1 {
		n = 1
	}

	type keyed struct {
		key string
		e   *entry
	}
	all := make([]keyed, 0, len(b.entries))
	for k, e := range b.entries {
		all = append(all, keyed{key: k, e: e})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].e.storedAt.Equal(all[j].e.storedAt) {
			return all[i].e.seq < all[j].e.seq
		}
		return all[i].e.storedAt.Before(all[j].e.storedAt)
	})

	for _, k := range all[:n] {
		delete(b.entries, k.key)
	}
}

// Clear empties one category's bucket.
func (s *Store) Clear(cat domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[cat]; ok {
		b.entries = make(map[string]*entry)
	}
}

// ClearAll empties every bucket.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.buckets {
		b.entries = make(map[string]*entry)
	}
}

// Len reports the number of entries in one category, expired ones included
// until they are read or cleared.
func (s *Store) Len(cat domain.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[cat]
	if !ok {
		return 0
	}
	return len(b.entries)
}

// Sizes reports entry counts for every bucket.
func (s *Store) Sizes() map[domain.Category]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sizes := make(map[domain.Category]int, len(s.buckets))
	for cat, b := range s.buckets {
		sizes[cat] = len(b.entries)
	}
	return sizes
}
