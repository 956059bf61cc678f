package contextgen

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/pkg/types"
)

// fakeEntryStore serves canned entries per entity type and can be told to
// fail specific types.
type fakeEntryStore struct {
	mu      sync.Mutex
	entries map[types.EntityType][]types.Entry
	totals  map[types.EntityType]int
	failing map[types.EntityType]error
	calls   map[types.EntityType]int
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{
		entries: make(map[types.EntityType][]types.Entry),
		totals:  make(map[types.EntityType]int),
		failing: make(map[types.EntityType]error),
		calls:   make(map[types.EntityType]int),
	}
}

func (s *fakeEntryStore) UpsertEntry(ctx context.Context, e types.Entry) error { return nil }
func (s *fakeEntryStore) GetEntry(ctx context.Context, id string) (types.Entry, error) {
	return nil, storage.ErrNotFound
}
func (s *fakeEntryStore) DeleteEntry(ctx context.Context, id string) error { return nil }

func (s *fakeEntryStore) ListEntries(ctx context.Context, kind types.EntityType, f storage.EntryFilter) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[kind]++
	if err := s.failing[kind]; err != nil {
		return nil, err
	}
	return s.entries[kind], nil
}

func (s *fakeEntryStore) CountEntries(ctx context.Context, kind types.EntityType, f storage.EntryFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total, ok := s.totals[kind]; ok {
		return total, nil
	}
	return len(s.entries[kind]), nil
}

func (s *fakeEntryStore) CountByKind(ctx context.Context, profileID string) (map[types.EntityType]int, error) {
	return nil, nil
}

func (s *fakeEntryStore) callCount(kind types.EntityType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

func TestFetch_AllTypes(t *testing.T) {
	store := newFakeEntryStore()
	store.entries[types.EntitySkills] = []types.Entry{
		&types.Skill{Record: types.Record{ID: "s1", ProfileID: "p1"}, Name: "Go"},
	}
	fetcher := NewFetcher(store)

	persona := types.Persona{Name: "default"}
	results := fetcher.Fetch(context.Background(), "p1", &persona)

	require.Len(t, results, len(types.AllEntityTypes))
	assert.Len(t, results[types.EntitySkills].Entries, 1)
	assert.Empty(t, results[types.EntityCareer].Entries)
}

func TestFetch_SkipsExcludedAndZeroWeighted(t *testing.T) {
	store := newFakeEntryStore()
	fetcher := NewFetcher(store)

	persona := types.Persona{
		Name:            "professional",
		ExcludeEntities: []types.EntityType{types.EntityHealth},
		EntityWeights:   map[types.EntityType]float64{types.EntityHobbies: 0},
	}
	results := fetcher.Fetch(context.Background(), "p1", &persona)

	_, health := results[types.EntityHealth]
	_, hobbies := results[types.EntityHobbies]
	assert.False(t, health, "excluded type must not be fetched")
	assert.False(t, hobbies, "zero-weighted type must not be fetched")
	assert.Zero(t, store.callCount(types.EntityHealth))
	assert.Zero(t, store.callCount(types.EntityHobbies))
}

func TestFetch_TotalBeyondCap(t *testing.T) {
	store := newFakeEntryStore()
	store.entries[types.EntitySkills] = []types.Entry{
		&types.Skill{Record: types.Record{ID: "s1", ProfileID: "p1"}, Name: "Go"},
		&types.Skill{Record: types.Record{ID: "s2", ProfileID: "p1"}, Name: "SQL"},
	}
	store.totals[types.EntitySkills] = 40
	fetcher := NewFetcher(store)

	persona := types.Persona{Name: "default", MaxEntriesPerType: 2}
	results := fetcher.Fetch(context.Background(), "p1", &persona)

	assert.Len(t, results[types.EntitySkills].Entries, 2)
	assert.Equal(t, 40, results[types.EntitySkills].Total)
}

func TestFetch_FailingTypeDegradesToEmpty(t *testing.T) {
	store := newFakeEntryStore()
	store.entries[types.EntitySkills] = []types.Entry{
		&types.Skill{Record: types.Record{ID: "s1", ProfileID: "p1"}, Name: "Go"},
	}
	store.failing[types.EntityCareer] = errors.New("disk on fire")
	fetcher := NewFetcher(store)

	persona := types.Persona{Name: "default"}
	results := fetcher.Fetch(context.Background(), "p1", &persona)

	// The failure stays contained in its own type.
	assert.Empty(t, results[types.EntityCareer].Entries)
	assert.Len(t, results[types.EntitySkills].Entries, 1)
}

func TestFetch_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	store := newFakeEntryStore()
	store.failing[types.EntityCareer] = errors.New("disk on fire")
	fetcher := NewFetcher(store)

	persona := types.Persona{Name: "default"}
	for i := 0; i < 5; i++ {
		fetcher.Fetch(context.Background(), "p1", &persona)
	}

	// The breaker trips after 3 consecutive failures; later passes skip the
	// store entirely for that type.
	assert.Equal(t, 3, store.callCount(types.EntityCareer))
	assert.Equal(t, 5, store.callCount(types.EntitySkills), "healthy types keep flowing")
}
