package contextgen

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/pkg/types"
)

// FetchResult holds the bounded result set for one entity type plus the
// total number of rows that matched the filters before the per-type cap.
type FetchResult struct {
	Entries []types.Entry
	Total   int
}

// Fetcher retrieves candidate entries for a generation pass, one concurrent
// bounded query per entity type. A per-type circuit breaker makes a failing
// backend degrade fast to empty results instead of stalling every call.
type Fetcher struct {
	entries  storage.EntryStore
	breakers map[types.EntityType]*gobreaker.CircuitBreaker
}

// NewFetcher creates a Fetcher over the given entry store.
func NewFetcher(entries storage.EntryStore) *Fetcher {
	breakers := make(map[types.EntityType]*gobreaker.CircuitBreaker, len(types.AllEntityTypes))
	for _, kind := range types.AllEntityTypes {
		breakers[kind] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        string(kind),
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
	}
	return &Fetcher{entries: entries, breakers: breakers}
}

// candidateTypes returns the entity types to fetch for a persona: the fixed
// set minus exclusions minus zero-weighted types.
func candidateTypes(persona *types.Persona) []types.EntityType {
	kinds := make([]types.EntityType, 0, len(types.AllEntityTypes))
	for _, kind := range types.AllEntityTypes {
		if persona.Excludes(kind) {
			continue
		}
		if persona.Weight(kind) <= 0 {
			continue
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

// Fetch retrieves the candidate entries for every applicable entity type
// concurrently. A failed type degrades to an empty result for that type
// only; the overall fetch always succeeds.
func (f *Fetcher) Fetch(ctx context.Context, profileID string, persona *types.Persona) map[types.EntityType]FetchResult {
	kinds := candidateTypes(persona)

	filter := storage.EntryFilter{
		ProfileID:      profileID,
		MinImportance:  persona.MinImportance,
		MinConfidence:  persona.MinConfidence,
		IncludePrivate: persona.IncludePrivate,
		Limit:          persona.MaxEntriesPerType,
	}

	results := make([]FetchResult, len(kinds))
	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind types.EntityType) {
			defer wg.Done()
			results[i] = f.fetchOne(ctx, kind, filter)
		}(i, kind)
	}
	wg.Wait()

	out := make(map[types.EntityType]FetchResult, len(kinds))
	for i, kind := range kinds {
		out[kind] = results[i]
	}
	return out
}

// fetchOne runs the bounded query for one entity type through its circuit
// breaker. Any failure (including an open breaker) yields an empty result.
func (f *Fetcher) fetchOne(ctx context.Context, kind types.EntityType, filter storage.EntryFilter) FetchResult {
	res, err := f.breakers[kind].Execute(func() (interface{}, error) {
		entries, err := f.entries.ListEntries(ctx, kind, filter)
		if err != nil {
			return nil, err
		}
		total, err := f.entries.CountEntries(ctx, kind, filter)
		if err != nil {
			// The capped result set is still usable; fall back to its length.
			total = len(entries)
		}
		return FetchResult{Entries: entries, Total: total}, nil
	})
	if err != nil {
		log.Printf("contextgen: fetch %s failed, skipping: %v", kind, err)
		return FetchResult{}
	}
	return res.(FetchResult)
}
