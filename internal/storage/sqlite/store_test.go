package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestProfileCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := &types.Profile{
		ID:         "p1",
		Name:       "Ada Lovelace",
		Title:      "Analyst",
		CoreValues: []string{"rigor", "curiosity"},
	}
	require.NoError(t, store.CreateProfile(ctx, p))
	assert.False(t, p.CreatedAt.IsZero(), "CreateProfile must stamp created_at")

	got, err := store.GetProfile(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, []string{"rigor", "curiosity"}, got.CoreValues)

	got.Title = "Countess"
	require.NoError(t, store.UpdateProfile(ctx, got))
	got, err = store.GetProfile(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Countess", got.Title)
}

func TestGetProfile_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateProfile_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateProfile(context.Background(), &types.Profile{ID: "ghost", Name: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDefaultProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.DefaultProfile(ctx)
	assert.ErrorIs(t, err, storage.ErrNoProfile)

	first := &types.Profile{ID: "p1", Name: "First", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	second := &types.Profile{ID: "p2", Name: "Second", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.CreateProfile(ctx, second))
	require.NoError(t, store.CreateProfile(ctx, first))

	got, err := store.DefaultProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID, "earliest created profile wins")
}

func TestPersonaUpsertAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &types.PersonaRecord{
		ID:        "per1",
		ProfileID: "p1",
		Name:      "conference",
		EntityWeights: map[types.EntityType]float64{
			types.EntityCareer: 2.0,
		},
	}
	require.NoError(t, store.SavePersona(ctx, rec))

	// Same profile+name upserts in place.
	rec.MinImportance = 6
	require.NoError(t, store.SavePersona(ctx, rec))

	got, err := store.GetPersona(ctx, "p1", "conference")
	require.NoError(t, err)
	assert.Equal(t, 6, got.MinImportance)
	assert.Equal(t, 2.0, got.EntityWeights[types.EntityCareer])

	require.NoError(t, store.SavePersona(ctx, &types.PersonaRecord{
		ID: "per2", ProfileID: "p1", Name: "blogging",
	}))
	names, err := store.ListPersonaNames(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"blogging", "conference"}, names, "sorted by name")

	require.NoError(t, store.DeletePersona(ctx, "p1", "blogging"))
	assert.ErrorIs(t, store.DeletePersona(ctx, "p1", "blogging"), storage.ErrNotFound)

	_, err = store.GetPersona(ctx, "p1", "blogging")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPersonaScopedByProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePersona(ctx, &types.PersonaRecord{
		ID: "per1", ProfileID: "p1", Name: "conference",
	}))

	_, err := store.GetPersona(ctx, "p2", "conference")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEntryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := &types.CareerEntry{
		Record: types.Record{
			ID: "c1", ProfileID: "p1", Importance: 8, Confidence: 9,
			Tags: []string{"waf", "security"},
		},
		Role:         "Technical lead",
		Organization: "Analytical Engines Ltd",
		Summary:      "Replaced every machine with no downtime",
		Insights:     []string{"rehearse the runbook"},
	}
	require.NoError(t, store.UpsertEntry(ctx, entry))

	got, err := store.GetEntry(ctx, "c1")
	require.NoError(t, err)
	career, ok := got.(*types.CareerEntry)
	require.True(t, ok)
	assert.Equal(t, "Technical lead", career.Role)
	assert.Equal(t, []string{"waf", "security"}, career.Meta().Tags)
	assert.Equal(t, []string{"rehearse the runbook"}, career.Insights)

	// Upsert replaces.
	entry.Role = "Principal"
	require.NoError(t, store.UpsertEntry(ctx, entry))
	got, err = store.GetEntry(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Principal", got.(*types.CareerEntry).Role)

	require.NoError(t, store.DeleteEntry(ctx, "c1"))
	assert.ErrorIs(t, store.DeleteEntry(ctx, "c1"), storage.ErrNotFound)
	_, err = store.GetEntry(ctx, "c1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpsertEntry_MaterialisesDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Unset importance/confidence must land as the effective 5/8 so the
	// indexed floor filters compare against real values.
	require.NoError(t, store.UpsertEntry(ctx, &types.Skill{
		Record: types.Record{ID: "s1", ProfileID: "p1"},
		Name:   "Mathematics",
	}))

	entries, err := store.ListEntries(ctx, types.EntitySkills, storage.EntryFilter{
		ProfileID: "p1", MinImportance: 5, MinConfidence: 8,
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = store.ListEntries(ctx, types.EntitySkills, storage.EntryFilter{
		ProfileID: "p1", MinImportance: 6,
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListEntries_Ordering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []*types.Skill{
		{Record: types.Record{ID: "s-b", ProfileID: "p1", Importance: 7, CreatedAt: old}, Name: "B"},
		{Record: types.Record{ID: "s-a", ProfileID: "p1", Importance: 7, CreatedAt: old}, Name: "A"},
		{Record: types.Record{ID: "s-c", ProfileID: "p1", Importance: 9, CreatedAt: old}, Name: "C"},
	} {
		require.NoError(t, store.UpsertEntry(ctx, s))
	}

	entries, err := store.ListEntries(ctx, types.EntitySkills, storage.EntryFilter{ProfileID: "p1"})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// importance DESC first, then id ASC among equals written in the same
	// instant.
	assert.Equal(t, "s-c", entries[0].Meta().ID)
	assert.Equal(t, "s-a", entries[1].Meta().ID)
	assert.Equal(t, "s-b", entries[2].Meta().ID)
}

func TestListEntries_Limit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.UpsertEntry(ctx, &types.Skill{
			Record: types.Record{ID: fmt.Sprintf("s%d", i), ProfileID: "p1", Importance: 5 + i},
			Name:   fmt.Sprintf("Skill %d", i),
		}))
	}

	entries, err := store.ListEntries(ctx, types.EntitySkills, storage.EntryFilter{ProfileID: "p1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	total, err := store.CountEntries(ctx, types.EntitySkills, storage.EntryFilter{ProfileID: "p1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total, "count ignores the limit")
}

func TestListEntries_PrivacyFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertEntry(ctx, &types.HealthEntry{
		Record:    types.Record{ID: "h1", ProfileID: "p1", Importance: 7},
		Title:     "hay fever",
		IsPrivate: true,
	}))
	require.NoError(t, store.UpsertEntry(ctx, &types.HealthEntry{
		Record: types.Record{ID: "h2", ProfileID: "p1", Importance: 7},
		Title:  "marathon training",
	}))

	entries, err := store.ListEntries(ctx, types.EntityHealth, storage.EntryFilter{ProfileID: "p1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "h2", entries[0].Meta().ID)

	entries, err = store.ListEntries(ctx, types.EntityHealth, storage.EntryFilter{ProfileID: "p1", IncludePrivate: true})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListEntries_FAQVisibility(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertEntry(ctx, &types.FAQEntry{
		Record:   types.Record{ID: "f1", ProfileID: "p1"},
		Question: "Public?", Answer: "Yes", IsPublic: true,
	}))
	require.NoError(t, store.UpsertEntry(ctx, &types.FAQEntry{
		Record:   types.Record{ID: "f2", ProfileID: "p1"},
		Question: "Draft?", Answer: "Not yet",
	}))

	// FAQ entries are opt-in public: drafts only surface with
	// include-private.
	entries, err := store.ListEntries(ctx, types.EntityFAQ, storage.EntryFilter{ProfileID: "p1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f1", entries[0].Meta().ID)

	entries, err = store.ListEntries(ctx, types.EntityFAQ, storage.EntryFilter{ProfileID: "p1", IncludePrivate: true})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListEntries_UnknownKind(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ListEntries(context.Background(), "feelings", storage.EntryFilter{ProfileID: "p1"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCountByKind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertEntry(ctx, &types.Skill{
		Record: types.Record{ID: "s1", ProfileID: "p1"}, Name: "Go",
	}))
	require.NoError(t, store.UpsertEntry(ctx, &types.Skill{
		Record: types.Record{ID: "s2", ProfileID: "p1"}, Name: "SQL",
	}))
	require.NoError(t, store.UpsertEntry(ctx, &types.CareerEntry{
		Record: types.Record{ID: "c1", ProfileID: "p1"}, Role: "Lead",
	}))
	require.NoError(t, store.UpsertEntry(ctx, &types.Skill{
		Record: types.Record{ID: "s3", ProfileID: "other"}, Name: "Nope",
	}))

	counts, err := store.CountByKind(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, map[types.EntityType]int{
		types.EntitySkills: 2,
		types.EntityCareer: 1,
	}, counts)
}
