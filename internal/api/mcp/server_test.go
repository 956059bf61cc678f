package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfmap/selfmap/internal/contextgen"
	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/pkg/types"
)

// memStore is a minimal in-memory storage.Store for server tests.
type memStore struct {
	profiles []*types.Profile
	personas map[string]*types.PersonaRecord
	entries  map[string]types.Entry
}

func newMemStore() *memStore {
	return &memStore{
		personas: map[string]*types.PersonaRecord{},
		entries:  map[string]types.Entry{},
	}
}

func (m *memStore) CreateProfile(ctx context.Context, p *types.Profile) error {
	m.profiles = append(m.profiles, p)
	return nil
}

func (m *memStore) GetProfile(ctx context.Context, id string) (*types.Profile, error) {
	for _, p := range m.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) UpdateProfile(ctx context.Context, p *types.Profile) error {
	for i, existing := range m.profiles {
		if existing.ID == p.ID {
			m.profiles[i] = p
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) DefaultProfile(ctx context.Context) (*types.Profile, error) {
	if len(m.profiles) == 0 {
		return nil, storage.ErrNoProfile
	}
	return m.profiles[0], nil
}

func (m *memStore) SavePersona(ctx context.Context, rec *types.PersonaRecord) error {
	m.personas[rec.Name] = rec
	return nil
}

func (m *memStore) GetPersona(ctx context.Context, profileID, name string) (*types.PersonaRecord, error) {
	rec, ok := m.personas[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return rec, nil
}

func (m *memStore) ListPersonaNames(ctx context.Context, profileID string) ([]string, error) {
	names := make([]string, 0, len(m.personas))
	for name := range m.personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memStore) DeletePersona(ctx context.Context, profileID, name string) error {
	if _, ok := m.personas[name]; !ok {
		return storage.ErrNotFound
	}
	delete(m.personas, name)
	return nil
}

func (m *memStore) UpsertEntry(ctx context.Context, e types.Entry) error {
	m.entries[e.Meta().ID] = e
	return nil
}

func (m *memStore) GetEntry(ctx context.Context, id string) (types.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e, nil
}

func (m *memStore) DeleteEntry(ctx context.Context, id string) error {
	if _, ok := m.entries[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *memStore) ListEntries(ctx context.Context, kind types.EntityType, f storage.EntryFilter) ([]types.Entry, error) {
	var out []types.Entry
	for _, e := range m.entries {
		if e.Kind() != kind {
			continue
		}
		rec := e.Meta()
		if f.MinImportance > 0 && rec.EffectiveImportance() < f.MinImportance {
			continue
		}
		if f.MinConfidence > 0 && rec.EffectiveConfidence() < f.MinConfidence {
			continue
		}
		if !f.IncludePrivate && !types.EntryPrivacy(e) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Meta().ID < out[j].Meta().ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) CountEntries(ctx context.Context, kind types.EntityType, f storage.EntryFilter) (int, error) {
	unlimited := f
	unlimited.Limit = 0
	entries, err := m.ListEntries(ctx, kind, unlimited)
	return len(entries), err
}

func (m *memStore) CountByKind(ctx context.Context, profileID string) (map[types.EntityType]int, error) {
	counts := map[types.EntityType]int{}
	for _, e := range m.entries {
		counts[e.Kind()]++
	}
	return counts, nil
}

func (m *memStore) Close() error { return nil }

var frozenNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()
	store.profiles = append(store.profiles, &types.Profile{ID: "p1", Name: "Ada Lovelace", Title: "Analyst"})
	gen := contextgen.NewGenerator(store, contextgen.WithClock(func() time.Time { return frozenNow }))
	return NewServer(store, WithGenerator(gen)), store
}

func seedEntry(t *testing.T, store *memStore, e types.Entry) {
	t.Helper()
	require.NoError(t, store.UpsertEntry(context.Background(), e))
}

func TestGetContext_ReturnsDocument(t *testing.T) {
	srv, store := newTestServer(t)
	seedEntry(t, store, &types.Skill{
		Record: types.Record{ID: "s1", ProfileID: "p1", Importance: 9, Confidence: 9, UpdatedAt: frozenNow},
		Name:   "Mathematics",
	})

	doc, err := srv.GetContext(context.Background(), GetContextArgs{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "# Context: Ada Lovelace (Persona: default)"))
	assert.Contains(t, doc, "Mathematics")
}

func TestGetContext_NoProfileFails(t *testing.T) {
	srv := NewServer(newMemStore())
	_, err := srv.GetContext(context.Background(), GetContextArgs{})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNoProfile)
}

func TestListPersonas_PresetsAlwaysAvailable(t *testing.T) {
	srv, _ := newTestServer(t)
	res, err := srv.ListPersonas(context.Background(), GetProfileArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "professional", "interview", "personal", "creative"}, res.Personas[:5])
}

func TestSavePersona_RoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, err := srv.SavePersona(ctx, SavePersonaArgs{
		Name: "podcast",
		Tone: "conversational",
		EntityWeights: map[string]float64{
			"episodes": 2.0,
		},
	})
	require.NoError(t, err)

	res, err := srv.ListPersonas(ctx, GetProfileArgs{})
	require.NoError(t, err)
	assert.Contains(t, res.Personas, "podcast")

	// The saved persona drives generation without error.
	_, err = srv.GetContext(ctx, GetContextArgs{Persona: "podcast"})
	assert.NoError(t, err)
}

func TestSavePersona_RejectsPresetNames(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.SavePersona(context.Background(), SavePersonaArgs{Name: "professional"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preset")
}

func TestSavePersona_RejectsNegativeWeights(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.SavePersona(context.Background(), SavePersonaArgs{
		Name:          "broken",
		EntityWeights: map[string]float64{"skills": -1},
	})
	assert.Error(t, err)
}

func TestSavePersona_RejectsUnknownEntityType(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.SavePersona(context.Background(), SavePersonaArgs{
		Name:          "broken",
		EntityWeights: map[string]float64{"memories": 2},
	})
	assert.Error(t, err)
}

func TestDeletePersona(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, err := srv.SavePersona(ctx, SavePersonaArgs{Name: "podcast"})
	require.NoError(t, err)

	res, err := srv.DeletePersona(ctx, DeletePersonaArgs{Name: "podcast"})
	require.NoError(t, err)
	assert.True(t, res.Deleted)

	_, err = srv.DeletePersona(ctx, DeletePersonaArgs{Name: "podcast"})
	assert.Error(t, err, "second delete must report not found")

	_, err = srv.DeletePersona(ctx, DeletePersonaArgs{Name: "default"})
	assert.Error(t, err, "presets must not be deletable")
}

func TestCreateAndGetProfile(t *testing.T) {
	srv := NewServer(newMemStore())
	ctx := context.Background()

	created, err := srv.CreateProfile(ctx, CreateProfileArgs{
		Profile: types.Profile{Name: "Grace Hopper", Title: "Rear Admiral"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := srv.GetProfile(ctx, GetProfileArgs{})
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", got.Profile.Name)
}

func TestCreateProfile_RequiresName(t *testing.T) {
	srv := NewServer(newMemStore())
	_, err := srv.CreateProfile(context.Background(), CreateProfileArgs{})
	assert.Error(t, err)
}

func TestUpdateProfile_DefaultsToFirstProfile(t *testing.T) {
	srv, store := newTestServer(t)
	res, err := srv.UpdateProfile(context.Background(), UpdateProfileArgs{
		Profile: types.Profile{Name: "Ada King"},
	})
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, "p1", res.ID)
	assert.Equal(t, "Ada King", store.profiles[0].Name)
}

func TestUpdateProfile_PreservesCreatedAt(t *testing.T) {
	srv, store := newTestServer(t)
	store.profiles[0].CreatedAt = frozenNow

	_, err := srv.UpdateProfile(context.Background(), UpdateProfileArgs{
		Profile: types.Profile{Name: "Ada King"},
	})
	require.NoError(t, err)
	assert.Equal(t, frozenNow, store.profiles[0].CreatedAt, "replacement must keep the creation time")
	assert.False(t, store.profiles[0].UpdatedAt.IsZero())
}

func TestUpdateProfile_UnknownProfile(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.UpdateProfile(context.Background(), UpdateProfileArgs{
		Profile: types.Profile{ID: "nope", Name: "Nobody"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUpsertEntry_CreateThenUpdate(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	created, err := srv.UpsertEntry(ctx, UpsertEntryArgs{
		Type:  "skills",
		Entry: json.RawMessage(`{"name":"Go","proficiency":8,"importance":7}`),
		Tags:  []string{"programming"},
	})
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.NotEmpty(t, created.ID)

	updated, err := srv.UpsertEntry(ctx, UpsertEntryArgs{
		Type:  "skills",
		Entry: json.RawMessage(`{"id":"` + created.ID + `","name":"Go","proficiency":9}`),
	})
	require.NoError(t, err)
	assert.False(t, updated.Created)
	assert.Equal(t, created.ID, updated.ID)

	got, err := srv.GetEntry(ctx, GetEntryArgs{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "skills", got.Type)
	assert.Contains(t, string(got.Entry), `"proficiency":9`)
}

func TestUpsertEntry_RejectsBadType(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.UpsertEntry(context.Background(), UpsertEntryArgs{
		Type:  "memories",
		Entry: json.RawMessage(`{"name":"x"}`),
	})
	assert.Error(t, err)
}

func TestUpsertEntry_RejectsOutOfRangeImportance(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.UpsertEntry(context.Background(), UpsertEntryArgs{
		Type:  "skills",
		Entry: json.RawMessage(`{"name":"x","importance":11}`),
	})
	assert.Error(t, err)
}

func TestUpsertEntry_FAQDefaultsToPublic(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, err := srv.UpsertEntry(ctx, UpsertEntryArgs{
		Type:  "faq",
		Entry: json.RawMessage(`{"question":"Favorite machine?","answer":"The Analytical Engine."}`),
	})
	require.NoError(t, err)

	_, err = srv.UpsertEntry(ctx, UpsertEntryArgs{
		Type:  "faq",
		Entry: json.RawMessage(`{"question":"Health history?","answer":"Private.","is_public":false}`),
	})
	require.NoError(t, err)

	res, err := srv.ListEntries(ctx, ListEntriesArgs{Type: "faq"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total, "only the implicitly public entry is visible")

	res, err = srv.ListEntries(ctx, ListEntriesArgs{Type: "faq", IncludePrivate: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestDeleteEntry(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	seedEntry(t, store, &types.Skill{Record: types.Record{ID: "s1", ProfileID: "p1"}, Name: "Go"})

	res, err := srv.DeleteEntry(ctx, DeleteEntryArgs{ID: "s1"})
	require.NoError(t, err)
	assert.True(t, res.Deleted)

	_, err = srv.DeleteEntry(ctx, DeleteEntryArgs{ID: "s1"})
	assert.Error(t, err)
}

func TestListEntries_PrivacyAndLimit(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	seedEntry(t, store, &types.HealthEntry{
		Record: types.Record{ID: "h1", ProfileID: "p1"}, Title: "Public checkup",
	})
	seedEntry(t, store, &types.HealthEntry{
		Record: types.Record{ID: "h2", ProfileID: "p1"}, Title: "Private condition", IsPrivate: true,
	})

	res, err := srv.ListEntries(ctx, ListEntriesArgs{Type: "health_entries"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	res, err = srv.ListEntries(ctx, ListEntriesArgs{Type: "health_entries", IncludePrivate: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestGetStats(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	seedEntry(t, store, &types.Skill{Record: types.Record{ID: "s1", ProfileID: "p1"}, Name: "Go"})
	seedEntry(t, store, &types.Skill{Record: types.Record{ID: "s2", ProfileID: "p1"}, Name: "SQL"})
	seedEntry(t, store, &types.Project{Record: types.Record{ID: "pr1", ProfileID: "p1"}, Name: "selfmap"})
	_, err := srv.SavePersona(ctx, SavePersonaArgs{Name: "podcast"})
	require.NoError(t, err)

	res, err := srv.GetStats(ctx, GetStatsArgs{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Counts["skills"])
	assert.Equal(t, 1, res.Counts["projects"])
	assert.Equal(t, 3, res.TotalEntries)
	assert.Equal(t, 1, res.Personas)
}

func TestUpsertEntryArgs_StringifiedTags(t *testing.T) {
	var args UpsertEntryArgs
	raw := `{"type":"skills","entry":{"name":"Go"},"tags":"[\"a\",\"b\"]"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &args))
	assert.Equal(t, []string{"a", "b"}, args.Tags)

	args = UpsertEntryArgs{}
	raw = `{"type":"skills","entry":{"name":"Go"},"tags":"x, y"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &args))
	assert.Equal(t, []string{"x", "y"}, args.Tags)
}
