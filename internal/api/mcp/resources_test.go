package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfmap/selfmap/pkg/types"
)

// readResource fetches one resource and returns its single content block.
func readResource(t *testing.T, srv *Server, uri string) MCPResourceContents {
	t.Helper()
	res, err := srv.handleResourcesRead(context.Background(), map[string]interface{}{"uri": uri})
	require.NoError(t, err)
	contents := res.(MCPResourcesReadResult).Contents
	require.Len(t, contents, 1)
	assert.Equal(t, uri, contents[0].URI)
	return contents[0]
}

func TestResourcesList(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := dispatch(t, srv, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)

	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	resources := result["resources"].([]interface{})

	uris := make([]string, 0, len(resources))
	for _, r := range resources {
		uris = append(uris, r.(map[string]interface{})["uri"].(string))
	}
	for _, want := range []string{
		ResourceProfileSummary, ResourceCareerTimeline, ResourceSkillsMatrix,
		ResourcePortfolio, ResourceResumeData, ResourceEpisodeHighlights,
		ResourceActiveGoals, ResourceContext,
	} {
		assert.Contains(t, uris, want)
	}
}

func TestResourcesRead_ProfileSummary(t *testing.T) {
	srv, _ := newTestServer(t)
	content := readResource(t, srv, ResourceProfileSummary)

	assert.Equal(t, "application/json", content.MimeType)
	var profile types.Profile
	require.NoError(t, json.Unmarshal([]byte(content.Text), &profile))
	assert.Equal(t, "Ada Lovelace", profile.Name)
}

func TestResourcesRead_CareerTimelineNewestFirst(t *testing.T) {
	srv, store := newTestServer(t)
	seedEntry(t, store, &types.CareerEntry{
		Record: types.Record{ID: "c1", ProfileID: "p1"},
		Role:   "Translator", PeriodStart: "1842", PeriodEnd: "1843",
	})
	seedEntry(t, store, &types.CareerEntry{
		Record: types.Record{ID: "c2", ProfileID: "p1"},
		Role:   "Analyst", PeriodStart: "1844",
	})

	content := readResource(t, srv, ResourceCareerTimeline)
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(content.Text), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Analyst", entries[0]["role"])
	assert.Equal(t, "Translator", entries[1]["role"])
}

func TestResourcesRead_SkillsMatrixGroupsByCategory(t *testing.T) {
	srv, store := newTestServer(t)
	seedEntry(t, store, &types.Skill{
		Record: types.Record{ID: "s1", ProfileID: "p1"},
		Name:   "Calculus", Category: "math", Proficiency: 7,
	})
	seedEntry(t, store, &types.Skill{
		Record: types.Record{ID: "s2", ProfileID: "p1"},
		Name:   "Number theory", Category: "math", Proficiency: 9,
	})
	seedEntry(t, store, &types.Skill{
		Record: types.Record{ID: "s3", ProfileID: "p1"},
		Name:   "Piano", Proficiency: 4,
	})

	content := readResource(t, srv, ResourceSkillsMatrix)
	var matrix map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(content.Text), &matrix))
	require.Len(t, matrix["math"], 2)
	assert.Equal(t, "Number theory", matrix["math"][0]["name"], "strongest skill leads its category")
	require.Len(t, matrix["general"], 1, "uncategorized skills group under general")
}

func TestResourcesRead_EpisodeHighlightsFiltersImportance(t *testing.T) {
	srv, store := newTestServer(t)
	seedEntry(t, store, &types.Episode{
		Record: types.Record{ID: "e1", ProfileID: "p1", Importance: 9, Confidence: 9},
		Title:  "First program",
	})
	seedEntry(t, store, &types.Episode{
		Record: types.Record{ID: "e2", ProfileID: "p1", Importance: 3, Confidence: 9},
		Title:  "Minor errand",
	})

	content := readResource(t, srv, ResourceEpisodeHighlights)
	assert.Contains(t, content.Text, "First program")
	assert.NotContains(t, content.Text, "Minor errand")
}

func TestResourcesRead_ActiveGoalsOnly(t *testing.T) {
	srv, store := newTestServer(t)
	seedEntry(t, store, &types.Goal{
		Record: types.Record{ID: "g1", ProfileID: "p1"},
		Title:  "Publish notes", Status: "active",
	})
	seedEntry(t, store, &types.Goal{
		Record: types.Record{ID: "g2", ProfileID: "p1"},
		Title:  "Old ambition", Status: "completed",
	})

	content := readResource(t, srv, ResourceActiveGoals)
	assert.Contains(t, content.Text, "Publish notes")
	assert.NotContains(t, content.Text, "Old ambition")
}

func TestResourcesRead_PortfolioAndResume(t *testing.T) {
	srv, store := newTestServer(t)
	seedEntry(t, store, &types.Project{
		Record: types.Record{ID: "pr1", ProfileID: "p1"},
		Name:   "Analytical Engine notes",
	})
	seedEntry(t, store, &types.Achievement{
		Record: types.Record{ID: "a1", ProfileID: "p1"},
		Name:   "Note G", Year: 1843,
	})

	portfolio := readResource(t, srv, ResourcePortfolio)
	var sections map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(portfolio.Text), &sections))
	assert.Len(t, sections["projects"], 1)
	assert.Len(t, sections["achievements"], 1)

	resume := readResource(t, srv, ResourceResumeData)
	assert.Contains(t, resume.Text, "Ada Lovelace")
	assert.Contains(t, resume.Text, "Note G")
}

func TestResourcesRead_ContextIsMarkdown(t *testing.T) {
	srv, _ := newTestServer(t)
	content := readResource(t, srv, ResourceContext)

	assert.Equal(t, "text/markdown", content.MimeType)
	assert.True(t, strings.HasPrefix(content.Text, "# Context: Ada Lovelace (Persona: default)"))
}

func TestResourcesRead_UnknownURI(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.handleResourcesRead(context.Background(), map[string]interface{}{"uri": "selfmap://no/such"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource")
}

func TestSearchEntries_AcrossTypes(t *testing.T) {
	srv, store := newTestServer(t)
	seedEntry(t, store, &types.Skill{
		Record: types.Record{ID: "s1", ProfileID: "p1"},
		Name:   "Difference engine operation",
	})
	seedEntry(t, store, &types.Project{
		Record: types.Record{ID: "pr1", ProfileID: "p1"},
		Name:   "Engine tables", Technologies: []string{"punch cards"},
	})
	seedEntry(t, store, &types.Goal{
		Record: types.Record{ID: "g1", ProfileID: "p1"},
		Title:  "Learn harp",
	})

	res, err := srv.SearchEntries(context.Background(), SearchEntriesArgs{Query: "engine"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalHits)
	assert.Len(t, res.Results["skills"], 1)
	assert.Len(t, res.Results["projects"], 1)
	assert.NotContains(t, res.Results, "goals", "types with no hits are omitted")
	assert.Equal(t, len(types.AllEntityTypes), res.TypesSearched)
}

func TestSearchEntries_TypeFilterAndLimit(t *testing.T) {
	srv, store := newTestServer(t)
	for _, id := range []string{"s1", "s2", "s3"} {
		seedEntry(t, store, &types.Skill{
			Record: types.Record{ID: id, ProfileID: "p1"},
			Name:   "Engine math " + id,
		})
	}
	seedEntry(t, store, &types.Project{
		Record: types.Record{ID: "pr1", ProfileID: "p1"},
		Name:   "Engine tables",
	})

	res, err := srv.SearchEntries(context.Background(), SearchEntriesArgs{
		Query: "engine",
		Types: []string{"skills"},
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TypesSearched)
	assert.Len(t, res.Results["skills"], 2)
	assert.NotContains(t, res.Results, "projects")
}

func TestSearchEntries_PrivateExcludedByDefault(t *testing.T) {
	srv, store := newTestServer(t)
	seedEntry(t, store, &types.HealthEntry{
		Record: types.Record{ID: "h1", ProfileID: "p1"},
		Title:  "Migraine treatment", IsPrivate: true,
	})

	res, err := srv.SearchEntries(context.Background(), SearchEntriesArgs{Query: "migraine"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalHits)

	res, err = srv.SearchEntries(context.Background(), SearchEntriesArgs{Query: "migraine", IncludePrivate: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalHits)
}

func TestSearchEntries_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.SearchEntries(context.Background(), SearchEntriesArgs{})
	assert.Error(t, err, "empty query must be rejected")

	_, err = srv.SearchEntries(context.Background(), SearchEntriesArgs{Query: "x", Types: []string{"memories"}})
	assert.Error(t, err, "unknown entity type must be rejected")
}

func TestSearchEntries_ViaToolsCall(t *testing.T) {
	srv, store := newTestServer(t)
	seedEntry(t, store, &types.Skill{
		Record: types.Record{ID: "s1", ProfileID: "p1"},
		Name:   "Analytical engine",
	})

	resp := dispatch(t, srv, `{"jsonrpc":"2.0","id":20,"method":"tools/call","params":{"name":"search_entries","arguments":{"query":"analytical"}}}`)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	text := result["content"].([]interface{})[0].(map[string]interface{})["text"].(string)

	var parsed SearchEntriesResult
	require.NoError(t, json.Unmarshal([]byte(text), &parsed))
	assert.Equal(t, 1, parsed.TotalHits)
}
