package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/selfmap/selfmap/internal/contextgen"
	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/pkg/types"
)

// Resource URIs. Each is a read-only view over the store; private entries
// never appear in resource output.
const (
	ResourceProfileSummary    = "selfmap://profile/summary"
	ResourceCareerTimeline    = "selfmap://career/timeline"
	ResourceSkillsMatrix      = "selfmap://skills/matrix"
	ResourcePortfolio         = "selfmap://portfolio"
	ResourceResumeData        = "selfmap://resume/data"
	ResourceEpisodeHighlights = "selfmap://episodes/highlights"
	ResourceActiveGoals       = "selfmap://goals/active"
	ResourceContext           = "selfmap://context"
)

const (
	mimeJSON     = "application/json"
	mimeMarkdown = "text/markdown"
)

// highlightImportance is the inclusive importance floor for the episode
// highlights resource.
const highlightImportance = 7

// handleResourcesList returns the static catalogue of readable resources.
func (s *Server) handleResourcesList(ctx context.Context, params interface{}) (interface{}, error) {
	return MCPResourcesListResult{Resources: []MCPResource{
		{URI: ResourceProfileSummary, Name: "profile-summary", Description: "The subject profile as stored", MimeType: mimeJSON},
		{URI: ResourceCareerTimeline, Name: "career-timeline", Description: "Career entries ordered newest first", MimeType: mimeJSON},
		{URI: ResourceSkillsMatrix, Name: "skills-matrix", Description: "Skills grouped by category, strongest first", MimeType: mimeJSON},
		{URI: ResourcePortfolio, Name: "portfolio", Description: "Projects and achievements", MimeType: mimeJSON},
		{URI: ResourceResumeData, Name: "resume-data", Description: "Structured resume data: profile, career, skills, education, achievements", MimeType: mimeJSON},
		{URI: ResourceEpisodeHighlights, Name: "episodes-highlights", Description: "High-importance episodes (importance 7 and up)", MimeType: mimeJSON},
		{URI: ResourceActiveGoals, Name: "goals-active", Description: "Goals with active status", MimeType: mimeJSON},
		{URI: ResourceContext, Name: "context", Description: "Persona-weighted context document (default persona)", MimeType: mimeMarkdown},
	}}, nil
}

// handleResourcesRead materializes one resource view.
func (s *Server) handleResourcesRead(ctx context.Context, params interface{}) (interface{}, error) {
	var p MCPResourcesReadParams
	if err := s.unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}

	profileID, err := s.resolveProfileID(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	var text string
	mime := mimeJSON

	switch p.URI {
	case ResourceProfileSummary:
		text, err = s.profileSummary(ctx, profileID)
	case ResourceCareerTimeline:
		text, err = s.careerTimeline(ctx, profileID)
	case ResourceSkillsMatrix:
		text, err = s.skillsMatrix(ctx, profileID)
	case ResourcePortfolio:
		text, err = s.portfolio(ctx, profileID)
	case ResourceResumeData:
		text, err = s.resumeData(ctx, profileID)
	case ResourceEpisodeHighlights:
		text, err = s.episodeHighlights(ctx, profileID)
	case ResourceActiveGoals:
		text, err = s.activeGoals(ctx, profileID)
	case ResourceContext:
		mime = mimeMarkdown
		text, err = s.generator.Generate(ctx, profileID, contextgen.Options{})
	default:
		return nil, fmt.Errorf("unknown resource: %s", p.URI)
	}
	if err != nil {
		return nil, err
	}

	return MCPResourcesReadResult{Contents: []MCPResourceContents{
		{URI: p.URI, MimeType: mime, Text: text},
	}}, nil
}

func (s *Server) profileSummary(ctx context.Context, profileID string) (string, error) {
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return marshalResource(p)
}

func (s *Server) careerTimeline(ctx context.Context, profileID string) (string, error) {
	entries, err := s.listForResource(ctx, types.EntityCareer, profileID, 0)
	if err != nil {
		return "", err
	}
	sortNewestFirst(entries)
	raw, err := encodeEntries(entries)
	if err != nil {
		return "", err
	}
	return marshalResource(raw)
}

// skillsMatrix groups skills by category with the highest proficiency first
// in each group. Uncategorized skills land under "general".
func (s *Server) skillsMatrix(ctx context.Context, profileID string) (string, error) {
	entries, err := s.listForResource(ctx, types.EntitySkills, profileID, 0)
	if err != nil {
		return "", err
	}

	byCategory := map[string][]*types.Skill{}
	for _, e := range entries {
		skill, ok := e.(*types.Skill)
		if !ok {
			continue
		}
		cat := skill.Category
		if cat == "" {
			cat = "general"
		}
		byCategory[cat] = append(byCategory[cat], skill)
	}
	matrix := make(map[string][]json.RawMessage, len(byCategory))
	for cat, skills := range byCategory {
		sort.SliceStable(skills, func(i, j int) bool {
			return skills[i].Proficiency > skills[j].Proficiency
		})
		for _, skill := range skills {
			data, err := types.EncodeEntry(skill)
			if err != nil {
				return "", err
			}
			matrix[cat] = append(matrix[cat], data)
		}
	}
	return marshalResource(matrix)
}

func (s *Server) portfolio(ctx context.Context, profileID string) (string, error) {
	projects, err := s.listForResource(ctx, types.EntityProjects, profileID, 0)
	if err != nil {
		return "", err
	}
	achievements, err := s.listForResource(ctx, types.EntityAchievements, profileID, 0)
	if err != nil {
		return "", err
	}
	sortNewestFirst(achievements)

	rawProjects, err := encodeEntries(projects)
	if err != nil {
		return "", err
	}
	rawAchievements, err := encodeEntries(achievements)
	if err != nil {
		return "", err
	}
	return marshalResource(map[string][]json.RawMessage{
		"projects":     rawProjects,
		"achievements": rawAchievements,
	})
}

func (s *Server) resumeData(ctx context.Context, profileID string) (string, error) {
	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}

	sections := map[string]interface{}{"profile": profile}
	for name, kind := range map[string]types.EntityType{
		"career":       types.EntityCareer,
		"skills":       types.EntitySkills,
		"education":    types.EntityEducation,
		"achievements": types.EntityAchievements,
	} {
		entries, err := s.listForResource(ctx, kind, profileID, 0)
		if err != nil {
			return "", err
		}
		if kind != types.EntitySkills {
			sortNewestFirst(entries)
		}
		raw, err := encodeEntries(entries)
		if err != nil {
			return "", err
		}
		sections[name] = raw
	}
	return marshalResource(sections)
}

func (s *Server) episodeHighlights(ctx context.Context, profileID string) (string, error) {
	entries, err := s.listForResource(ctx, types.EntityEpisodes, profileID, highlightImportance)
	if err != nil {
		return "", err
	}
	raw, err := encodeEntries(entries)
	if err != nil {
		return "", err
	}
	return marshalResource(raw)
}

func (s *Server) activeGoals(ctx context.Context, profileID string) (string, error) {
	entries, err := s.listForResource(ctx, types.EntityGoals, profileID, 0)
	if err != nil {
		return "", err
	}
	active := entries[:0]
	for _, e := range entries {
		if g, ok := e.(*types.Goal); ok && g.Status == "active" {
			active = append(active, e)
		}
	}
	raw, err := encodeEntries(active)
	if err != nil {
		return "", err
	}
	return marshalResource(raw)
}

// listForResource fetches all non-private entries of one type for a profile.
func (s *Server) listForResource(ctx context.Context, kind types.EntityType, profileID string, minImportance int) ([]types.Entry, error) {
	entries, err := s.store.ListEntries(ctx, kind, storage.EntryFilter{
		ProfileID:     profileID,
		MinImportance: minImportance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	return entries, nil
}

// sortNewestFirst orders entries by their representative date, descending.
func sortNewestFirst(entries []types.Entry) {
	now := time.Now()
	sort.SliceStable(entries, func(i, j int) bool {
		return contextgen.ExtractDate(entries[i], now).After(contextgen.ExtractDate(entries[j], now))
	})
}

func encodeEntries(entries []types.Entry) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		data, err := types.EncodeEntry(e)
		if err != nil {
			return nil, err
		}
		raw = append(raw, data)
	}
	return raw, nil
}

func marshalResource(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal resource: %w", err)
	}
	return string(data), nil
}
