package contextgen

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/selfmap/selfmap/pkg/types"
)

// DetailLevel controls how verbosely a scored entry is rendered.
type DetailLevel string

const (
	DetailFull    DetailLevel = "full"
	DetailSummary DetailLevel = "summary"
	DetailMention DetailLevel = "mention"
)

// Detail tier thresholds.
const (
	fullThreshold    = 0.6
	summaryThreshold = 0.3
)

// focusBoost multiplies the score of entries matching the focus keyword.
const focusBoost = 1.5

// ScoredEntry pairs an entry with its relevance score and detail tier.
// Derived and ephemeral: never persisted.
type ScoredEntry struct {
	Entry types.Entry
	Score float64
	Level DetailLevel
}

// DetailLevelFor classifies a score into a detail tier.
// >= 0.6 → full, >= 0.3 → summary, else → mention.
func DetailLevelFor(score float64) DetailLevel {
	switch {
	case score >= fullThreshold:
		return DetailFull
	case score >= summaryThreshold:
		return DetailSummary
	default:
		return DetailMention
	}
}

// ComputeTimeDecay returns the exponential half-life recency factor:
// 2^(-daysSince / halfLifeDays). A non-positive age yields 1.0 so that
// future-dated entries are never inflated.
func ComputeTimeDecay(entryDate, now time.Time, halfLifeDays float64) float64 {
	daysSince := now.Sub(entryDate).Hours() / 24.0
	if daysSince <= 0 {
		return 1.0
	}
	return math.Pow(2, -daysSince/halfLifeDays)
}

// ComputeScore computes the relevance score for an entry:
//
//	score = (importance/10) × entityWeight × timeDecay × (confidence/10)
//
// An entity weight of 0 short-circuits to 0. Deterministic for a fixed now.
func ComputeScore(e types.Entry, persona *types.Persona, now time.Time) float64 {
	entityWeight := persona.Weight(e.Kind())
	if entityWeight == 0 {
		return 0
	}

	rec := e.Meta()
	importance := float64(rec.EffectiveImportance())
	confidence := float64(rec.EffectiveConfidence())

	entryDate := ExtractDate(e, now)
	timeDecay := ComputeTimeDecay(entryDate, now, persona.TimeDecayDays)

	return (importance / 10) * entityWeight * timeDecay * (confidence / 10)
}

// ScoreEntries scores a fetched slice of one entity type and returns it
// sorted by score descending. The sort is stable so that equal scores keep
// fetch order.
func ScoreEntries(entries []types.Entry, persona *types.Persona, focus string, now time.Time) []ScoredEntry {
	scored := make([]ScoredEntry, 0, len(entries))
	for _, e := range entries {
		score := ComputeScore(e, persona, now)
		if focus != "" && MatchesKeyword(e, focus) {
			score *= focusBoost
		}
		scored = append(scored, ScoredEntry{
			Entry: e,
			Score: score,
			Level: DetailLevelFor(score),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// dateLayouts are the accepted formats for free-form period/event date
// fields, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"2006",
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtractDate picks the representative date of an entry for time decay.
// The priority order is entity-type specific; unparseable candidates fall
// through to the next one, and now is the final fallback (zero elapsed time).
func ExtractDate(e types.Entry, now time.Time) time.Time {
	updated := e.Meta().UpdatedAt

	fallback := func() time.Time {
		if !updated.IsZero() {
			return updated
		}
		return now
	}

	switch v := e.(type) {
	case *types.CareerEntry:
		return periodDate(v.PeriodEnd, v.PeriodStart, fallback)
	case *types.Project:
		return periodDate(v.PeriodEnd, v.PeriodStart, fallback)
	case *types.Episode:
		return periodDate(v.PeriodEnd, v.PeriodStart, fallback)
	case *types.Education:
		return periodDate(v.PeriodEnd, v.PeriodStart, fallback)
	case *types.LifeEvent:
		if t, ok := parseDate(v.EventDate); ok {
			return t
		}
		return fallback()
	case *types.Achievement:
		if v.Year > 0 {
			return time.Date(v.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
		return fallback()
	case *types.FavoriteBook:
		if v.YearRead > 0 {
			return time.Date(v.YearRead, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
		return fallback()
	default:
		return fallback()
	}
}

func periodDate(end, start string, fallback func() time.Time) time.Time {
	if t, ok := parseDate(end); ok {
		return t
	}
	if t, ok := parseDate(start); ok {
		return t
	}
	return fallback()
}

// MatchesKeyword reports whether an entry matches the keyword with a
// case-insensitive substring check. The candidate field set is fixed and
// entity-agnostic (cross-type search simplicity); each type contributes
// whichever of those fields it actually has. Drives both the focus boost
// and the search_entries tool.
func MatchesKeyword(e types.Entry, keyword string) bool {
	kw := strings.ToLower(keyword)

	texts, lists := focusFields(e)
	for _, s := range texts {
		if s != "" && strings.Contains(strings.ToLower(s), kw) {
			return true
		}
	}
	for _, list := range lists {
		for _, s := range list {
			if s != "" && strings.Contains(strings.ToLower(s), kw) {
				return true
			}
		}
	}
	return false
}

// focusFields collects the focus-matchable field values of an entry.
//
// Text fields considered: name, title, role, organization, description,
// summary, evidence, quote, question, answer, impact, why_favorite, review,
// situation, task, action, result, field, category, domain.
// List fields considered: tags, technologies, outcomes, insights,
// related_skills.
func focusFields(e types.Entry) (texts []string, lists [][]string) {
	lists = append(lists, e.Meta().Tags)

	switch v := e.(type) {
	case *types.CareerEntry:
		texts = append(texts, v.Role, v.Organization, v.Summary, v.Domain)
		lists = append(lists, v.Insights)
	case *types.Skill:
		texts = append(texts, v.Name, v.Evidence, v.Category)
	case *types.Project:
		texts = append(texts, v.Name, v.Role, v.Description)
		lists = append(lists, v.Technologies, v.Outcomes)
	case *types.Achievement:
		texts = append(texts, v.Name)
	case *types.Episode:
		texts = append(texts, v.Title, v.Situation, v.Task, v.Action, v.Result, v.Domain)
		lists = append(lists, v.Insights)
	case *types.Education:
		texts = append(texts, v.Description, v.Field)
	case *types.Hobby:
		texts = append(texts, v.Name, v.Description)
		lists = append(lists, v.RelatedSkills)
	case *types.ValuePhilosophy:
		texts = append(texts, v.Title, v.Description)
	case *types.HealthEntry:
		texts = append(texts, v.Title, v.Description)
	case *types.LifeEvent:
		texts = append(texts, v.Title, v.Description, v.Impact)
	case *types.Relationship:
		texts = append(texts, v.Description)
	case *types.Goal:
		texts = append(texts, v.Title, v.Description)
	case *types.FavoriteBook:
		texts = append(texts, v.Title, v.Review, v.Category)
	case *types.FavoriteQuote:
		texts = append(texts, v.Quote)
	case *types.Influence:
		texts = append(texts, v.Name, v.Description, v.Impact, v.Domain)
	case *types.DailyRoutine:
		texts = append(texts, v.Title, v.Description)
	case *types.FavoriteTool:
		texts = append(texts, v.Name, v.Description, v.WhyFavorite, v.Category)
	case *types.FAQEntry:
		texts = append(texts, v.Question, v.Answer)
	case *types.CustomEntry:
		texts = append(texts, v.Title)
	}
	return texts, lists
}
