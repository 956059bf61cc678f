package contextgen

import (
	"strings"
	"testing"

	"github.com/selfmap/selfmap/pkg/types"
)

func TestRenderCareer_FullHasHeadingAndSummary(t *testing.T) {
	e := &types.CareerEntry{
		Role:         "Lead Analyst",
		Organization: "Analytical Engines Ltd",
		PeriodStart:  "2024-01",
		Summary:      "Runs the programme.",
	}
	out := RenderEntry(e, DetailFull, 1.0)
	if !strings.HasPrefix(out, "### Lead Analyst @ Analytical Engines Ltd (2024-01 - present)") {
		t.Errorf("unexpected heading: %q", firstLine(out))
	}
	if !strings.Contains(out, "Runs the programme.") {
		t.Error("full rendering should include the summary")
	}
}

func TestRenderCareer_MentionIsBare(t *testing.T) {
	e := &types.CareerEntry{Role: "Advisor", PeriodStart: "2020", PeriodEnd: "2021"}
	out := RenderEntry(e, DetailMention, 0.1)
	if out != "Advisor (2020 - 2021)" {
		t.Errorf("unexpected mention: %q", out)
	}
}

func TestRenderSkill_Summary(t *testing.T) {
	e := &types.Skill{
		Record:          types.Record{Confidence: 6},
		Name:            "Mathematics",
		Proficiency:     10,
		YearsExperience: 12,
	}
	out := RenderEntry(e, DetailSummary, 0.5)
	want := "- **Mathematics** (10/10, 12y) [conf: medium]"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestConfTag_Tiers(t *testing.T) {
	cases := []struct {
		confidence int
		want       string
	}{
		{10, ""},
		{8, ""},
		{0, ""}, // unset defaults to 8
		{7, " [conf: medium]"},
		{5, " [conf: medium]"},
		{4, " [conf: low]"},
		{1, " [conf: low]"},
	}
	for _, c := range cases {
		rec := &types.Record{Confidence: c.confidence}
		if got := confTag(rec); got != c.want {
			t.Errorf("confidence %d: got %q, want %q", c.confidence, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 80); got != "short" {
		t.Errorf("short strings pass through, got %q", got)
	}
	long := strings.Repeat("a", 100)
	got := truncate(long, 80)
	if len(got) != 80 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncated string should be 80 chars ending in ellipsis, got %d chars", len(got))
	}
}

func TestRenderQuote_Tiers(t *testing.T) {
	e := &types.FavoriteQuote{Quote: "Simplicity is prerequisite for reliability.", Author: "Dijkstra"}

	full := RenderEntry(e, DetailFull, 1.0)
	if !strings.HasPrefix(full, `> "Simplicity is prerequisite for reliability." — Dijkstra`) {
		t.Errorf("unexpected full quote: %q", full)
	}

	mention := RenderEntry(e, DetailMention, 0.1)
	if !strings.HasPrefix(mention, `"`) || len(mention) > 42 {
		t.Errorf("mention should be a truncated bare quote, got %q", mention)
	}
}

func TestRenderFAQ_Full(t *testing.T) {
	e := &types.FAQEntry{Question: "What editor do you use?", Answer: "Whatever is closest."}
	out := RenderEntry(e, DetailFull, 1.0)
	if out != "**Q: What editor do you use?**\nA: Whatever is closest." {
		t.Errorf("unexpected FAQ rendering: %q", out)
	}
}

func TestRenderGoal_ProgressZeroStillShown(t *testing.T) {
	zero := 0
	e := &types.Goal{Title: "Write a book", Status: "active", Progress: &zero}
	out := RenderEntry(e, DetailSummary, 0.5)
	if out != "- **Write a book** [active] 0%" {
		t.Errorf("tracked zero progress must render, got %q", out)
	}
}

func TestRenderEducation_MissingInstitutionFallsBack(t *testing.T) {
	e := &types.Education{Field: "Philosophy"}
	out := RenderEntry(e, DetailMention, 0.1)
	if out != "Education (Philosophy)" {
		t.Errorf("unexpected fallback: %q", out)
	}
}
