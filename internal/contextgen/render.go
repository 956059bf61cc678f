package contextgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/selfmap/selfmap/pkg/types"
)

// Truncation budgets for long free-text fields at summary/mention tiers.
// Full-tier output is never truncated.
const (
	truncDescription = 80
	truncShort       = 60
	truncMention     = 40
)

// RenderEntry converts a scored entry into a text fragment at the given
// detail tier. Each entity type has a bespoke three-tier template; anything
// unexpected falls back to a generic renderer. The score is part of the
// contract but no current template prints it.
func RenderEntry(e types.Entry, level DetailLevel, score float64) string {
	switch v := e.(type) {
	case *types.CareerEntry:
		return renderCareer(v, level)
	case *types.Skill:
		return renderSkill(v, level)
	case *types.Project:
		return renderProject(v, level)
	case *types.Achievement:
		return renderAchievement(v, level)
	case *types.Episode:
		return renderEpisode(v, level)
	case *types.Education:
		return renderEducation(v, level)
	case *types.Hobby:
		return renderHobby(v, level)
	case *types.ValuePhilosophy:
		return renderValue(v, level)
	case *types.HealthEntry:
		return renderHealth(v, level)
	case *types.LifeEvent:
		return renderLifeEvent(v, level)
	case *types.Relationship:
		return renderRelationship(v, level)
	case *types.Goal:
		return renderGoal(v, level)
	case *types.FavoriteBook:
		return renderBook(v, level)
	case *types.FavoriteQuote:
		return renderQuote(v, level)
	case *types.Influence:
		return renderInfluence(v, level)
	case *types.DailyRoutine:
		return renderRoutine(v, level)
	case *types.FavoriteTool:
		return renderTool(v, level)
	case *types.FAQEntry:
		return renderFAQ(v, level)
	case *types.CustomEntry:
		return renderCustom(v, level)
	default:
		return renderGeneric(e, level)
	}
}

// period formats a "(start - end)" range; an open range renders as
// "(start - present)".
func period(start, end string) string {
	if start != "" && end != "" {
		return fmt.Sprintf("(%s - %s)", start, end)
	}
	if start != "" {
		return fmt.Sprintf("(%s - present)", start)
	}
	return ""
}

// confTag returns the inline low-confidence annotation.
// confidence >= 8 → none, 5-7 → medium, below → low.
func confTag(rec *types.Record) string {
	c := rec.EffectiveConfidence()
	switch {
	case c >= 8:
		return ""
	case c >= 5:
		return " [conf: medium]"
	default:
		return " [conf: low]"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func renderCareer(e *types.CareerEntry, level DetailLevel) string {
	title := e.Role
	if e.Organization != "" {
		title += " @ " + e.Organization
	}
	p := period(e.PeriodStart, e.PeriodEnd)

	switch level {
	case DetailFull:
		lines := []string{strings.TrimSpace(fmt.Sprintf("### %s %s", title, p))}
		if e.Summary != "" {
			lines = append(lines, e.Summary)
		}
		if e.Domain != "" {
			lines = append(lines, "Domain: "+e.Domain)
		}
		if len(e.Insights) > 0 {
			lines = append(lines, "Insights: "+strings.Join(e.Insights, "; "))
		}
		if e.MentionTone != "" {
			lines = append(lines, "Tone: "+e.MentionTone)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := fmt.Sprintf("- **%s** %s", title, p)
		if e.Summary != "" {
			s += " -- " + e.Summary
		}
		return s + confTag(&e.Record)
	default:
		return strings.TrimSpace(title + " " + p)
	}
}

func renderSkill(e *types.Skill, level DetailLevel) string {
	var facts []string
	if e.Proficiency > 0 {
		facts = append(facts, fmt.Sprintf("%d/10", e.Proficiency))
	}
	if e.YearsExperience > 0 {
		facts = append(facts, fmt.Sprintf("%dy", e.YearsExperience))
	}
	head := fmt.Sprintf("- **%s** (%s)", e.Name, strings.Join(facts, ", "))

	switch level {
	case DetailFull:
		lines := []string{head}
		if e.Evidence != "" {
			lines = append(lines, "  Evidence: "+e.Evidence)
		}
		if tag := strings.TrimSpace(confTag(&e.Record)); tag != "" {
			lines = append(lines, "  "+tag)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		return head + confTag(&e.Record)
	default:
		return e.Name
	}
}

func renderProject(e *types.Project, level DetailLevel) string {
	p := period(e.PeriodStart, e.PeriodEnd)

	switch level {
	case DetailFull:
		lines := []string{strings.TrimSpace(fmt.Sprintf("### %s %s", e.Name, p))}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		if e.Role != "" {
			lines = append(lines, "Role: "+e.Role)
		}
		if len(e.Technologies) > 0 {
			lines = append(lines, "Tech: "+strings.Join(e.Technologies, ", "))
		}
		if len(e.Outcomes) > 0 {
			lines = append(lines, "Outcomes: "+strings.Join(e.Outcomes, "; "))
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := fmt.Sprintf("- **%s** %s", e.Name, p)
		if e.Description != "" {
			s += " -- " + truncate(e.Description, truncDescription)
		}
		return s
	default:
		return e.Name
	}
}

func renderAchievement(e *types.Achievement, level DetailLevel) string {
	year := ""
	if e.Year > 0 {
		year = fmt.Sprintf("(%d)", e.Year)
	}

	switch level {
	case DetailFull:
		lines := []string{strings.TrimSpace(fmt.Sprintf("### %s %s", e.Name, year))}
		if e.Type != "" {
			lines = append(lines, "Type: "+e.Type)
		}
		if e.Detail != "" {
			lines = append(lines, e.Detail)
		}
		if e.Issuer != "" {
			lines = append(lines, "Issuer: "+e.Issuer)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := strings.TrimSpace(fmt.Sprintf("- **%s** %s", e.Name, year))
		if e.Type != "" {
			s += fmt.Sprintf(" (%s)", e.Type)
		}
		return s + confTag(&e.Record)
	default:
		return strings.TrimSpace(e.Name + " " + year)
	}
}

func renderEpisode(e *types.Episode, level DetailLevel) string {
	p := period(e.PeriodStart, e.PeriodEnd)

	switch level {
	case DetailFull:
		lines := []string{strings.TrimSpace(fmt.Sprintf("### %s %s", e.Title, p))}
		if e.Type != "" {
			lines = append(lines, "Type: "+e.Type)
		}
		if e.Situation != "" {
			lines = append(lines, "**S**: "+e.Situation)
		}
		if e.Task != "" {
			lines = append(lines, "**T**: "+e.Task)
		}
		if e.Action != "" {
			lines = append(lines, "**A**: "+e.Action)
		}
		if e.Result != "" {
			lines = append(lines, "**R**: "+e.Result)
		}
		if len(e.Insights) > 0 {
			lines = append(lines, "Insights: "+strings.Join(e.Insights, "; "))
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := fmt.Sprintf("- **%s** %s", e.Title, p)
		if e.Type != "" {
			s += fmt.Sprintf(" (%s)", e.Type)
		}
		return s + confTag(&e.Record)
	default:
		return e.Title
	}
}

func renderEducation(e *types.Education, level DetailLevel) string {
	inst := e.Institution
	if inst == "" {
		inst = e.Type
	}
	if inst == "" {
		inst = "Education"
	}
	p := period(e.PeriodStart, e.PeriodEnd)

	switch level {
	case DetailFull:
		lines := []string{strings.TrimSpace(fmt.Sprintf("### %s %s", inst, p))}
		if e.Field != "" {
			lines = append(lines, "Field: "+e.Field)
		}
		if e.Degree != "" {
			lines = append(lines, "Degree: "+e.Degree)
		}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + inst + "**"
		if e.Field != "" {
			s += " - " + e.Field
		}
		return strings.TrimSpace(s + " " + p)
	default:
		if e.Field != "" {
			return fmt.Sprintf("%s (%s)", inst, e.Field)
		}
		return inst
	}
}

func renderHobby(e *types.Hobby, level DetailLevel) string {
	switch level {
	case DetailFull:
		lines := []string{"### " + e.Name}
		if e.PassionLevel > 0 {
			lines = append(lines, fmt.Sprintf("Passion: %d/10", e.PassionLevel))
		}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		if len(e.RelatedSkills) > 0 {
			lines = append(lines, "Related skills: "+strings.Join(e.RelatedSkills, ", "))
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + e.Name + "**"
		if e.PassionLevel > 0 {
			s += fmt.Sprintf(" (passion: %d/10)", e.PassionLevel)
		}
		return s
	default:
		return e.Name
	}
}

func renderValue(e *types.ValuePhilosophy, level DetailLevel) string {
	switch level {
	case DetailFull:
		lines := []string{"### " + e.Title}
		if e.Type != "" {
			lines = append(lines, "Type: "+e.Type)
		}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		if e.Origin != "" {
			lines = append(lines, "Origin: "+e.Origin)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + e.Title + "**"
		if e.Type != "" {
			s += fmt.Sprintf(" (%s)", e.Type)
		}
		if e.Description != "" {
			s += " -- " + truncate(e.Description, truncShort)
		}
		return s
	default:
		return e.Title
	}
}

func renderHealth(e *types.HealthEntry, level DetailLevel) string {
	switch level {
	case DetailFull:
		lines := []string{"### " + e.Title}
		if e.Type != "" {
			lines = append(lines, "Type: "+e.Type)
		}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + e.Title + "**"
		if e.Type != "" {
			s += fmt.Sprintf(" (%s)", e.Type)
		}
		return s
	default:
		return e.Title
	}
}

func renderLifeEvent(e *types.LifeEvent, level DetailLevel) string {
	date := ""
	if e.EventDate != "" {
		date = fmt.Sprintf(" (%s)", e.EventDate)
	}

	switch level {
	case DetailFull:
		lines := []string{"### " + e.Title + date}
		if e.Type != "" {
			lines = append(lines, "Type: "+e.Type)
		}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		if e.Impact != "" {
			lines = append(lines, "Impact: "+e.Impact)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + e.Title + "**" + date
		if e.Impact != "" {
			s += " -- " + truncate(e.Impact, truncShort)
		}
		return s
	default:
		return e.Title + date
	}
}

func renderRelationship(e *types.Relationship, level DetailLevel) string {
	switch level {
	case DetailFull:
		lines := []string{"### " + e.Alias}
		if e.Type != "" {
			lines = append(lines, "Type: "+e.Type)
		}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		if e.Influence != "" {
			lines = append(lines, "Influence: "+e.Influence)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + e.Alias + "**"
		if e.Type != "" {
			s += fmt.Sprintf(" (%s)", e.Type)
		}
		return s + confTag(&e.Record)
	default:
		return e.Alias
	}
}

func renderGoal(e *types.Goal, level DetailLevel) string {
	switch level {
	case DetailFull:
		lines := []string{"### " + e.Title}
		if e.Type != "" {
			lines = append(lines, "Type: "+e.Type)
		}
		if e.Status != "" {
			lines = append(lines, "Status: "+e.Status)
		}
		if e.Progress != nil {
			lines = append(lines, fmt.Sprintf("Progress: %d%%", *e.Progress))
		}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		if e.TargetDate != "" {
			lines = append(lines, "Target: "+e.TargetDate)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + e.Title + "**"
		if e.Status != "" {
			s += fmt.Sprintf(" [%s]", e.Status)
		}
		if e.Progress != nil {
			s += fmt.Sprintf(" %d%%", *e.Progress)
		}
		return s
	default:
		return e.Title
	}
}

func renderBook(e *types.FavoriteBook, level DetailLevel) string {
	switch level {
	case DetailFull:
		head := "### " + e.Title
		if e.Author != "" {
			head += " by " + e.Author
		}
		lines := []string{head}
		if e.Category != "" {
			lines = append(lines, "Category: "+e.Category)
		}
		if e.Rating > 0 {
			lines = append(lines, fmt.Sprintf("Rating: %d/10", e.Rating))
		}
		if e.Review != "" {
			lines = append(lines, e.Review)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + e.Title + "**"
		if e.Author != "" {
			s += " by " + e.Author
		}
		if e.Rating > 0 {
			s += fmt.Sprintf(" (%d/10)", e.Rating)
		}
		return s
	default:
		if e.Author != "" {
			return fmt.Sprintf("%s (%s)", e.Title, e.Author)
		}
		return e.Title
	}
}

func renderQuote(e *types.FavoriteQuote, level DetailLevel) string {
	switch level {
	case DetailFull:
		head := `> "` + e.Quote + `"`
		if e.Author != "" {
			head += " — " + e.Author
		}
		lines := []string{head}
		if e.Source != "" {
			lines = append(lines, "Source: "+e.Source)
		}
		if e.Context != "" {
			lines = append(lines, e.Context)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := `- "` + truncate(e.Quote, truncShort) + `"`
		if e.Author != "" {
			s += " — " + e.Author
		}
		return s
	default:
		return `"` + truncate(e.Quote, truncMention) + `"`
	}
}

func renderInfluence(e *types.Influence, level DetailLevel) string {
	switch level {
	case DetailFull:
		lines := []string{"### " + e.Name}
		if e.Type != "" {
			lines = append(lines, "Type: "+e.Type)
		}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		if e.Impact != "" {
			lines = append(lines, "Impact: "+e.Impact)
		}
		if e.Domain != "" {
			lines = append(lines, "Domain: "+e.Domain)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + e.Name + "**"
		if e.Type != "" {
			s += fmt.Sprintf(" (%s)", e.Type)
		}
		if e.Impact != "" {
			s += " -- " + truncate(e.Impact, truncShort)
		}
		return s
	default:
		return e.Name
	}
}

func renderRoutine(e *types.DailyRoutine, level DetailLevel) string {
	switch level {
	case DetailFull:
		lines := []string{"### " + e.Title}
		if e.TimeOfDay != "" {
			lines = append(lines, "Time: "+e.TimeOfDay)
		}
		if e.Frequency != "" {
			lines = append(lines, "Frequency: "+e.Frequency)
		}
		if e.DurationMinutes > 0 {
			lines = append(lines, fmt.Sprintf("Duration: %dmin", e.DurationMinutes))
		}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + e.Title + "**"
		if e.TimeOfDay != "" {
			s += fmt.Sprintf(" (%s)", e.TimeOfDay)
		}
		if e.Frequency != "" {
			s += fmt.Sprintf(" [%s]", e.Frequency)
		}
		return s
	default:
		return e.Title
	}
}

func renderTool(e *types.FavoriteTool, level DetailLevel) string {
	switch level {
	case DetailFull:
		lines := []string{"### " + e.Name}
		if e.Category != "" {
			lines = append(lines, "Category: "+e.Category)
		}
		if e.Description != "" {
			lines = append(lines, e.Description)
		}
		if e.WhyFavorite != "" {
			lines = append(lines, "Why: "+e.WhyFavorite)
		}
		if e.Proficiency != "" {
			lines = append(lines, "Proficiency: "+e.Proficiency)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		s := "- **" + e.Name + "**"
		if e.Category != "" {
			s += fmt.Sprintf(" (%s)", e.Category)
		}
		return s
	default:
		return e.Name
	}
}

func renderFAQ(e *types.FAQEntry, level DetailLevel) string {
	switch level {
	case DetailFull:
		return fmt.Sprintf("**Q: %s**\nA: %s", e.Question, e.Answer)
	case DetailSummary:
		return "- **Q**: " + truncate(e.Question, truncShort)
	default:
		return truncate(e.Question, truncMention)
	}
}

func renderCustom(e *types.CustomEntry, level DetailLevel) string {
	switch level {
	case DetailFull:
		lines := []string{"### " + e.Title}
		if len(e.Content) > 0 {
			if data, err := json.MarshalIndent(e.Content, "", "  "); err == nil {
				lines = append(lines, string(data))
			}
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		return "- **" + e.Title + "**"
	default:
		return e.Title
	}
}

// renderGeneric handles entry types without a bespoke template by reading
// the common fields back out of the entry's JSON form.
func renderGeneric(e types.Entry, level DetailLevel) string {
	var fields struct {
		Title       string `json:"title"`
		Name        string `json:"name"`
		Role        string `json:"role"`
		Description string `json:"description"`
	}
	if data, err := types.EncodeEntry(e); err == nil {
		_ = json.Unmarshal(data, &fields)
	}
	title := fields.Title
	if title == "" {
		title = fields.Name
	}
	if title == "" {
		title = fields.Role
	}
	if title == "" {
		title = "Untitled"
	}

	switch level {
	case DetailFull:
		lines := []string{"### " + title}
		if fields.Description != "" {
			lines = append(lines, fields.Description)
		}
		return strings.Join(lines, "\n")
	case DetailSummary:
		return "- **" + title + "**"
	default:
		return title
	}
}
