package contextgen

import (
	"fmt"
	"strings"

	"github.com/selfmap/selfmap/pkg/types"
)

// DefaultMaxTokensHint caps document size when the caller gives no hint.
const DefaultMaxTokensHint = 4000

// charsPerToken is the rough estimate used to turn a token hint into a
// character budget.
const charsPerToken = 4

// RenderDocument assembles the final Markdown context document from the
// profile, the resolved persona, and the organized sections. Output is cut
// off section by section once the character budget derived from the token
// hint is spent. The header and profile block always render in full.
func RenderDocument(profile *types.Profile, persona types.Persona, sections []Section, focus string, maxTokensHint int) string {
	if maxTokensHint <= 0 {
		maxTokensHint = DefaultMaxTokensHint
	}

	var lines []string

	profileName := "Unknown"
	if profile != nil && profile.Name != "" {
		profileName = profile.Name
	}
	lines = append(lines, fmt.Sprintf("# Context: %s (Persona: %s)", profileName, persona.Name))

	if persona.SystemInstruction != "" || persona.Tone != "" {
		var parts []string
		if persona.SystemInstruction != "" {
			parts = append(parts, "**Instructions**: "+persona.SystemInstruction)
		}
		if persona.Tone != "" {
			parts = append(parts, "**Tone**: "+persona.Tone)
		}
		lines = append(lines, "> "+strings.Join(parts, "\n> "))
	}

	if focus != "" {
		lines = append(lines, "> **Focus**: "+focus)
	}

	lines = append(lines, "")

	if profile != nil {
		lines = append(lines, "## Profile")
		for _, f := range []struct{ label, value string }{
			{"Name", profile.Name},
			{"Title", profile.Title},
			{"Organization", profile.Organization},
			{"Tagline", profile.Tagline},
			{"Bio", profile.Bio},
			{"Mission", profile.Mission},
			{"Vision", profile.Vision},
		} {
			if f.value != "" {
				lines = append(lines, fmt.Sprintf("- **%s**: %s", f.label, f.value))
			}
		}
		if len(profile.CoreValues) > 0 {
			lines = append(lines, "- **Core Values**: "+strings.Join(profile.CoreValues, ", "))
		}
		if len(profile.PersonalityTraits) > 0 {
			lines = append(lines, "- **Personality**: "+strings.Join(profile.PersonalityTraits, ", "))
		}
		if profile.PersonalityType != "" {
			lines = append(lines, "- **Type**: "+profile.PersonalityType)
		}
		lines = append(lines, "")
	}

	charBudget := maxTokensHint * charsPerToken
	usedChars := len(strings.Join(lines, "\n"))

	for _, section := range sections {
		if usedChars >= charBudget {
			break
		}

		weightLabel := ""
		if section.Weight != 1.0 {
			weightLabel = fmt.Sprintf(", weight: %gx", section.Weight)
		}
		header := fmt.Sprintf("## %s (%d entries%s)", section.Label, len(section.Entries), weightLabel)
		lines = append(lines, header)
		usedChars += len(header) + 1

		var mentions []string
		for _, se := range section.Entries {
			switch se.Level {
			case DetailFull, DetailSummary:
				if usedChars >= charBudget {
					continue
				}
				rendered := RenderEntry(se.Entry, se.Level, se.Score)
				lines = append(lines, rendered)
				usedChars += len(rendered) + 1
			default:
				mentions = append(mentions, RenderEntry(se.Entry, DetailMention, se.Score))
			}
		}

		if len(mentions) > 0 && usedChars < charBudget {
			mentionLine := "Also: " + strings.Join(mentions, ", ")
			lines = append(lines, mentionLine)
			usedChars += len(mentionLine) + 1
		}

		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
