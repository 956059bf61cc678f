package types

import "time"

// Profile is the subject person that all entries belong to. A selfmap
// database normally holds exactly one profile; the first profile is the
// default subject for context generation.
type Profile struct {
	ID                string            `json:"id,omitempty"`
	Name              string            `json:"name,omitempty"`
	NameEN            string            `json:"name_en,omitempty"`
	Title             string            `json:"title,omitempty"`
	TitleFull         string            `json:"title_full,omitempty"`
	Organization      string            `json:"organization,omitempty"`
	Tagline           string            `json:"tagline,omitempty"`
	Bio               string            `json:"bio,omitempty"`
	Mission           string            `json:"mission,omitempty"`
	Vision            string            `json:"vision,omitempty"`
	CoreValues        []string          `json:"core_values,omitempty"`
	PersonalityType   string            `json:"personality_type,omitempty"`
	PersonalityTraits []string          `json:"personality_traits,omitempty"`
	CareerYears       int               `json:"career_years,omitempty"`
	URLs              map[string]string `json:"urls,omitempty"`
	SpeechStyle       string            `json:"speech_style,omitempty"`
	Tone              string            `json:"tone,omitempty"`
	Catchphrases      []string          `json:"catchphrases,omitempty"`
	Stance            string            `json:"stance,omitempty"`
	CreatedAt         time.Time         `json:"created_at,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at,omitempty"`
}
