package contextgen

import (
	"context"
	"errors"
	"log"

	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/pkg/types"
)

// presetOrder fixes the listing order of the built-in personas.
var presetOrder = []string{"default", "professional", "interview", "personal", "creative"}

// presetPersonas are the built-in weighting profiles. They are returned
// verbatim by the resolver; custom personas stored per profile are merged
// over defaults instead.
var presetPersonas = map[string]types.Persona{
	"default": {
		Name:              "default",
		Description:       "Balanced view of all data",
		SystemInstruction: "Present a well-rounded picture of this person.",
		Tone:              "neutral",
		Language:          "auto",
		EntityWeights:     map[types.EntityType]float64{},
		IncludePrivate:    false,
		ExcludeEntities:   []types.EntityType{},
		MinImportance:     3,
		MinConfidence:     1,
		TimeDecayDays:     1825,
		MaxEntriesPerType: 20,
	},
	"professional": {
		Name:              "professional",
		Description:       "Work-focused professional profile",
		SystemInstruction: "Present as a competent professional. Emphasize career achievements, technical skills, and professional growth.",
		Tone:              "formal",
		Language:          "auto",
		EntityWeights: map[types.EntityType]float64{
			types.EntityCareer:        2.0,
			types.EntitySkills:        2.0,
			types.EntityAchievements:  2.0,
			types.EntityProjects:      1.5,
			types.EntityEpisodes:      1.0,
			types.EntityEducation:     1.0,
			types.EntityHealth:        0,
			types.EntityRelationships: 0,
			types.EntityRoutines:      0,
		},
		IncludePrivate:    false,
		ExcludeEntities:   []types.EntityType{types.EntityHealth, types.EntityRelationships, types.EntityRoutines},
		MinImportance:     4,
		MinConfidence:     1,
		TimeDecayDays:     1825,
		MaxEntriesPerType: 20,
	},
	"interview": {
		Name:              "interview",
		Description:       "Interview preparation focus",
		SystemInstruction: "Prepare for job interviews. Highlight career highlights, achievements, key episodes (STAR format), and strongest skills.",
		Tone:              "confident",
		Language:          "auto",
		EntityWeights: map[types.EntityType]float64{
			types.EntityCareer:        2.0,
			types.EntityAchievements:  2.0,
			types.EntityEpisodes:      2.0,
			types.EntitySkills:        1.5,
			types.EntityProjects:      1.5,
			types.EntityEducation:     1.0,
			types.EntityHealth:        0,
			types.EntityRelationships: 0,
		},
		IncludePrivate:    false,
		ExcludeEntities:   []types.EntityType{types.EntityHealth, types.EntityRelationships},
		MinImportance:     5,
		MinConfidence:     1,
		TimeDecayDays:     1825,
		MaxEntriesPerType: 15,
	},
	"personal": {
		Name:              "personal",
		Description:       "Personal/private life focus",
		SystemInstruction: "Present the personal side — values, hobbies, life events, books, and personal philosophy.",
		Tone:              "casual",
		Language:          "auto",
		EntityWeights: map[types.EntityType]float64{
			types.EntityValues:        2.0,
			types.EntityHobbies:       2.0,
			types.EntityLifeEvents:    2.0,
			types.EntityBooks:         2.0,
			types.EntityQuotes:        2.0,
			types.EntityInfluences:    2.0,
			types.EntityRelationships: 1.5,
			types.EntityRoutines:      1.5,
		},
		IncludePrivate:    true,
		ExcludeEntities:   []types.EntityType{},
		MinImportance:     3,
		MinConfidence:     1,
		TimeDecayDays:     3650,
		MaxEntriesPerType: 20,
	},
	"creative": {
		Name:              "creative",
		Description:       "Creative and expressive focus",
		SystemInstruction: "Present the creative and expressive side — values, influences, favorite books and quotes, and personal philosophy.",
		Tone:              "expressive",
		Language:          "auto",
		EntityWeights: map[types.EntityType]float64{
			types.EntityValues:     2.0,
			types.EntityBooks:      2.0,
			types.EntityQuotes:     2.0,
			types.EntityInfluences: 2.0,
			types.EntityHobbies:    1.5,
			types.EntityEpisodes:   1.0,
			types.EntityHealth:     0,
		},
		IncludePrivate:    false,
		ExcludeEntities:   []types.EntityType{types.EntityHealth},
		MinImportance:     3,
		MinConfidence:     1,
		TimeDecayDays:     3650,
		MaxEntriesPerType: 20,
	},
}

// Resolver resolves persona names against the built-in presets and the
// custom personas stored for a profile.
type Resolver struct {
	personas storage.PersonaStore
}

// NewResolver creates a persona resolver backed by the given store.
func NewResolver(personas storage.PersonaStore) *Resolver {
	return &Resolver{personas: personas}
}

// Resolve resolves a persona name to a concrete configuration.
//
// Resolution order: empty name → the "default" preset; preset name → that
// preset; otherwise a custom persona stored for the profile, merged over the
// documented defaults. Unknown names and store failures fall back to the
// default preset silently, never an error.
func (r *Resolver) Resolve(ctx context.Context, profileID, name string) types.Persona {
	if name == "" {
		name = "default"
	}

	if p, ok := presetPersonas[name]; ok {
		return p
	}

	if r.personas != nil && profileID != "" {
		rec, err := r.personas.GetPersona(ctx, profileID, name)
		if err == nil && rec != nil {
			return rec.Resolve()
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("contextgen: persona lookup %q failed, using default: %v", name, err)
		}
	}

	return presetPersonas["default"]
}

// ListAvailable returns the preset persona names followed by the profile's
// custom persona names. A store failure degrades to presets only.
func (r *Resolver) ListAvailable(ctx context.Context, profileID string) []string {
	names := make([]string, 0, len(presetOrder))
	names = append(names, presetOrder...)

	if r.personas == nil || profileID == "" {
		return names
	}

	custom, err := r.personas.ListPersonaNames(ctx, profileID)
	if err != nil {
		log.Printf("contextgen: listing custom personas failed, presets only: %v", err)
		return names
	}
	return append(names, custom...)
}
