package types

import "time"

// Defaults applied when a stored custom persona omits a field.
const (
	DefaultMinImportance     = 1
	DefaultMinConfidence     = 1
	DefaultTimeDecayDays     = 1825
	DefaultMaxEntriesPerType = 20
)

// Persona is a fully resolved weighting/visibility configuration, either a
// built-in preset or a stored custom persona merged over defaults. A Persona
// is read-only during a generation pass.
type Persona struct {
	Name              string                 `json:"name"`
	Description       string                 `json:"description,omitempty"`
	SystemInstruction string                 `json:"system_instruction,omitempty"`
	Tone              string                 `json:"tone,omitempty"`
	Language          string                 `json:"language,omitempty"`
	EntityWeights     map[EntityType]float64 `json:"entity_weights,omitempty"`
	IncludePrivate    bool                   `json:"include_private,omitempty"`
	ExcludeEntities   []EntityType           `json:"exclude_entities,omitempty"`
	MinImportance     int                    `json:"min_importance,omitempty"`
	MinConfidence     int                    `json:"min_confidence,omitempty"`
	TimeDecayDays     float64                `json:"time_decay_days,omitempty"`
	MaxEntriesPerType int                    `json:"max_entries_per_type,omitempty"`
}

// Weight returns the multiplier for an entity type, defaulting to 1.0 when
// the persona does not weight the type explicitly.
func (p *Persona) Weight(t EntityType) float64 {
	if w, ok := p.EntityWeights[t]; ok {
		return w
	}
	return 1.0
}

// Excludes reports whether the entity type is forced out of the document
// regardless of weight.
func (p *Persona) Excludes(t EntityType) bool {
	for _, e := range p.ExcludeEntities {
		if e == t {
			return true
		}
	}
	return false
}

// PersonaRecord is a stored custom persona row, owned by a profile. Optional
// numeric fields stay zero when absent so the resolver can apply the
// documented defaults during the merge.
type PersonaRecord struct {
	ID                string                 `json:"id,omitempty"`
	ProfileID         string                 `json:"profile_id,omitempty"`
	Name              string                 `json:"name"`
	Description       string                 `json:"description,omitempty"`
	SystemInstruction string                 `json:"system_instruction,omitempty"`
	Tone              string                 `json:"tone,omitempty"`
	Language          string                 `json:"language,omitempty"`
	EntityWeights     map[EntityType]float64 `json:"entity_weights,omitempty"`
	IncludePrivate    bool                   `json:"include_private,omitempty"`
	ExcludeEntities   []EntityType           `json:"exclude_entities,omitempty"`
	MinImportance     int                    `json:"min_importance,omitempty"`
	MinConfidence     int                    `json:"min_confidence,omitempty"`
	TimeDecayDays     float64                `json:"time_decay_days,omitempty"`
	MaxEntriesPerType int                    `json:"max_entries_per_type,omitempty"`
	CreatedAt         time.Time              `json:"created_at,omitempty"`
	UpdatedAt         time.Time              `json:"updated_at,omitempty"`
}

// Resolve merges the stored record over the documented defaults, producing a
// usable Persona.
func (r *PersonaRecord) Resolve() Persona {
	p := Persona{
		Name:              r.Name,
		Description:       r.Description,
		SystemInstruction: r.SystemInstruction,
		Tone:              r.Tone,
		Language:          r.Language,
		EntityWeights:     r.EntityWeights,
		IncludePrivate:    r.IncludePrivate,
		ExcludeEntities:   r.ExcludeEntities,
		MinImportance:     r.MinImportance,
		MinConfidence:     r.MinConfidence,
		TimeDecayDays:     r.TimeDecayDays,
		MaxEntriesPerType: r.MaxEntriesPerType,
	}
	if p.Language == "" {
		p.Language = "auto"
	}
	if p.EntityWeights == nil {
		p.EntityWeights = map[EntityType]float64{}
	}
	if p.ExcludeEntities == nil {
		p.ExcludeEntities = []EntityType{}
	}
	if p.MinImportance == 0 {
		p.MinImportance = DefaultMinImportance
	}
	if p.MinConfidence == 0 {
		p.MinConfidence = DefaultMinConfidence
	}
	if p.TimeDecayDays == 0 {
		p.TimeDecayDays = DefaultTimeDecayDays
	}
	if p.MaxEntriesPerType == 0 {
		p.MaxEntriesPerType = DefaultMaxEntriesPerType
	}
	return p
}
