// Package types defines the shared domain types for the selfmap system:
// the profile, the persona configuration, and the typed entry records for
// every entity category that can appear in a generated context document.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityType identifies one of the fixed personal-data categories.
type EntityType string

// All entity types that can be weighted and rendered into a context document.
const (
	EntityCareer        EntityType = "career_entries"
	EntitySkills        EntityType = "skills"
	EntityProjects      EntityType = "projects"
	EntityAchievements  EntityType = "achievements"
	EntityEpisodes      EntityType = "episodes"
	EntityEducation     EntityType = "education"
	EntityHobbies       EntityType = "hobbies"
	EntityValues        EntityType = "values_philosophy"
	EntityHealth        EntityType = "health_entries"
	EntityLifeEvents    EntityType = "life_events"
	EntityRelationships EntityType = "relationships"
	EntityGoals         EntityType = "goals"
	EntityBooks         EntityType = "favorite_books"
	EntityQuotes        EntityType = "favorite_quotes"
	EntityInfluences    EntityType = "influences"
	EntityRoutines      EntityType = "daily_routines"
	EntityTools         EntityType = "favorite_tools"
	EntityFAQ           EntityType = "faq"
	EntityCustom        EntityType = "custom_entries"
)

// AllEntityTypes lists every entity type in canonical order. This order is
// the tie-break for section organisation and the iteration order for the
// fetch fan-out, so it must stay stable.
var AllEntityTypes = []EntityType{
	EntityCareer,
	EntitySkills,
	EntityProjects,
	EntityAchievements,
	EntityEpisodes,
	EntityEducation,
	EntityHobbies,
	EntityValues,
	EntityHealth,
	EntityLifeEvents,
	EntityRelationships,
	EntityGoals,
	EntityBooks,
	EntityQuotes,
	EntityInfluences,
	EntityRoutines,
	EntityTools,
	EntityFAQ,
	EntityCustom,
}

// entityLabels maps entity types to human-readable section labels.
var entityLabels = map[EntityType]string{
	EntityCareer:        "Career",
	EntitySkills:        "Skills",
	EntityProjects:      "Projects",
	EntityAchievements:  "Achievements",
	EntityEpisodes:      "Episodes",
	EntityEducation:     "Education",
	EntityHobbies:       "Hobbies",
	EntityValues:        "Values & Philosophy",
	EntityHealth:        "Health",
	EntityLifeEvents:    "Life Events",
	EntityRelationships: "Relationships",
	EntityGoals:         "Goals",
	EntityBooks:         "Books",
	EntityQuotes:        "Quotes",
	EntityInfluences:    "Influences",
	EntityRoutines:      "Daily Routines",
	EntityTools:         "Tools",
	EntityFAQ:           "FAQ",
	EntityCustom:        "Custom",
}

// Label returns the human-readable section label for the entity type.
func (t EntityType) Label() string {
	if l, ok := entityLabels[t]; ok {
		return l
	}
	return string(t)
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	_, ok := entityLabels[t]
	return ok
}

// ParseEntityType validates a raw entity type string.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// Default values applied when an entry does not carry an explicit
// importance or confidence.
const (
	DefaultImportance = 5
	DefaultConfidence = 8
)

// Record holds the fields shared by every entry regardless of entity type.
// It is embedded in each concrete entry struct.
type Record struct {
	ID         string         `json:"id,omitempty"`
	ProfileID  string         `json:"profile_id,omitempty"`
	Importance int            `json:"importance,omitempty"` // 1-10, 0 means unset (treated as 5)
	Confidence int            `json:"confidence,omitempty"` // 1-10, 0 means unset (treated as 8)
	Tags       []string       `json:"tags,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at,omitempty"`
}

// Meta returns the shared record fields. It exists so that embedding Record
// satisfies the Entry interface's accessor.
func (r *Record) Meta() *Record { return r }

// EffectiveImportance returns the importance with the documented default
// applied when unset.
func (r *Record) EffectiveImportance() int {
	if r.Importance == 0 {
		return DefaultImportance
	}
	return r.Importance
}

// EffectiveConfidence returns the confidence with the documented default
// applied when unset.
func (r *Record) EffectiveConfidence() int {
	if r.Confidence == 0 {
		return DefaultConfidence
	}
	return r.Confidence
}

// Entry is the variant interface implemented by every typed entry struct.
// Entries are immutable during a generation pass: scoring and rendering read
// them but never mutate the source record.
type Entry interface {
	Kind() EntityType
	Meta() *Record
}

// CareerEntry is a single role or position in the subject's career history.
type CareerEntry struct {
	Record
	Role         string   `json:"role,omitempty"`
	Organization string   `json:"organization,omitempty"`
	OrgType      string   `json:"org_type,omitempty"`
	Domain       string   `json:"domain,omitempty"`
	PeriodStart  string   `json:"period_start,omitempty"`
	PeriodEnd    string   `json:"period_end,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Insights     []string `json:"insights,omitempty"`
	MentionTone  string   `json:"mention_tone,omitempty"`
}

func (*CareerEntry) Kind() EntityType { return EntityCareer }

// Skill is a named competency with optional proficiency evidence.
type Skill struct {
	Record
	Name            string `json:"name,omitempty"`
	Category        string `json:"category,omitempty"`
	Proficiency     int    `json:"proficiency,omitempty"`
	YearsExperience int    `json:"years_experience,omitempty"`
	Evidence        string `json:"evidence,omitempty"`
}

func (*Skill) Kind() EntityType { return EntitySkills }

// Project is a delivered piece of work with technologies and outcomes.
type Project struct {
	Record
	Name         string   `json:"name,omitempty"`
	Type         string   `json:"type,omitempty"`
	Description  string   `json:"description,omitempty"`
	Role         string   `json:"role,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Outcomes     []string `json:"outcomes,omitempty"`
	Lessons      []string `json:"lessons,omitempty"`
	URL          string   `json:"url,omitempty"`
	PeriodStart  string   `json:"period_start,omitempty"`
	PeriodEnd    string   `json:"period_end,omitempty"`
}

func (*Project) Kind() EntityType { return EntityProjects }

// Achievement is an award, certification, publication, or similar.
type Achievement struct {
	Record
	Type   string `json:"type,omitempty"`
	Name   string `json:"name,omitempty"`
	Detail string `json:"detail,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	Year   int    `json:"year,omitempty"`
	URL    string `json:"url,omitempty"`
}

func (*Achievement) Kind() EntityType { return EntityAchievements }

// Episode is a narrative anecdote, typically in STAR form.
type Episode struct {
	Record
	Title       string   `json:"title,omitempty"`
	Type        string   `json:"type,omitempty"`
	Domain      string   `json:"domain,omitempty"`
	Situation   string   `json:"situation,omitempty"`
	Task        string   `json:"task,omitempty"`
	Action      string   `json:"action,omitempty"`
	Result      string   `json:"result,omitempty"`
	Insights    []string `json:"insights,omitempty"`
	Emotions    []string `json:"emotions,omitempty"`
	PeriodStart string   `json:"period_start,omitempty"`
	PeriodEnd   string   `json:"period_end,omitempty"`
}

func (*Episode) Kind() EntityType { return EntityEpisodes }

// Education is a formal or informal education record.
type Education struct {
	Record
	Type        string `json:"type,omitempty"`
	Institution string `json:"institution,omitempty"`
	Field       string `json:"field,omitempty"`
	Degree      string `json:"degree,omitempty"`
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`
	Description string `json:"description,omitempty"`
}

func (*Education) Kind() EntityType { return EntityEducation }

// Hobby is a leisure interest.
type Hobby struct {
	Record
	Name          string   `json:"name,omitempty"`
	PassionLevel  int      `json:"passion_level,omitempty"`
	Description   string   `json:"description,omitempty"`
	RelatedSkills []string `json:"related_skills,omitempty"`
}

func (*Hobby) Kind() EntityType { return EntityHobbies }

// ValuePhilosophy is a held value, principle, or philosophy.
type ValuePhilosophy struct {
	Record
	Type        string `json:"type,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Origin      string `json:"origin,omitempty"`
}

func (*ValuePhilosophy) Kind() EntityType { return EntityValues }

// HealthEntry is a health-related record. Private by flag.
type HealthEntry struct {
	Record
	Type        string `json:"type,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	IsPrivate   bool   `json:"is_private,omitempty"`
}

func (*HealthEntry) Kind() EntityType { return EntityHealth }

// LifeEvent is a dated significant life event.
type LifeEvent struct {
	Record
	Type        string `json:"type,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Impact      string `json:"impact,omitempty"`
	EventDate   string `json:"event_date,omitempty"`
}

func (*LifeEvent) Kind() EntityType { return EntityLifeEvents }

// Relationship describes a person in the subject's life, referenced by alias.
type Relationship struct {
	Record
	Type        string `json:"type,omitempty"`
	Alias       string `json:"alias,omitempty"`
	RealName    string `json:"real_name,omitempty"`
	Description string `json:"description,omitempty"`
	Influence   string `json:"influence,omitempty"`
	IsPrivate   bool   `json:"is_private,omitempty"`
}

func (*Relationship) Kind() EntityType { return EntityRelationships }

// Goal is an aspiration with status and progress tracking.
type Goal struct {
	Record
	Type        string `json:"type,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Progress    *int   `json:"progress,omitempty"` // percent; nil means not tracked
	TargetDate  string `json:"target_date,omitempty"`
}

func (*Goal) Kind() EntityType { return EntityGoals }

// FavoriteBook is a book the subject values.
type FavoriteBook struct {
	Record
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Category string `json:"category,omitempty"`
	Rating   int    `json:"rating,omitempty"`
	Review   string `json:"review,omitempty"`
	YearRead int    `json:"year_read,omitempty"`
}

func (*FavoriteBook) Kind() EntityType { return EntityBooks }

// FavoriteQuote is a quote the subject identifies with.
type FavoriteQuote struct {
	Record
	Quote   string `json:"quote,omitempty"`
	Author  string `json:"author,omitempty"`
	Source  string `json:"source,omitempty"`
	Context string `json:"context,omitempty"`
}

func (*FavoriteQuote) Kind() EntityType { return EntityQuotes }

// Influence is a person, work, or idea that shaped the subject.
type Influence struct {
	Record
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Domain      string `json:"domain,omitempty"`
}

func (*Influence) Kind() EntityType { return EntityInfluences }

// DailyRoutine is a recurring habit or routine.
type DailyRoutine struct {
	Record
	Title           string `json:"title,omitempty"`
	TimeOfDay       string `json:"time_of_day,omitempty"`
	Frequency       string `json:"frequency,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Description     string `json:"description,omitempty"`
}

func (*DailyRoutine) Kind() EntityType { return EntityRoutines }

// FavoriteTool is a preferred tool, product, or piece of software.
type FavoriteTool struct {
	Record
	Name        string `json:"name,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	WhyFavorite string `json:"why_favorite,omitempty"`
	Proficiency string `json:"proficiency,omitempty"`
}

func (*FavoriteTool) Kind() EntityType { return EntityTools }

// FAQEntry is a pre-authored question/answer pair. Public by flag.
type FAQEntry struct {
	Record
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
	// IsPublic has no omitempty: a public FAQ must keep is_public in its
	// encoded form, or it would decode back as not-public.
	IsPublic bool   `json:"is_public"`
}

func (*FAQEntry) Kind() EntityType { return EntityFAQ }

// CustomEntry is a free-form entry under a user-defined category.
type CustomEntry struct {
	Record
	CategoryID string         `json:"category_id,omitempty"`
	Title      string         `json:"title,omitempty"`
	Content    map[string]any `json:"content,omitempty"`
}

func (*CustomEntry) Kind() EntityType { return EntityCustom }

// NewEntry returns a zero value of the concrete entry struct for the given
// entity type.
func NewEntry(t EntityType) (Entry, error) {
	switch t {
	case EntityCareer:
		return &CareerEntry{}, nil
	case EntitySkills:
		return &Skill{}, nil
	case EntityProjects:
		return &Project{}, nil
	case EntityAchievements:
		return &Achievement{}, nil
	case EntityEpisodes:
		return &Episode{}, nil
	case EntityEducation:
		return &Education{}, nil
	case EntityHobbies:
		return &Hobby{}, nil
	case EntityValues:
		return &ValuePhilosophy{}, nil
	case EntityHealth:
		return &HealthEntry{}, nil
	case EntityLifeEvents:
		return &LifeEvent{}, nil
	case EntityRelationships:
		return &Relationship{}, nil
	case EntityGoals:
		return &Goal{}, nil
	case EntityBooks:
		return &FavoriteBook{}, nil
	case EntityQuotes:
		return &FavoriteQuote{}, nil
	case EntityInfluences:
		return &Influence{}, nil
	case EntityRoutines:
		return &DailyRoutine{}, nil
	case EntityTools:
		return &FavoriteTool{}, nil
	case EntityFAQ:
		return &FAQEntry{}, nil
	case EntityCustom:
		return &CustomEntry{}, nil
	default:
		return nil, fmt.Errorf("unknown entity type %q", t)
	}
}

// DecodeEntry unmarshals a JSON attribute document into the typed entry
// struct for the given entity type. Unknown fields are ignored so that older
// rows with extra attributes still decode.
func DecodeEntry(t EntityType, data []byte) (Entry, error) {
	e, err := NewEntry(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode %s entry: %w", t, err)
	}
	return e, nil
}

// EncodeEntry marshals the typed entry struct into its JSON attribute
// document.
func EncodeEntry(e Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s entry: %w", e.Kind(), err)
	}
	return data, nil
}

// EntryPrivacy reports the visibility flags relevant to the entry's type.
// visible is false when the entry must be hidden from personas that do not
// include private data.
func EntryPrivacy(e Entry) (visible bool) {
	switch v := e.(type) {
	case *HealthEntry:
		return !v.IsPrivate
	case *Relationship:
		return !v.IsPrivate
	case *FAQEntry:
		return v.IsPublic
	default:
		return true
	}
}
