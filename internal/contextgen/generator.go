// Package contextgen implements the persona-weighted context generation
// engine: persona resolution, concurrent entry fetching, scoring with time
// decay and focus boosts, and budget-aware Markdown document assembly.
package contextgen

import (
	"context"
	"fmt"
	"time"

	"github.com/selfmap/selfmap/internal/storage"
)

// Options controls a single context generation request.
type Options struct {
	// Persona selects a preset or stored persona by name. Empty selects the
	// default persona.
	Persona string
	// Focus is a free-text keyword that boosts matching entries.
	Focus string
	// MaxTokensHint bounds the output size. Zero means DefaultMaxTokensHint.
	MaxTokensHint int
}

// Generator produces persona-weighted context documents from a store.
type Generator struct {
	store    storage.Store
	resolver *Resolver
	fetcher  *Fetcher
	now      func() time.Time
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides the time source. Tests use this to freeze decay.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator wires a Generator on top of the given store.
func NewGenerator(store storage.Store, opts ...GeneratorOption) *Generator {
	g := &Generator{
		store:    store,
		resolver: NewResolver(store),
		fetcher:  NewFetcher(store),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the Markdown context document for one profile. The profile
// must exist; every other failure degrades to a smaller document rather than
// an error.
func (g *Generator) Generate(ctx context.Context, profileID string, opts Options) (string, error) {
	persona := g.resolver.Resolve(ctx, profileID, opts.Persona)

	profile, err := g.store.GetProfile(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("load profile %s: %w", profileID, err)
	}

	now := g.now()
	results := g.fetcher.Fetch(ctx, profileID, &persona)
	sections := OrganizeSections(results, persona, opts.Focus, now)

	return RenderDocument(profile, persona, sections, opts.Focus, opts.MaxTokensHint), nil
}
