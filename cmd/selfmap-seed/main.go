// cmd/selfmap-seed imports a YAML file of profile, persona, and entry data
// into the configured store. It is the bulk-load path for standing up a new
// knowledge base without issuing one MCP tool call per record.
//
// The seed file layout:
//
//	profile:
//	  name: Ada Lovelace
//	  title: Analyst
//	personas:
//	  - name: conference
//	    entity_weights: {career_entries: 2.0}
//	entries:
//	  - type: career_entries
//	    role: Technical lead
//	    importance: 8
//
// Each entry carries a "type" key naming its entity type; the remaining keys
// are that type's attributes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/selfmap/selfmap/internal/config"
	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/internal/storage/postgres"
	"github.com/selfmap/selfmap/internal/storage/sqlite"
	"github.com/selfmap/selfmap/pkg/types"
)

type seedEntry struct {
	Type  string         `yaml:"type"`
	Attrs map[string]any `yaml:",inline"`
}

type seedFile struct {
	Profile  map[string]any   `yaml:"profile"`
	Personas []map[string]any `yaml:"personas"`
	Entries  []seedEntry      `yaml:"entries"`
}

func openStore(cfg *config.Config) (storage.Store, io.Closer, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err := postgres.NewStore(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, store, nil
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory %q: %w", cfg.Storage.DataPath, err)
		}
		dbPath := filepath.Join(cfg.Storage.DataPath, "selfmap.db")
		store, err := sqlite.NewStore(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database at %q: %w", dbPath, err)
		}
		return store, store, nil
	}
}

// reencode converts a YAML-decoded map into the given typed destination via
// its JSON form, so the seed file uses the same field names as the MCP tools.
func reencode(src any, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func run(ctx context.Context, store storage.Store, seed *seedFile) error {
	if len(seed.Profile) == 0 {
		return fmt.Errorf("seed file has no profile block")
	}

	var profile types.Profile
	if err := reencode(seed.Profile, &profile); err != nil {
		return fmt.Errorf("failed to decode profile: %w", err)
	}
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}

	// Re-running the seed against an existing profile updates it in place.
	if _, err := store.GetProfile(ctx, profile.ID); err == nil {
		if err := store.UpdateProfile(ctx, &profile); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
	} else {
		if err := store.CreateProfile(ctx, &profile); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
	}
	log.Printf("profile %s (%s)", profile.ID, profile.Name)

	for i, raw := range seed.Personas {
		var rec types.PersonaRecord
		if err := reencode(raw, &rec); err != nil {
			return fmt.Errorf("failed to decode persona %d: %w", i, err)
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		rec.ProfileID = profile.ID
		if err := store.SavePersona(ctx, &rec); err != nil {
			return fmt.Errorf("failed to save persona %q: %w", rec.Name, err)
		}
	}
	log.Printf("saved %d personas", len(seed.Personas))

	for i, se := range seed.Entries {
		kind, err := types.ParseEntityType(se.Type)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		attrs, err := json.Marshal(se.Attrs)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		entry, err := types.DecodeEntry(kind, attrs)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		rec := entry.Meta()
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		rec.ProfileID = profile.ID
		if err := store.UpsertEntry(ctx, entry); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i, kind, err)
		}
	}
	log.Printf("saved %d entries", len(seed.Entries))

	return nil
}

func main() {
	log.SetPrefix("selfmap-seed: ")
	log.SetFlags(0)

	file := flag.String("file", "seed.yaml", "path to the YAML seed file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("failed to read seed file: %v", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("failed to parse seed file: %v", err)
	}

	store, closer, err := openStore(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closer.Close()

	if err := run(context.Background(), store, &seed); err != nil {
		log.Fatalf("%v", err)
	}
	log.Println("seed complete")
}
