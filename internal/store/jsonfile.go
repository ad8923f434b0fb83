package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"vintedwatch/monitor-service/internal/model"
)

// fileConfig mirrors the on-disk config.json layout.
type fileConfig struct {
	TelegramToken string       `json:"telegram_token"`
	CountryCode   string       `json:"country_code"`
	Searches      []fileSearch `json:"searches"`
}

type fileSearch struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name,omitempty"`
	Enabled    *bool    `json:"enabled,omitempty"` // missing = enabled
	ChatID     string   `json:"chat_id"`
	Query      string   `json:"query"`
	SizeTitles []string `json:"size_titles,omitempty"`
	Gender     string   `json:"gender,omitempty"`
	Category   string   `json:"category,omitempty"`
	ItemsFound int      `json:"items_found,omitempty"`
	LastRun    string   `json:"last_run,omitempty"`
}

// JSONStore persists profiles in a single config.json file. Hand-written
// configs may omit ids; they are assigned on first load and written back.
type JSONStore struct {
	path string

	mu  sync.Mutex
	cfg fileConfig
}

// OpenJSONStore reads and parses the config file. Fail-fast: a missing or
// malformed file is a startup error.
func OpenJSONStore(path string) (*JSONStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg fileConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &JSONStore{path: path, cfg: cfg}, nil
}

// Settings returns the collaborator settings carried alongside the searches.
func (s *JSONStore) Settings() (telegramToken, countryCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.TelegramToken, s.cfg.CountryCode
}

// LoadProfiles implements ProfileStore. Profiles missing an id get one
// assigned and persisted so dedup state stays stable across restarts.
func (s *JSONStore) LoadProfiles(_ context.Context) ([]model.SearchProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assigned := false
	profiles := make([]model.SearchProfile, 0, len(s.cfg.Searches))
	for i := range s.cfg.Searches {
		fs := &s.cfg.Searches[i]
		if fs.Query == "" {
			return nil, fmt.Errorf("search #%d: query is required", i+1)
		}
		if fs.ChatID == "" {
			return nil, fmt.Errorf("search #%d (%q): chat_id is required", i+1, fs.Query)
		}
		if fs.ID == "" {
			fs.ID = uuid.NewString()
			assigned = true
		}

		category := model.CategoryClothing
		if fs.Category != "" {
			var err error
			category, err = model.ParseCategory(fs.Category)
			if err != nil {
				return nil, fmt.Errorf("search #%d (%q): %w", i+1, fs.Query, err)
			}
		}

		// Gender and sizes carry no meaning outside Clothing.
		gender := model.GenderNone
		var sizes []string
		if category == model.CategoryClothing {
			var err error
			gender, err = model.ParseGender(fs.Gender)
			if err != nil {
				return nil, fmt.Errorf("search #%d (%q): %w", i+1, fs.Query, err)
			}
			sizes = fs.SizeTitles
		}

		name := fs.Name
		if name == "" {
			name = "Search: " + fs.Query
		}

		var lastRun time.Time
		if fs.LastRun != "" {
			lastRun, _ = time.Parse(time.RFC3339, fs.LastRun)
		}

		profiles = append(profiles, model.SearchProfile{
			ID:          fs.ID,
			Name:        name,
			Enabled:     fs.Enabled == nil || *fs.Enabled,
			Destination: fs.ChatID,
			Query:       fs.Query,
			Category:    category,
			Gender:      gender,
			Sizes:       sizes,
			ItemsFound:  fs.ItemsFound,
			LastRun:     lastRun,
		})
	}

	if assigned {
		if err := s.flush(); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

// SaveStats implements ProfileStore by rewriting the config file.
func (s *JSONStore) SaveStats(_ context.Context, p model.SearchProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cfg.Searches {
		if s.cfg.Searches[i].ID != p.ID {
			continue
		}
		s.cfg.Searches[i].ItemsFound = p.ItemsFound
		if !p.LastRun.IsZero() {
			s.cfg.Searches[i].LastRun = p.LastRun.UTC().Format(time.RFC3339)
		}
		return s.flush()
	}
	return fmt.Errorf("profile %s not found in %s", p.ID, s.path)
}

// flush writes the config back to disk. Callers hold s.mu.
func (s *JSONStore) flush() error {
	raw, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return nil
}
