package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vintedwatch/monitor-service/internal/model"
	"vintedwatch/monitor-service/internal/store"
)

const sampleConfig = `{
  "telegram_token": "123:abc",
  "country_code": ".hu",
  "searches": [
    {
      "chat_id": "-100200300",
      "query": "nike air max",
      "gender": "Men",
      "size_titles": ["42", "43"]
    },
    {
      "chat_id": "-100200301",
      "query": "lego technic",
      "category": "Other",
      "gender": "Men",
      "size_titles": ["XL"],
      "enabled": false
    }
  ]
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenJSONStore_MissingFile(t *testing.T) {
	if _, err := store.OpenJSONStore(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for a missing config file")
	}
}

func TestOpenJSONStore_MalformedFile(t *testing.T) {
	path := writeConfig(t, "{not json")
	if _, err := store.OpenJSONStore(path); err == nil {
		t.Error("expected error for a malformed config file")
	}
}

func TestJSONStore_LoadProfiles(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	s, err := store.OpenJSONStore(path)
	if err != nil {
		t.Fatalf("OpenJSONStore: %v", err)
	}

	token, country := s.Settings()
	if token != "123:abc" || country != ".hu" {
		t.Errorf("Settings() = (%q, %q)", token, country)
	}

	profiles, err := s.LoadProfiles(context.Background())
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}

	nike := profiles[0]
	if nike.Category != model.CategoryClothing {
		t.Errorf("missing category should default to Clothing, got %q", nike.Category)
	}
	if nike.Gender != model.GenderMen || len(nike.Sizes) != 2 {
		t.Errorf("clothing criteria not carried: %+v", nike)
	}
	if !nike.Enabled {
		t.Error("missing enabled flag should default to true")
	}
	if nike.Name != "Search: nike air max" {
		t.Errorf("derived name = %q", nike.Name)
	}
	if nike.Destination != "-100200300" {
		t.Errorf("destination = %q", nike.Destination)
	}

	lego := profiles[1]
	if lego.Category != model.CategoryOther {
		t.Errorf("category = %q, want Other", lego.Category)
	}
	// Gender and sizes carry no meaning outside Clothing and are dropped
	// even when the file sets them.
	if lego.Gender != model.GenderNone || lego.Sizes != nil {
		t.Errorf("non-clothing profile kept clothing criteria: %+v", lego)
	}
	if lego.Enabled {
		t.Error("enabled=false not honored")
	}
}

func TestJSONStore_AssignsAndPersistsIDs(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	s, err := store.OpenJSONStore(path)
	if err != nil {
		t.Fatalf("OpenJSONStore: %v", err)
	}

	profiles, err := s.LoadProfiles(context.Background())
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	for i, p := range profiles {
		if p.ID == "" {
			t.Fatalf("profile %d got no id", i)
		}
	}

	// The ids must be written back so dedup state stays stable across
	// restarts.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var onDisk struct {
		Searches []struct {
			ID string `json:"id"`
		} `json:"searches"`
	}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("reparse flushed config: %v", err)
	}
	for i, fs := range onDisk.Searches {
		if fs.ID != profiles[i].ID {
			t.Errorf("search %d: on-disk id %q != loaded id %q", i, fs.ID, profiles[i].ID)
		}
	}

	// A second open sees the same ids.
	s2, err := store.OpenJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}
	again, err := s2.LoadProfiles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := range profiles {
		if again[i].ID != profiles[i].ID {
			t.Errorf("profile %d id changed across restarts: %q != %q", i, again[i].ID, profiles[i].ID)
		}
	}
}

func TestJSONStore_SaveStats(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	s, err := store.OpenJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}
	profiles, err := s.LoadProfiles(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	p := profiles[0]
	p.ItemsFound = 7
	p.LastRun = time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
	if err := s.SaveStats(context.Background(), p); err != nil {
		t.Fatalf("SaveStats: %v", err)
	}

	s2, err := store.OpenJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}
	again, err := s2.LoadProfiles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if again[0].ItemsFound != 7 {
		t.Errorf("ItemsFound = %d, want 7", again[0].ItemsFound)
	}
	if !again[0].LastRun.Equal(p.LastRun) {
		t.Errorf("LastRun = %s, want %s", again[0].LastRun, p.LastRun)
	}
}

func TestJSONStore_SaveStats_UnknownProfile(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	s, err := store.OpenJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveStats(context.Background(), model.SearchProfile{ID: "ghost"}); err == nil {
		t.Error("expected error for an unknown profile id")
	}
}

func TestJSONStore_Validation(t *testing.T) {
	cases := []struct {
		name   string
		search string
	}{
		{"missing query", `{"chat_id": "-1"}`},
		{"missing chat_id", `{"query": "x"}`},
		{"unknown category", `{"chat_id": "-1", "query": "x", "category": "Shoes"}`},
		{"unknown gender", `{"chat_id": "-1", "query": "x", "gender": "Unisex"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeConfig(t, `{"searches": [`+c.search+`]}`)
			s, err := store.OpenJSONStore(path)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.LoadProfiles(context.Background()); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
