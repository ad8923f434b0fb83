package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"vintedwatch/monitor-service/internal/model"
)

// PostgresStore backs profiles with the search_profiles table:
//
//	id          TEXT PRIMARY KEY
//	name        TEXT NOT NULL
//	enabled     BOOLEAN NOT NULL DEFAULT true
//	chat_id     TEXT NOT NULL
//	query       TEXT NOT NULL
//	category    TEXT NOT NULL
//	gender      TEXT
//	sizes       TEXT[]
//	items_found INTEGER NOT NULL DEFAULT 0
//	last_run    TIMESTAMPTZ
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// LoadProfiles implements ProfileStore.
func (s *PostgresStore) LoadProfiles(ctx context.Context) ([]model.SearchProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, enabled, chat_id, query, category,
		        COALESCE(gender, ''), COALESCE(sizes, '{}'), items_found, last_run
		 FROM search_profiles
		 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("query search_profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.SearchProfile
	for rows.Next() {
		var (
			p        model.SearchProfile
			category string
			gender   string
			lastRun  *time.Time
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Enabled, &p.Destination, &p.Query,
			&category, &gender, &p.Sizes, &p.ItemsFound, &lastRun,
		); err != nil {
			return nil, fmt.Errorf("scan search_profiles row: %w", err)
		}
		if p.Category, err = model.ParseCategory(category); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.ID, err)
		}
		if p.Category == model.CategoryClothing {
			if p.Gender, err = model.ParseGender(gender); err != nil {
				return nil, fmt.Errorf("profile %s: %w", p.ID, err)
			}
		} else {
			p.Gender = model.GenderNone
			p.Sizes = nil
		}
		if lastRun != nil {
			p.LastRun = *lastRun
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// SaveStats implements ProfileStore.
func (s *PostgresStore) SaveStats(ctx context.Context, p model.SearchProfile) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE search_profiles SET items_found = $2, last_run = $3 WHERE id = $1`,
		p.ID, p.ItemsFound, p.LastRun,
	)
	if err != nil {
		return fmt.Errorf("update search_profiles: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %s not found", p.ID)
	}
	return nil
}
