// Package store loads and persists search profiles. The engine treats the
// store as a read model loaded at startup; it is re-synced only on explicit
// add/remove commands, never polled.
package store

import (
	"context"

	"vintedwatch/monitor-service/internal/model"
)

// ProfileStore supplies the monitored search profiles and persists their
// runtime stats between cycles.
type ProfileStore interface {
	// LoadProfiles returns every configured profile, including disabled
	// ones — the scheduler decides what runs.
	LoadProfiles(ctx context.Context) ([]model.SearchProfile, error)

	// SaveStats persists the items-found counter and last-run timestamp
	// after a successful cycle.
	SaveStats(ctx context.Context, p model.SearchProfile) error
}
