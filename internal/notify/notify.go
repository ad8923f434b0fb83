// Package notify delivers new-item notifications. The engine's obligation
// ends at a successful hand-off; delivery failures are logged, never retried.
package notify

import (
	"context"
	"log"

	"vintedwatch/monitor-service/internal/model"
)

// Notifier receives one (destination, item) pair per newly admitted listing.
type Notifier interface {
	Notify(ctx context.Context, destination string, item model.Item) error
}

// LogNotifier writes notifications to the process log. Used in development
// and when no Telegram token is configured.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(_ context.Context, destination string, item model.Item) error {
	log.Printf("[notify] → %s: %s — %s %s (size %s) %s",
		destination, item.Title, item.Price, item.Currency, item.Size, item.URL)
	return nil
}
