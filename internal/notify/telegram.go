package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"vintedwatch/monitor-service/internal/model"
)

const (
	defaultTelegramAPI = "https://api.telegram.org"
	sendPause          = time.Second // pacing between consecutive sends
	sendTimeout        = 15 * time.Second
)

// TelegramNotifier delivers items as HTML messages through the Telegram Bot
// API. The destination routing key is the chat ID.
type TelegramNotifier struct {
	token   string
	apiBase string
	client  *http.Client

	mu       sync.Mutex
	lastSend time.Time
}

// NewTelegramNotifier constructs a notifier for the given bot token.
func NewTelegramNotifier(token string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		apiBase: defaultTelegramAPI,
		client:  &http.Client{Timeout: sendTimeout},
	}
}

// Notify implements Notifier. Sends are paced so bursts of admitted items do
// not trip Telegram's flood limits.
func (n *TelegramNotifier) Notify(ctx context.Context, destination string, item model.Item) error {
	if err := n.pace(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id":                  destination,
		"text":                     FormatItem(item),
		"parse_mode":               "HTML",
		"disable_web_page_preview": false,
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// pace blocks until at least sendPause has passed since the previous send.
// lastSend records when this send's slot opens, so concurrent callers queue
// behind each other one pause apart.
func (n *TelegramNotifier) pace(ctx context.Context) error {
	n.mu.Lock()
	wait := sendPause - time.Since(n.lastSend)
	if wait <= 0 {
		n.lastSend = time.Now()
		n.mu.Unlock()
		return nil
	}
	n.lastSend = time.Now().Add(wait)
	n.mu.Unlock()

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FormatItem renders one listing as a Telegram HTML message.
func FormatItem(item model.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(item.Title))
	fmt.Fprintf(&b, "💰 Price: %s %s\n", item.Price, item.Currency)
	fmt.Fprintf(&b, "📏 Size: %s\n", orNA(item.Size))
	fmt.Fprintf(&b, "🏷️ Brand: %s\n", html.EscapeString(orNA(item.Brand)))
	fmt.Fprintf(&b, "⚡ Condition: %s\n", html.EscapeString(orNA(item.Status)))
	fmt.Fprintf(&b, "👤 Seller: %s\n", html.EscapeString(orNA(item.Seller)))
	fmt.Fprintf(&b, "🔗 <a href='%s'>View Item</a>\n", item.URL)
	if item.PhotoURL != "" {
		fmt.Fprintf(&b, "📸 <a href='%s'>Photo</a>\n", item.PhotoURL)
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
