package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"vintedwatch/monitor-service/internal/model"
)

const (
	// DefaultPageSize keeps both the noise floor and the worst-case work per
	// cycle small.
	DefaultPageSize = 20

	searchPath = "/api/v2/catalog/items"
)

// Fetcher issues catalog queries for one marketplace domain through the
// shared session.
type Fetcher struct {
	session  *Session
	domain   string
	pageSize int
}

// NewFetcher constructs a fetcher bound to the domain's shared session.
func NewFetcher(sessions *SessionManager, domain string, pageSize int) *Fetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Fetcher{
		session:  sessions.Acquire(domain),
		domain:   domain,
		pageSize: pageSize,
	}
}

// catalogResponse mirrors the top-level catalog JSON response.
type catalogResponse struct {
	Items []catalogItem `json:"items"`
}

// catalogItem mirrors a single catalog listing.
type catalogItem struct {
	ID         json.Number  `json:"id"`
	Title      string       `json:"title"`
	Price      catalogPrice `json:"price"`
	SizeTitle  string       `json:"size_title"`
	BrandTitle string       `json:"brand_title"`
	Status     string       `json:"status"`
	User       catalogUser  `json:"user"`
	URL        string       `json:"url"`
	Photo      catalogPhoto `json:"photo"`
	CatalogID  int          `json:"catalog_id"`
}

type catalogPrice struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

type catalogUser struct {
	Login string `json:"login"`
}

type catalogPhoto struct {
	URL string `json:"url"`
}

// Fetch runs one catalog query for the profile and returns the listings in
// the order the marketplace reports them (newest first). A legitimate
// zero-match response yields an empty slice and no error. Session errors
// propagate unchanged; a body that does not decode is ErrParse.
func (f *Fetcher) Fetch(ctx context.Context, p model.SearchProfile) ([]model.Item, error) {
	params := url.Values{}
	params.Set("search_text", p.Query)
	params.Set("page", "1")
	params.Set("per_page", strconv.Itoa(f.pageSize))
	params.Set("order", "newest_first")
	if ids := CatalogParam(p); ids != "" {
		params.Set("catalog_ids", ids)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.domain+searchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Referer", f.domain+"/catalog")

	body, err := f.session.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode catalog response: %v: %w", err, ErrParse)
	}

	items := make([]model.Item, 0, len(resp.Items))
	for _, it := range resp.Items {
		id := it.ID.String()
		if id == "" {
			continue
		}
		detail := it.URL
		if detail == "" {
			detail = fmt.Sprintf("%s/items/%s", f.domain, id)
		}
		items = append(items, model.Item{
			ID:        id,
			Title:     it.Title,
			Price:     it.Price.Amount,
			Currency:  it.Price.CurrencyCode,
			Size:      it.SizeTitle,
			Brand:     it.BrandTitle,
			Status:    it.Status,
			Seller:    it.User.Login,
			URL:       detail,
			PhotoURL:  it.Photo.URL,
			CatalogID: it.CatalogID,
		})
	}
	return items, nil
}
