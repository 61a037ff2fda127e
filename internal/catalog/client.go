package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lojinha/internal/model"

	"github.com/rs/zerolog"
)

// Item is the read-only product data the order core needs at checkout:
// the price captured onto the line item and the weight fed to the shipping
// calculator.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	WeightKg float64 `json:"weightKg"`
}

// Client is the catalogue lookup contract. The catalogue itself (storage,
// search, filtering) is an external collaborator.
type Client interface {
	Item(ctx context.Context, productID string) (*Item, error)
}

// httpClient fetches items from the catalogue service over HTTP.
type httpClient struct {
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewHTTPClient creates a catalogue client against the given base URL.
func NewHTTPClient(baseURL string, logger zerolog.Logger) Client {
	return &httpClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "catalog-client").Logger(),
	}
}

func (c *httpClient) Item(ctx context.Context, productID string) (*Item, error) {
	endpoint := fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(productID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("product_id", productID).Msg("catalog lookup failed")
		return nil, fmt.Errorf("catalog lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, model.ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var item Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return &item, nil
}

// StaticClient serves items from a fixed in-memory set. Used in tests and
// local development.
type StaticClient struct {
	items map[string]Item
}

// NewStaticClient creates a static catalogue over the given items.
func NewStaticClient(items []Item) *StaticClient {
	m := make(map[string]Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return &StaticClient{items: m}
}

func (c *StaticClient) Item(_ context.Context, productID string) (*Item, error) {
	it, ok := c.items[productID]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	cp := it
	return &cp, nil
}
