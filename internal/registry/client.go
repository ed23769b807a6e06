package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"addonlocales/pkg/models"
)

const (
	DefaultBaseURL  = "https://addons.mozilla.org"
	DefaultPageSize = 50
	DefaultMaxPages = 4

	searchPath = "/api/v5/addons/search/"
)

// ErrNotFound is returned by Lookup when a GUID is absent from every page
// the client is allowed to fetch.
var ErrNotFound = errors.New("registry: guid not found")

// Client resolves GUIDs against the registry's search endpoint, ordered
// by user count. Pages are fetched lazily, each at most once, and never
// more than MaxPages per client.
type Client struct {
	BaseURL  string
	Client   *http.Client
	PageSize int
	MaxPages int
	Logger   *slog.Logger

	pages     *lru.Cache[int, []models.SearchResult]
	byGUID    map[string]models.SearchResult
	fetched   int
	nextPage  int
	exhausted bool
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   httpClient,
		PageSize: DefaultPageSize,
		MaxPages: DefaultMaxPages,
		Logger:   slog.Default(),
		byGUID:   make(map[string]models.SearchResult),
		nextPage: 1,
	}
}

// Lookup returns the search result for guid, fetching further pages only
// while it has not been seen yet.
func (c *Client) Lookup(ctx context.Context, guid string) (models.SearchResult, error) {
	for {
		if r, ok := c.byGUID[guid]; ok {
			return r, nil
		}
		if c.exhausted || c.FetchedPages() >= c.maxPages() {
			return models.SearchResult{}, ErrNotFound
		}
		if c.nextPage < 1 {
			c.nextPage = 1
		}
		if _, err := c.Page(ctx, c.nextPage); err != nil {
			return models.SearchResult{}, err
		}
	}
}

// FetchedPages reports how many page requests this client has completed.
func (c *Client) FetchedPages() int {
	return c.fetched
}

// Page returns page n (1-based), from cache when already fetched.
func (c *Client) Page(ctx context.Context, n int) ([]models.SearchResult, error) {
	if c.pages == nil {
		cache, err := lru.New[int, []models.SearchResult](c.maxPages())
		if err != nil {
			return nil, fmt.Errorf("registry: page cache: %w", err)
		}
		c.pages = cache
	}
	if c.byGUID == nil {
		c.byGUID = make(map[string]models.SearchResult)
	}
	if results, ok := c.pages.Get(n); ok {
		return results, nil
	}

	c.logger().Info(fmt.Sprintf("Requesting page: %d", n), slog.Int("page", n))
	page, err := c.fetch(ctx, n)
	if err != nil {
		return nil, err
	}
	c.fetched++

	c.pages.Add(n, page.Results)
	for _, r := range page.Results {
		if r.GUID == "" {
			continue
		}
		if _, seen := c.byGUID[r.GUID]; !seen {
			c.byGUID[r.GUID] = r
		}
	}
	if n >= c.nextPage {
		c.nextPage = n + 1
	}
	if len(page.Results) == 0 || page.Next == nil || *page.Next == "" {
		c.exhausted = true
	}
	return page.Results, nil
}

func (c *Client) fetch(ctx context.Context, n int) (*models.SearchPage, error) {
	u, err := url.Parse(c.BaseURL + searchPath)
	if err != nil {
		return nil, fmt.Errorf("registry: build url: %w", err)
	}
	q := u.Query()
	q.Set("type", "extension")
	q.Set("sort", "users")
	q.Set("page_size", strconv.Itoa(c.pageSize()))
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: request page %d: %w", n, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("registry: page %d: status %d: %s", n, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page models.SearchPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("registry: decode page %d: %w", n, err)
	}
	return &page, nil
}

func (c *Client) pageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

func (c *Client) maxPages() int {
	if c.MaxPages <= 0 {
		return DefaultMaxPages
	}
	return c.MaxPages
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
