// Package workshop scrapes mod metadata from the Arma Reforger
// workshop website. Pages embed their data as JSON in the last
// script tag, so the scraper parses that instead of the markup.
package workshop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	modPageURL = "https://reforger.armaplatform.com/workshop/"
	searchURL  = "https://reforger.armaplatform.com/workshop?search="

	// maxSearchResults caps how many rows a search returns.
	maxSearchResults = 5
)

// ModDetails describes a single workshop mod page.
type ModDetails struct {
	ID           string
	Name         string
	Version      string
	Author       string
	RatingPct    int
	Downloads    int
	UpdatedAt    time.Time
	GameVersion  string
	Dependencies []Dependency
}

// Dependency is a mod another mod requires.
type Dependency struct {
	ID      string
	Name    string
	Version string
}

// SearchResult is one row of a workshop search.
type SearchResult struct {
	ID      string
	Name    string
	Version string
}

// PageURL returns the public page for a mod id.
func PageURL(id string) string { return modPageURL + id }

type cacheEntry struct {
	details ModDetails
	at      time.Time
}

// Client fetches and caches workshop pages. Requests are rate
// limited so the carousel and user searches cannot hammer the site.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewClient builds a Client. ttl bounds how long mod details are
// served from cache; zero disables caching.
func NewClient(ttl time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 3),
		ttl:     ttl,
		cache:   make(map[string]cacheEntry),
	}
}

// ModDetails returns the details for a mod id, from cache when fresh.
func (c *Client) ModDetails(ctx context.Context, id string) (ModDetails, error) {
	c.mu.Lock()
	if e, ok := c.cache[id]; ok && time.Since(e.at) < c.ttl {
		c.mu.Unlock()
		return e.details, nil
	}
	c.mu.Unlock()

	body, err := c.fetch(ctx, modPageURL+id)
	if err != nil {
		return ModDetails{}, err
	}
	details, err := parseModPage(body)
	if err != nil {
		return ModDetails{}, fmt.Errorf("mod %s: %w", id, err)
	}
	details.ID = id

	c.mu.Lock()
	c.cache[id] = cacheEntry{details: details, at: time.Now()}
	c.mu.Unlock()
	return details, nil
}

// Search returns up to five workshop mods matching the query.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	body, err := c.fetch(ctx, searchURL+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	results, err := parseSearch(body)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return results, nil
}

func (c *Client) fetch(ctx context.Context, u string) (io.Reader, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return strings.NewReader(string(data)), nil
}

// pageJSON pulls the embedded JSON out of the last script tag.
func pageJSON(r io.Reader) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	scripts := doc.Find("script")
	if scripts.Length() == 0 {
		return nil, fmt.Errorf("no script tags in page")
	}
	text := scripts.Eq(scripts.Length() - 1).Text()
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("last script tag is not JSON")
	}
	return []byte(text), nil
}
