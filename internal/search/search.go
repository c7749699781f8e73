package search

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is one web search hit. Derived data only; never persisted.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

const serperURL = "https://google.serper.dev/search"

// Client searches via the Serper API, with an optional redis cache in front.
// A nil redis client or a cache failure degrades to an uncached search.
type Client struct {
	endpoint string
	rdb      *redis.Client
	cacheTTL time.Duration
	http     *http.Client
}

func NewClient(rdb *redis.Client, cacheTTL time.Duration) *Client {
	return &Client{
		endpoint: serperURL,
		rdb:      rdb,
		cacheTTL: cacheTTL,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithEndpoint exists for tests.
func NewClientWithEndpoint(endpoint string, rdb *redis.Client, cacheTTL time.Duration) *Client {
	c := NewClient(rdb, cacheTTL)
	c.endpoint = endpoint
	return c
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "search:" + hex.EncodeToString(sum[:])
}

// Search returns up to maxResults hits for the query. Without an API key it
// returns no results rather than failing the caller.
func (c *Client) Search(ctx context.Context, query, apiKey string, maxResults int) []Result {
	if apiKey == "" {
		log.Printf("search: no api key configured, returning empty results for %q", query)
		return nil
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	if cached, ok := c.fromCache(ctx, query); ok {
		return cached
	}

	results, err := c.serper(ctx, query, apiKey, maxResults)
	if err != nil {
		log.Printf("search: serper error for %q: %v", query, err)
		return nil
	}

	c.toCache(ctx, query, results)
	return results
}

func (c *Client) fromCache(ctx context.Context, query string) ([]Result, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(query)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("search: cache get failed: %v", err)
		}
		return nil, false
	}
	var results []Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false
	}
	return results, true
}

func (c *Client) toCache(ctx context.Context, query string, results []Result) {
	if c.rdb == nil || len(results) == 0 {
		return
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(query), raw, c.cacheTTL).Err(); err != nil {
		log.Printf("search: cache set failed: %v", err)
	}
}

func (c *Client) serper(ctx context.Context, query, apiKey string, maxResults int) ([]Result, error) {
	payload, err := json.Marshal(map[string]any{"q": query, "num": maxResults})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper: status %d", resp.StatusCode)
	}

	var decoded struct {
		Organic []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	results := make([]Result, 0, maxResults)
	for _, item := range decoded.Organic {
		if len(results) >= maxResults {
			break
		}
		results = append(results, Result{Title: item.Title, Snippet: item.Snippet, URL: item.Link})
	}
	return results, nil
}
