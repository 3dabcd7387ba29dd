// Package reddit is a thin read-only client for the submission listing API.
// It supplies raw discussion threads to the pipeline; collection strategy
// lives with the caller.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/hatchline/opportunity-cli/internal/resilience"
)

const defaultBaseURL = "https://oauth.reddit.com"

// Client fetches submission listings.
type Client interface {
	FetchNew(ctx context.Context, subreddit string, limit int) ([]Post, error)
}

// Post is one submission as returned by the listing API.
type Post struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	SelfText     string  `json:"selftext"`
	Subreddit    string  `json:"subreddit"`
	Score        int     `json:"score"`
	NumComments  int     `json:"num_comments"`
	Permalink    string  `json:"permalink"`
	Author       string  `json:"author"`
	CreatedUTC   float64 `json:"created_utc"`
}

// CreatedAt converts the epoch timestamp.
func (p Post) CreatedAt() time.Time {
	return time.Unix(int64(p.CreatedUTC), 0).UTC()
}

// FullID returns the API's fullname form ("t3_" prefix).
func (p Post) FullID() string {
	return "t3_" + p.ID
}

type listing struct {
	Data struct {
		Children []struct {
			Data Post `json:"data"`
		} `json:"children"`
		After string `json:"after"`
	} `json:"data"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithUserAgent sets the User-Agent header required by the API.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) { c.userAgent = ua }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps requests per second.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a listing client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   defaultBaseURL,
		userAgent: "opportunity-cli/1.0",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FetchNew(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "reddit: rate limit wait")
	}

	u := fmt.Sprintf("%s/r/%s/new.json?%s", c.baseURL, url.PathEscape(subreddit),
		url.Values{"limit": {fmt.Sprint(limit)}, "raw_json": {"1"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("reddit: unexpected status %d: %.200s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, eris.Wrap(err, "reddit: unmarshal listing")
	}

	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}
