package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/versekeeper/versekeeper/scripture"
)

const userAgent = "versekeeper/1.0 (https://github.com/versekeeper/versekeeper)"

// APIClient fetches verse text from a bible-api.com style JSON endpoint:
// GET {baseURL}/{citation}?translation={translation} returning {"text": ...}.
// Two instances configured with different base URLs serve as the primary and
// secondary providers.
type APIClient struct {
	name        string
	baseURL     string
	translation string
	httpClient  *http.Client
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if delay := r.interval - time.Since(r.lastCall); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.lastCall = time.Now()
	return nil
}

// NewAPIClient creates a rate-limited lookup client for one endpoint.
func NewAPIClient(name, baseURL, translation string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		name:        name,
		baseURL:     strings.TrimRight(baseURL, "/"),
		translation: translation,
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: newRateLimiter(time.Second),
	}
}

func (c *APIClient) Name() string { return c.name }

// verseResponse is the subset of the API payload the program uses.
type verseResponse struct {
	Reference string `json:"reference"`
	Text      string `json:"text"`
	Verses    []struct {
		Text string `json:"text"`
	} `json:"verses"`
}

// FetchText requests the verse text for a canonical reference.
func (c *APIClient) FetchText(ctx context.Context, ref scripture.Reference) (string, error) {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(ref.String()))
	if c.translation != "" {
		endpoint += "?translation=" + url.QueryEscape(c.translation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch verse text: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("reference not found: %s", ref)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var payload verseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if text := strings.TrimSpace(payload.Text); text != "" {
		return text, nil
	}
	var parts []string
	for _, v := range payload.Verses {
		if t := strings.TrimSpace(v.Text); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("empty text for %s", ref)
	}
	return strings.Join(parts, " "), nil
}
