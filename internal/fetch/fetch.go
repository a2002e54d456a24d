// Package fetch downloads article pages for classification, with a shared
// rate limit and retries on 429 and 5xx responses.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"truthlens/internal/corpus"
	"truthlens/internal/logging"
	"truthlens/internal/metrics"
)

const maxPageBytes = 4 << 20

// defaultMaxRetryWait caps how long a Retry-After header can stall a fetch.
const defaultMaxRetryWait = 30 * time.Second

var ErrUnsupportedURL = errors.New("fetch: only http and https URLs are supported")

// Client fetches pages and extracts their article text.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	userAgent   string
	maxAttempts int
	baseBackoff time.Duration
	maxWait     time.Duration
}

func NewClient() *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		userAgent:   "truthlens/1.0 (+article classifier)",
		maxAttempts: getEnvInt("TRUTHLENS_FETCH_MAX_ATTEMPTS", 3),
		baseBackoff: time.Duration(getEnvInt("TRUTHLENS_FETCH_BACKOFF_MS", 500)) * time.Millisecond,
		maxWait:     time.Duration(getEnvInt("TRUTHLENS_FETCH_MAX_WAIT_S", int(defaultMaxRetryWait/time.Second))) * time.Second,
	}
}

// newDefaultLimiter creates a rate limiter using env overrides if present.
func newDefaultLimiter() *rate.Limiter {
	rps := 2.0
	burst := 5
	if v := os.Getenv("TRUTHLENS_FETCH_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	if v := os.Getenv("TRUTHLENS_FETCH_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}

// Article downloads rawURL and returns its extracted text.
func (c *Client) Article(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrUnsupportedURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: status %d", u.Host, resp.StatusCode)
	}
	text, err := corpus.ExtractHTML(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	logging.Debug("article_fetched", map[string]any{"host": u.Host, "chars": len(text)})
	return text, nil
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			wait := backoff
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					wait = time.Duration(secs) * time.Second
				} else if t, err := http.ParseTime(ra); err == nil {
					if d := time.Until(t); d > 0 {
						wait = d
					}
				}
			}
			if c.maxWait > 0 && wait > c.maxWait {
				wait = c.maxWait
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			metrics.IncFetchRetry(req.URL.Host)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		metrics.IncFetchRetry(req.URL.Host)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}
