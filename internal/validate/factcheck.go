package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/trendwatch/internal/model"
)

// Verdict is a fact-check score for one article with any concerns raised.
type Verdict struct {
	Score  float64  `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

// FactChecker scores a single article. Implementations must be safe for
// concurrent use; the pipeline calls them from many validations at once.
type FactChecker interface {
	Name() string
	Check(ctx context.Context, a *model.Article) (Verdict, error)
}

// Domain returns the host part of a URL without a leading "www.", or ""
// when there is none.
func Domain(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "www.")
}

func sourceReliability(a *model.Article) float64 {
	if a.Source == nil {
		return a.ReliabilityScore
	}
	return a.Source.ReliabilityScore
}

// Heuristic scores articles from their source's reliability. It stands in
// for a real fact-checking service and makes no network calls.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

func (Heuristic) Check(_ context.Context, a *model.Article) (Verdict, error) {
	if Domain(a.URL) == "" {
		return Verdict{Score: 0.5, Issues: []string{"Could not extract domain from URL"}}, nil
	}
	switch rel := sourceReliability(a); {
	case rel > 0.8:
		return Verdict{Score: 0.9}, nil
	case rel > 0.6:
		return Verdict{Score: 0.7}, nil
	default:
		return Verdict{Score: 0.4, Issues: []string{"Low source reliability"}}, nil
	}
}

// RemoteChecker asks an HTTP rating service about each article's domain.
type RemoteChecker struct {
	apiKey   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	backoffs []time.Duration
}

type remoteRequest struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Title  string `json:"title"`
}

// NewRemoteChecker creates a client for endpoint, authenticated with apiKey.
func NewRemoteChecker(apiKey, endpoint string) *RemoteChecker {
	return &RemoteChecker{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		backoffs: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

func (c *RemoteChecker) Name() string { return "remote" }

// Available reports whether both an API key and an endpoint are set.
func (c *RemoteChecker) Available() bool {
	return c.apiKey != "" && c.endpoint != ""
}

func (c *RemoteChecker) Check(ctx context.Context, a *model.Article) (Verdict, error) {
	domain := Domain(a.URL)
	if domain == "" {
		return Verdict{Score: 0.5, Issues: []string{"Could not extract domain from URL"}}, nil
	}

	body, err := json.Marshal(remoteRequest{URL: a.URL, Domain: domain, Title: a.Title})
	if err != nil {
		return Verdict{}, fmt.Errorf("factcheck: failed to marshal request: %w", err)
	}

	v, err := c.doWithRetry(ctx, body)
	if err != nil {
		return Verdict{}, err
	}
	v.Score = clamp(v.Score)
	return v, nil
}

// doWithRetry retries 429 and 5xx responses up to three times with
// exponential backoff, honoring Retry-After on 429.
func (c *RemoteChecker) doWithRetry(ctx context.Context, reqBody []byte) (Verdict, error) {
	maxRetries := len(c.backoffs)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return Verdict{}, fmt.Errorf("factcheck: rate limiter wait failed: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return Verdict{}, fmt.Errorf("factcheck: failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return Verdict{}, fmt.Errorf("factcheck: request cancelled: %w", ctx.Err())
			}
			return Verdict{}, fmt.Errorf("factcheck: request failed: %w", err)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			return Verdict{}, fmt.Errorf("factcheck: failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			var v Verdict
			if err := json.Unmarshal(body, &v); err != nil {
				return Verdict{}, fmt.Errorf("factcheck: failed to parse response: %w", err)
			}
			return v, nil
		}

		lastErr = fmt.Errorf("factcheck: service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable {
			return Verdict{}, lastErr
		}

		if attempt < maxRetries {
			delay := c.backoffs[attempt]
			if resp.StatusCode == http.StatusTooManyRequests {
				if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
					delay = min(time.Duration(s)*time.Second, 30*time.Second)
				}
			}
			select {
			case <-ctx.Done():
				return Verdict{}, fmt.Errorf("factcheck: request cancelled during retry: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return Verdict{}, fmt.Errorf("factcheck: all retries exhausted: %w", lastErr)
}
