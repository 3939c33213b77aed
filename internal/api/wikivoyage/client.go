// Package wikivoyage fetches country descriptions from the Wikivoyage MediaWiki API.
package wikivoyage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	DefaultURL       = "https://en.wikivoyage.org/w/api.php"
	DefaultUserAgent = "TravelRecommendationApp/1.0"
	missingPageID    = "-1"
)

type Config struct {
	URL               string
	UserAgent         string
	Attempts          uint64
	Wait              time.Duration
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxChars          int
}

// Client is the description fetch collaborator. A missing page is not an error:
// FetchDescription returns "" and the caller substitutes its fallback.
type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 2 * time.Second
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 2000
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

type queryResponse struct {
	Query struct {
		Pages map[string]struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// FetchDescription returns the plain-text extract of the page titled title.
// Transport errors, 5xx and 429 responses are retried up to the configured attempts
// with a fixed wait; the last error is returned once attempts are exhausted.
func (c *Client) FetchDescription(ctx context.Context, title string) (string, error) {
	ctx, span := otel.Tracer("Wikivoyage").Start(ctx, "FetchDescription", trace.WithAttributes(
		attribute.String("country.name", title),
	))
	defer span.End()

	l := c.logger.With(slog.String("title", title))

	backoff := retry.WithMaxRetries(c.cfg.Attempts-1, retry.NewConstant(c.cfg.Wait))

	var extract string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		text, err := c.fetchOnce(ctx, title)
		if err != nil {
			l.WarnContext(ctx, "Wikivoyage request failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			var perm *permanentError
			if errors.As(err, &perm) {
				return err
			}
			return retry.RetryableError(err)
		}
		extract = text
		return nil
	})
	span.SetAttributes(attribute.Int("attempts", attempt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		l.ErrorContext(ctx, "Failed to load description", slog.Any("error", err))
		return "", fmt.Errorf("fetch description for %q: %w", title, err)
	}

	if extract == "" {
		l.WarnContext(ctx, "Description not found")
	} else {
		l.InfoContext(ctx, "Description loaded", slog.Int("chars", len(extract)))
	}
	span.SetStatus(codes.Ok, "")
	return extract, nil
}

// permanentError stops the retry loop.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func (c *Client) fetchOnce(ctx context.Context, title string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exsectionformat", "plain")
	params.Set("exlimit", "1")
	params.Set("titles", title)
	params.Set("format", "json")
	params.Set("explaintext", "1")
	params.Set("exchars", strconv.Itoa(c.cfg.MaxChars))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"?"+params.Encode(), nil)
	if err != nil {
		return "", &permanentError{err: err}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("wikivoyage returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &permanentError{err: fmt.Errorf("wikivoyage returned status %d", resp.StatusCode)}
	}

	var body queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode wikivoyage response: %w", err)
	}

	for id, page := range body.Query.Pages {
		if id == missingPageID {
			return "", nil
		}
		return page.Extract, nil
	}
	return "", nil
}
