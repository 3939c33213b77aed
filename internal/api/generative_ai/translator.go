package generativeAI

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

const DefaultGoogleTranslateURL = "https://translate.googleapis.com/translate_a/single"

var (
	_ Translator = (*GoogleTranslator)(nil)
	_ Translator = (*GeminiTranslator)(nil)
	_ Translator = (*CachedTranslator)(nil)
)

// Translator converts text between two ISO 639-1 languages.
// Every failure wraps types.ErrTranslation.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// GoogleTranslator uses the public translate_a/single endpoint (client=gtx).
type GoogleTranslator struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGoogleTranslator(endpoint string, timeout time.Duration, logger *slog.Logger) *GoogleTranslator {
	if endpoint == "" {
		endpoint = DefaultGoogleTranslateURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleTranslator{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (t *GoogleTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	ctx, span := otel.Tracer("Translator").Start(ctx, "GoogleTranslator.Translate", trace.WithAttributes(
		attribute.String("translation.source", source),
		attribute.String("translation.target", target),
		attribute.Int("translation.chars", len(text)),
	))
	defer span.End()

	if strings.TrimSpace(text) == "" || source == target {
		return text, nil
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", source)
	params.Set("tl", target)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", t.fail(span, fmt.Errorf("build request: %w", err))
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", t.fail(span, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", t.fail(span, fmt.Errorf("translate endpoint returned status %d", resp.StatusCode))
	}

	var body []any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", t.fail(span, fmt.Errorf("decode translate response: %w", err))
	}

	translated, err := joinSegments(body)
	if err != nil {
		return "", t.fail(span, err)
	}

	t.logger.DebugContext(ctx, "Text translated",
		slog.String("source", source), slog.String("target", target))
	span.SetStatus(codes.Ok, "")
	return translated, nil
}

func (t *GoogleTranslator) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "translation failed")
	return fmt.Errorf("%w: %w", types.ErrTranslation, err)
}

// joinSegments concatenates the translated parts of [[["out","in",...],...],...].
func joinSegments(body []any) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("empty translate response")
	}
	segments, ok := body[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected translate response shape")
	}
	var sb strings.Builder
	for _, s := range segments {
		seg, ok := s.([]any)
		if !ok || len(seg) == 0 {
			continue
		}
		if part, ok := seg[0].(string); ok {
			sb.WriteString(part)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("translate response has no text")
	}
	return sb.String(), nil
}

// GeminiTranslator asks a Generator for the translation.
type GeminiTranslator struct {
	gen    Generator
	logger *slog.Logger
}

func NewGeminiTranslator(gen Generator, logger *slog.Logger) *GeminiTranslator {
	return &GeminiTranslator{gen: gen, logger: logger}
}

func (t *GeminiTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" || source == target {
		return text, nil
	}
	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Reply with the translation only, no quotes or comments.\n\n%s",
		source, target, text)

	out, err := t.gen.Generate(ctx, prompt, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrTranslation, err)
	}
	return strings.TrimSpace(out), nil
}

// CachedTranslator memoises successful translations for a TTL.
type CachedTranslator struct {
	next  Translator
	cache *cache.Cache
}

func NewCachedTranslator(next Translator, ttl time.Duration) *CachedTranslator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedTranslator{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	key := source + "|" + target + "|" + text
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}
	out, err := c.next.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, out, cache.DefaultExpiration)
	return out, nil
}
