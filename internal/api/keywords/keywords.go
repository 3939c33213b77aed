// Package keywords ranks the words of a text by how close their embedding is to the
// embedding of the whole text.
package keywords

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
	"github.com/FACorreiaa/go-country-recommender/internal/vector"
)

// Embedder is the subset of the embedding collaborator the extractor needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultBatchSize keeps each Embed call well under provider input caps (Gemini allows 100).
const DefaultBatchSize = 32

type Extractor struct {
	embedder  Embedder
	batchSize int
	logger    *slog.Logger
}

type Option func(*Extractor)

// WithBatchSize bounds the number of texts per Embed call; values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

func NewExtractor(embedder Embedder, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{embedder: embedder, batchSize: DefaultBatchSize, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractKeywords returns at most topN keywords of text ordered by relevance, highest first.
// Equal scores keep alphabetical order.
func (e *Extractor) ExtractKeywords(ctx context.Context, text string, topN int) ([]types.Keyword, error) {
	ctx, span := otel.Tracer("Keywords").Start(ctx, "ExtractKeywords", trace.WithAttributes(
		attribute.Int("keywords.top_n", topN),
	))
	defer span.End()

	candidates := Candidates(text)
	span.SetAttributes(attribute.Int("keywords.candidates", len(candidates)))
	if len(candidates) == 0 || topN <= 0 {
		span.SetStatus(codes.Ok, "no candidates")
		return []types.Keyword{}, nil
	}

	inputs := make([]string, 0, len(candidates)+1)
	inputs = append(inputs, text)
	inputs = append(inputs, candidates...)

	vectors, err := e.embed(ctx, inputs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, err
	}

	doc := vectors[0]
	scored := make([]types.Keyword, len(candidates))
	for i, c := range candidates {
		scored[i] = types.Keyword{Text: c, Relevance: vector.CosineSimilarity(doc, vectors[i+1])}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}
	e.logger.DebugContext(ctx, "Keywords extracted", slog.Int("count", len(scored)))
	span.SetStatus(codes.Ok, "")
	return scored, nil
}

// embed sends inputs in batches of at most batchSize and returns the vectors in input order.
func (e *Extractor) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += e.batchSize {
		end := min(start+e.batchSize, len(inputs))
		batch, err := e.embedder.Embed(ctx, inputs[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed keyword candidates %d-%d: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("got %d vectors for %d inputs", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

var splitter = regexp.MustCompile(`[^\pL\pN]+`)

// Candidates returns the distinct lowercase words of text without stop words, numbers and
// single letters, sorted alphabetically.
func Candidates(text string) []string {
	seen := make(map[string]struct{})
	for _, tok := range splitter.Split(strings.ToLower(text), -1) {
		if len([]rune(tok)) < 2 || isNumber(tok) {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		seen[tok] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for tok := range seen {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func isNumber(tok string) bool {
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
