package recommendation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

// EmbeddingIndex holds one vector per embeddable country. It is immutable once built
// and safe for concurrent readers.
type EmbeddingIndex struct {
	entries []types.CountryEmbedding
	byName  map[string]int
}

func NewEmbeddingIndex(entries []types.CountryEmbedding) *EmbeddingIndex {
	ix := &EmbeddingIndex{
		entries: make([]types.CountryEmbedding, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	copy(ix.entries, entries)
	for i, e := range ix.entries {
		ix.byName[e.CountryName] = i
	}
	return ix
}

func (ix *EmbeddingIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

func (ix *EmbeddingIndex) Entries() []types.CountryEmbedding {
	if ix == nil {
		return nil
	}
	return ix.entries
}

func (ix *EmbeddingIndex) Lookup(name string) (types.CountryEmbedding, bool) {
	if ix == nil {
		return types.CountryEmbedding{}, false
	}
	i, ok := ix.byName[name]
	if !ok {
		return types.CountryEmbedding{}, false
	}
	return ix.entries[i], true
}

type IndexOptions struct {
	// Excluded names are skipped, compared case-insensitively.
	Excluded []string
	// ISO3 maps country name to its alpha-3 code; unknown names get "".
	ISO3        map[string]string
	BatchSize   int
	Concurrency int
}

// BuildIndex embeds every non-excluded country with a non-empty description.
// Any batch failure fails the whole build so the index is never partial.
func BuildIndex(ctx context.Context, embedder Embedder, descriptions map[string]string, opts IndexOptions, logger *slog.Logger) (*EmbeddingIndex, error) {
	ctx, span := otel.Tracer("EmbeddingIndex").Start(ctx, "BuildIndex")
	defer span.End()

	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	excluded := make(map[string]struct{}, len(opts.Excluded))
	for _, name := range opts.Excluded {
		excluded[strings.ToLower(name)] = struct{}{}
	}

	names := make([]string, 0, len(descriptions))
	skipped := 0
	for name, text := range descriptions {
		if _, ok := excluded[strings.ToLower(name)]; ok || strings.TrimSpace(text) == "" {
			skipped++
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	vectors := make([][]float32, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for start := 0; start < len(names); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(names))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, name := range names[start:end] {
				texts = append(texts, descriptions[name])
			}
			out, err := embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
			}
			if len(out) != len(texts) {
				return fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts", start, end, len(out), len(texts))
			}
			copy(vectors[start:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, err
	}

	entries := make([]types.CountryEmbedding, len(names))
	dim := -1
	for i, name := range names {
		if dim == -1 {
			dim = len(vectors[i])
		} else if len(vectors[i]) != dim {
			err := fmt.Errorf("embedding for %q has %d dimensions, expected %d", name, len(vectors[i]), dim)
			span.RecordError(err)
			span.SetStatus(codes.Error, "dimension mismatch")
			return nil, err
		}
		entries[i] = types.CountryEmbedding{
			CountryName: name,
			ISO3Code:    opts.ISO3[name],
			Vector:      vectors[i],
		}
	}

	span.SetAttributes(
		attribute.Int("index.entries", len(entries)),
		attribute.Int("index.skipped", skipped),
	)
	if len(entries) == 0 {
		logger.WarnContext(ctx, "Embedding index is empty, every request will get the no-match reply")
	} else {
		logger.InfoContext(ctx, "Embedding index built",
			slog.Int("entries", len(entries)),
			slog.Int("skipped", skipped),
			slog.Int("dimensions", dim))
	}
	span.SetStatus(codes.Ok, "")
	return NewEmbeddingIndex(entries), nil
}
