package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

const DefaultKeywordCount = 10

// Analyzer turns the user's raw text into keywords and an embedding in the working language.
type Analyzer struct {
	translator      Translator
	extractor       KeywordExtractor
	embedder        Embedder
	userLanguage    string
	workingLanguage string
	keywordCount    int
	logger          *slog.Logger
}

type AnalyzerConfig struct {
	UserLanguage    string
	WorkingLanguage string
	KeywordCount    int
}

func NewAnalyzer(translator Translator, extractor KeywordExtractor, embedder Embedder, cfg AnalyzerConfig, logger *slog.Logger) *Analyzer {
	if cfg.UserLanguage == "" {
		cfg.UserLanguage = "ru"
	}
	if cfg.WorkingLanguage == "" {
		cfg.WorkingLanguage = "en"
	}
	if cfg.KeywordCount <= 0 {
		cfg.KeywordCount = DefaultKeywordCount
	}
	return &Analyzer{
		translator:      translator,
		extractor:       extractor,
		embedder:        embedder,
		userLanguage:    cfg.UserLanguage,
		workingLanguage: cfg.WorkingLanguage,
		keywordCount:    cfg.KeywordCount,
		logger:          logger,
	}
}

// Analyze fails with types.ErrEmptyPreferences for blank input and with an error wrapping
// types.ErrTranslation when the text cannot be translated. A keyword extraction failure
// only empties the keyword list.
func (a *Analyzer) Analyze(ctx context.Context, userText string) (types.UserPreferenceAnalysis, error) {
	ctx, span := otel.Tracer("PreferenceAnalyzer").Start(ctx, "Analyze")
	defer span.End()

	l := a.logger.With(slog.String("method", "Analyze"))

	userText = strings.TrimSpace(userText)
	if userText == "" {
		span.SetStatus(codes.Error, "empty preferences")
		return types.UserPreferenceAnalysis{}, types.ErrEmptyPreferences
	}

	translated, err := a.translator.Translate(ctx, userText, a.userLanguage, a.workingLanguage)
	if err != nil {
		if !errors.Is(err, types.ErrTranslation) {
			err = fmt.Errorf("%w: %w", types.ErrTranslation, err)
		}
		l.ErrorContext(ctx, "Failed to translate preferences", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "translation failed")
		return types.UserPreferenceAnalysis{}, err
	}

	var keywords []string
	kws, err := a.extractor.ExtractKeywords(ctx, translated, a.keywordCount)
	if err != nil {
		l.WarnContext(ctx, "Keyword extraction failed, continuing without keywords", slog.Any("error", err))
		span.RecordError(err)
		keywords = []string{}
	} else {
		keywords = make([]string, 0, len(kws))
		for _, k := range kws {
			keywords = append(keywords, k.Text)
		}
	}

	vectors, err := a.embedder.Embed(ctx, []string{translated})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return types.UserPreferenceAnalysis{}, fmt.Errorf("embed preferences: %w", err)
	}
	if len(vectors) != 1 {
		err := fmt.Errorf("embed preferences: got %d vectors", len(vectors))
		span.SetStatus(codes.Error, "embedding failed")
		return types.UserPreferenceAnalysis{}, err
	}

	l.InfoContext(ctx, "Preferences analysed", slog.Any("keywords", keywords))
	span.SetAttributes(attribute.StringSlice("preferences.keywords", keywords))
	span.SetStatus(codes.Ok, "")
	return types.UserPreferenceAnalysis{
		Original:   userText,
		Translated: translated,
		Keywords:   keywords,
		Embedding:  vectors[0],
	}, nil
}
