package recommendation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-country-recommender/app/observability/metrics"
	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

const (
	DefaultPromptKeywords   = 5
	DefaultDescriptionChars = 500
	DefaultMaxLength        = 200
	defaultDescription      = "%s is a great destination."
)

type ComposerConfig struct {
	Mode             types.NarrativeMode
	Locale           Locale
	UserLanguage     string
	WorkingLanguage  string
	PromptKeywords   int
	DescriptionChars int
	MaxLength        int
	Concurrency      int
	// CallTimeout bounds generation plus translation for one match.
	CallTimeout time.Duration
}

// Composer renders ranked matches as the reply text.
type Composer struct {
	generator  Generator
	translator Translator
	cfg        ComposerConfig
	metrics    *metrics.AppMetrics
	logger     *slog.Logger
}

func NewComposer(generator Generator, translator Translator, cfg ComposerConfig, m *metrics.AppMetrics, logger *slog.Logger) *Composer {
	if cfg.Mode == "" {
		cfg.Mode = types.NarrativeTemplate
	}
	if cfg.Locale.Code == "" {
		cfg.Locale = Russian
	}
	if cfg.UserLanguage == "" {
		cfg.UserLanguage = cfg.Locale.Code
	}
	if cfg.WorkingLanguage == "" {
		cfg.WorkingLanguage = "en"
	}
	if cfg.PromptKeywords <= 0 {
		cfg.PromptKeywords = DefaultPromptKeywords
	}
	if cfg.DescriptionChars <= 0 {
		cfg.DescriptionChars = DefaultDescriptionChars
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Composer{
		generator:  generator,
		translator: translator,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

func (c *Composer) Locale() Locale {
	return c.cfg.Locale
}

// Compose never fails. In generated mode every match is narrated concurrently and a failing
// match falls back to a fixed sentence without affecting the others.
func (c *Composer) Compose(ctx context.Context, matches []types.RankedMatch, keywords []string, descriptions map[string]string) string {
	ctx, span := otel.Tracer("Composer").Start(ctx, "Compose")
	defer span.End()
	span.SetAttributes(
		attribute.Int("matches.count", len(matches)),
		attribute.String("narrative.mode", string(c.cfg.Mode)),
	)

	loc := c.cfg.Locale
	var sb strings.Builder
	sb.WriteString(loc.Header)

	if len(matches) == 0 {
		sb.WriteString(loc.NoMatches)
		span.SetStatus(codes.Ok, "no matches")
		return sb.String()
	}

	promptKeywords := keywords
	if len(promptKeywords) > c.cfg.PromptKeywords {
		promptKeywords = promptKeywords[:c.cfg.PromptKeywords]
	}

	why := make([]string, len(matches))
	if c.cfg.Mode == types.NarrativeGenerated {
		var g errgroup.Group
		g.SetLimit(c.cfg.Concurrency)
		for i, m := range matches {
			g.Go(func() error {
				why[i] = c.narrate(ctx, m.CountryName, promptKeywords, descriptions[m.CountryName])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, m := range matches {
			why[i] = fmt.Sprintf(loc.WhyStatic, m.CountryName)
		}
	}

	for i, m := range matches {
		c.writeBlock(&sb, i+1, m, why[i])
	}

	span.SetStatus(codes.Ok, "")
	return sb.String()
}

func (c *Composer) writeBlock(sb *strings.Builder, rank int, m types.RankedMatch, why string) {
	loc := c.cfg.Locale
	city := loc.GenericCity
	if fc, ok := FallbackCities[m.CountryName]; ok {
		city = fc.Name
	}

	fmt.Fprintf(sb, loc.BlockTitle, rank, m.CountryName, m.SimilarityScore)
	sb.WriteString(loc.SeeTitle)
	fmt.Fprintf(sb, loc.SeeCity, city)
	sb.WriteString(loc.Activities)
	fmt.Fprintf(sb, loc.WhyLine, why)
	sb.WriteString(loc.BestTime)
	sb.WriteString(divider)
	sb.WriteString("\n\n")
}

// Prompt builds the generation prompt for one country.
func (c *Composer) Prompt(country string, keywords []string, description string) string {
	if description == "" {
		description = fmt.Sprintf(defaultDescription, country)
	}
	return fmt.Sprintf(
		"Create a travel recommendation for %s. "+
			"Highlight why it matches preferences like %s. "+
			"Include what to see or do, why it's suitable, and the best time to visit. "+
			"Use this description as context: %s...",
		country, strings.Join(keywords, ", "), truncateRunes(description, c.cfg.DescriptionChars))
}

// Fallback is the sentence used when narration fails.
func (c *Composer) Fallback(country string, keywords []string) string {
	if len(keywords) == 0 {
		return fmt.Sprintf(c.cfg.Locale.FallbackNoKeywords, country)
	}
	return fmt.Sprintf(c.cfg.Locale.Fallback, country, strings.Join(keywords, ", "))
}

func (c *Composer) narrate(ctx context.Context, country string, keywords []string, description string) string {
	l := c.logger.With(slog.String("country", country))

	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}

	text, err := c.generator.Generate(ctx, c.Prompt(country, keywords, description), c.cfg.MaxLength)
	if err == nil {
		text, err = c.translator.Translate(ctx, text, c.cfg.WorkingLanguage, c.cfg.UserLanguage)
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w: empty narrative", types.ErrGeneration)
	}
	if err != nil {
		l.ErrorContext(ctx, "Narrative generation failed, using fallback", slog.Any("error", err))
		if c.metrics != nil {
			c.metrics.GenerationFallbacksTotal.Add(ctx, 1)
		}
		return c.Fallback(country, keywords)
	}
	return truncateRunes(strings.TrimSpace(text), c.cfg.MaxLength)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
