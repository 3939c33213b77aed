package types

// Keyword is a single extracted keyword with the extractor's relevance score.
type Keyword struct {
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}

// UserPreferenceAnalysis is the per-request result of analysing the user's text.
type UserPreferenceAnalysis struct {
	Original   string    `json:"original"`
	Translated string    `json:"translated"`
	Keywords   []string  `json:"keywords"`
	Embedding  []float32 `json:"-"`
}

// RankedMatch is a country scored against the user's preference embedding.
type RankedMatch struct {
	CountryName     string  `json:"country_name"`
	ISO3Code        string  `json:"iso3_code"`
	SimilarityScore float64 `json:"similarity_score"`
}

// NarrativeMode selects how the "why it matches" line of a recommendation is built.
type NarrativeMode string

const (
	// NarrativeTemplate emits the static sentence and never calls the generator.
	NarrativeTemplate NarrativeMode = "template"
	// NarrativeGenerated emits the translated generated text (or the fallback sentence).
	NarrativeGenerated NarrativeMode = "generated"
)

type RecommendationRequest struct {
	UserID      string `json:"user_id"`
	Preferences string `json:"preferences"`
}

type RecommendationResponse struct {
	RecommendationID string `json:"recommendation_id"`
	UserID           string `json:"user_id"`
	Text             string `json:"text"`
}
