package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort           string        `mapstructure:"HTTPPort"`
		Timeout            time.Duration `mapstructure:"HTTPTimeout"`
		MetricsPort        string        `mapstructure:"metricsPort"`
		RateLimitPerMinute int           `mapstructure:"rateLimitPerMinute"`
		AllowedOrigins     []string      `mapstructure:"allowedOrigins"`
	} `mapstructure:"server"`
	Storage struct {
		// Backend is one of "file", "badger" or "postgres".
		Backend          string `mapstructure:"backend"`
		DescriptionsFile string `mapstructure:"descriptionsFile"`
		HistoryFile      string `mapstructure:"historyFile"`
		BadgerDir        string `mapstructure:"badgerDir"`
	} `mapstructure:"storage"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Gemini struct {
		// APIKey falls back to GOOGLE_GEMINI_API_KEY when empty.
		APIKey string `mapstructure:"apiKey"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"gemini"`
	Wikivoyage struct {
		URL               string        `mapstructure:"url"`
		UserAgent         string        `mapstructure:"userAgent"`
		Attempts          uint64        `mapstructure:"attempts"`
		Wait              time.Duration `mapstructure:"wait"`
		Timeout           time.Duration `mapstructure:"timeout"`
		RequestsPerSecond float64       `mapstructure:"requestsPerSecond"`
		MaxChars          int           `mapstructure:"maxChars"`
	} `mapstructure:"wikivoyage"`
	Translation struct {
		// Provider is one of "google" or "gemini".
		Provider        string        `mapstructure:"provider"`
		Endpoint        string        `mapstructure:"endpoint"`
		UserLanguage    string        `mapstructure:"userLanguage"`
		WorkingLanguage string        `mapstructure:"workingLanguage"`
		Timeout         time.Duration `mapstructure:"timeout"`
		CacheTTL        time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"translation"`
	Embedding struct {
		// Provider is one of "ollama" or "gemini".
		Provider    string `mapstructure:"provider"`
		Model       string `mapstructure:"model"`
		BaseURL     string `mapstructure:"baseURL"`
		APIKey      string `mapstructure:"apiKey"`
		Dimensions  int    `mapstructure:"dimensions"`
		BatchSize   int    `mapstructure:"batchSize"`
		Concurrency int    `mapstructure:"concurrency"`
	} `mapstructure:"embedding"`
	Generation struct {
		// Provider is one of "gemini", "openai" or "none". Gemini uses the gemini section;
		// Model, BaseURL and APIKey configure the OpenAI-compatible endpoint.
		Provider        string        `mapstructure:"provider"`
		Model           string        `mapstructure:"model"`
		BaseURL         string        `mapstructure:"baseURL"`
		APIKey          string        `mapstructure:"apiKey"`
		MaxLength       int           `mapstructure:"maxLength"`
		Timeout         time.Duration `mapstructure:"timeout"`
		BreakerFailures uint32        `mapstructure:"breakerFailures"`
		BreakerTimeout  time.Duration `mapstructure:"breakerTimeout"`
	} `mapstructure:"generation"`
	Recommendation struct {
		TopN              int      `mapstructure:"topN"`
		KeywordCount      int      `mapstructure:"keywordCount"`
		PromptKeywords    int      `mapstructure:"promptKeywords"`
		DescriptionChars  int      `mapstructure:"descriptionChars"`
		NarrativeMode     string   `mapstructure:"narrativeMode"`
		Locale            string   `mapstructure:"locale"`
		ExcludedCountries []string `mapstructure:"excludedCountries"`
		FallbackTemplate  string   `mapstructure:"fallbackTemplate"`
		Concurrency       int      `mapstructure:"concurrency"`
	} `mapstructure:"recommendation"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Environment overrides, e.g. STORAGE_BACKEND=postgres
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Validate rejects values the recommendation pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "badger", "postgres":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Embedding.Provider {
	case "ollama", "gemini":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case "gemini", "openai", "none":
	default:
		return fmt.Errorf("unknown generation provider %q", c.Generation.Provider)
	}
	switch c.Translation.Provider {
	case "google", "gemini":
	default:
		return fmt.Errorf("unknown translation provider %q", c.Translation.Provider)
	}
	switch c.Recommendation.NarrativeMode {
	case "template", "generated":
	default:
		return fmt.Errorf("unknown narrative mode %q", c.Recommendation.NarrativeMode)
	}
	if c.Recommendation.TopN <= 0 {
		return fmt.Errorf("recommendation.topN must be positive, got %d", c.Recommendation.TopN)
	}
	if c.Wikivoyage.Attempts == 0 {
		return fmt.Errorf("wikivoyage.attempts must be at least 1")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Mode == "development" || c.Mode == ""
}
