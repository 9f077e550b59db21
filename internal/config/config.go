// Package config loads the settings shared by the CLI and the Cloud Functions.
// Values are layered: defaults, then an optional YAML file, then .env and the
// process environment. Callers apply flag overrides on the returned Config and
// call Validate again.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Lllllllleong/slidedeckflow/internal/llm"
)

const (
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
)

// modelAliases maps the short names accepted by --model to full model IDs.
// The Claude aliases are OpenRouter IDs and need the openai provider.
var modelAliases = map[string]string{
	"opus":   "anthropic/claude-3-opus",
	"sonnet": "anthropic/claude-3-sonnet",
	"haiku":  "anthropic/claude-3-haiku",
	"pro":    "gemini-1.5-pro",
	"flash":  "gemini-1.5-flash",
}

type Config struct {
	Provider string         `yaml:"provider"`
	GCP      GCPConfig      `yaml:"gcp"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Models   ModelsConfig   `yaml:"models"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Output   OutputConfig   `yaml:"output"`
	Tracking TrackingConfig `yaml:"tracking"`
	Logging  LoggingConfig  `yaml:"logging"`
	HTTP     HTTPConfig     `yaml:"http"`
}

type GCPConfig struct {
	ProjectID string `yaml:"project_id"`
	Region    string `yaml:"region"`
	// FirestoreDatabase is empty for the default database.
	FirestoreDatabase string `yaml:"firestore_database"`
}

type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// ModelsConfig selects the models per stage group. Vision serves image
// description and structure extraction; Text serves the remaining stages.
type ModelsConfig struct {
	Vision      string   `yaml:"vision"`
	Text        string   `yaml:"text"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float32 `yaml:"temperature"`
}

type PipelineConfig struct {
	ImageConcurrency int  `yaml:"image_concurrency"`
	ValidateSlides   bool `yaml:"validate_slides"`
	// RefusalCheck fails a stage whose reply opens with a refusal phrase.
	RefusalCheck bool `yaml:"refusal_check"`
}

type OutputConfig struct {
	// Path is a local file path or a gs:// object URI.
	Path string `yaml:"path"`
}

type TrackingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Collection string `yaml:"collection"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Provider: ProviderVertex,
		GCP: GCPConfig{
			Region: "us-central1",
		},
		OpenAI: OpenAIConfig{
			BaseURL: llm.DefaultBaseURL,
		},
		Models: ModelsConfig{
			Vision:    modelAliases["pro"],
			Text:      modelAliases["flash"],
			MaxTokens: 4096,
		},
		Pipeline: PipelineConfig{
			ImageConcurrency: 4,
			RefusalCheck:     true,
		},
		Output: OutputConfig{
			Path: "slides.html",
		},
		Tracking: TrackingConfig{
			Collection: "deck_runs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		HTTP: HTTPConfig{
			Timeout:    120 * time.Second,
			MaxRetries: llm.DefaultRetryConfig().MaxRetries,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), a .env file in the working directory if one exists, and the process
// environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Models.Vision = ResolveModel(cfg.Models.Vision)
	cfg.Models.Text = ResolveModel(cfg.Models.Text)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ResolveModel expands a model alias. Unknown names are returned unchanged.
func ResolveModel(name string) string {
	if full, ok := modelAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return full
	}
	return name
}

// SetModel points every stage at one model, as --model does.
func (c *Config) SetModel(name string) {
	full := ResolveModel(name)
	c.Models.Vision = full
	c.Models.Text = full
}

// Validate checks the configuration. Errors name the offending key.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderVertex:
		if c.GCP.ProjectID == "" {
			return errors.New("gcp.project_id is required for provider vertex")
		}
		if c.GCP.Region == "" {
			return errors.New("gcp.region is required for provider vertex")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return errors.New("openai.api_key is required for provider openai")
		}
	default:
		return fmt.Errorf("invalid provider: %q", c.Provider)
	}

	if c.Models.Vision == "" {
		return errors.New("models.vision is required")
	}
	if c.Models.Text == "" {
		return errors.New("models.text is required")
	}
	if c.Models.MaxTokens < 1 {
		return fmt.Errorf("models.max_tokens must be positive, got %d", c.Models.MaxTokens)
	}
	if c.Pipeline.ImageConcurrency < 1 {
		return fmt.Errorf("pipeline.image_concurrency must be positive, got %d", c.Pipeline.ImageConcurrency)
	}
	if c.Output.Path == "" {
		return errors.New("output.path is required")
	}
	if c.Tracking.Enabled && c.Tracking.Collection == "" {
		return errors.New("tracking.collection is required when tracking is enabled")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format: %q", c.Logging.Format)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries cannot be negative, got %d", c.HTTP.MaxRetries)
	}
	return nil
}

// VisionModel returns the model settings for the vision stages.
func (c *Config) VisionModel() llm.ModelConfig {
	return llm.ModelConfig{Name: c.Models.Vision, MaxTokens: c.Models.MaxTokens, Temperature: c.Models.Temperature}
}

// TextModel returns the model settings for the text-only stages.
func (c *Config) TextModel() llm.ModelConfig {
	return llm.ModelConfig{Name: c.Models.Text, MaxTokens: c.Models.MaxTokens, Temperature: c.Models.Temperature}
}

// HTTPClientConfig returns the settings of the OpenAI-compatible backend.
func (c *Config) HTTPClientConfig() llm.HTTPConfig {
	retry := llm.DefaultRetryConfig()
	retry.MaxRetries = c.HTTP.MaxRetries
	return llm.HTTPConfig{
		BaseURL: c.OpenAI.BaseURL,
		APIKey:  c.OpenAI.APIKey,
		Timeout: c.HTTP.Timeout,
		Retry:   retry,
	}
}

func applyEnvOverrides(cfg *Config) error {
	cfg.Provider = getEnv("LLM_PROVIDER", cfg.Provider)
	cfg.GCP.ProjectID = getEnv("PROJECT_ID", cfg.GCP.ProjectID)
	cfg.GCP.Region = getEnv("VERTEX_AI_REGION", cfg.GCP.Region)
	cfg.GCP.FirestoreDatabase = getEnv("FIRESTORE_DATABASE", cfg.GCP.FirestoreDatabase)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.Models.Vision = getEnv("VISION_MODEL", cfg.Models.Vision)
	cfg.Models.Text = getEnv("TEXT_MODEL", cfg.Models.Text)
	cfg.Output.Path = getEnv("DEFAULT_OUTPUT_FILE", cfg.Output.Path)
	cfg.Tracking.Collection = getEnv("FIRESTORE_COLLECTION", cfg.Tracking.Collection)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	var err error
	if cfg.Models.MaxTokens, err = getEnvInt("MAX_TOKENS", cfg.Models.MaxTokens); err != nil {
		return err
	}
	if cfg.Pipeline.ImageConcurrency, err = getEnvInt("IMAGE_CONCURRENCY", cfg.Pipeline.ImageConcurrency); err != nil {
		return err
	}
	if cfg.HTTP.MaxRetries, err = getEnvInt("HTTP_MAX_RETRIES", cfg.HTTP.MaxRetries); err != nil {
		return err
	}
	if cfg.Pipeline.ValidateSlides, err = getEnvBool("VALIDATE_SLIDES", cfg.Pipeline.ValidateSlides); err != nil {
		return err
	}
	if cfg.Pipeline.RefusalCheck, err = getEnvBool("REFUSAL_CHECK", cfg.Pipeline.RefusalCheck); err != nil {
		return err
	}
	if cfg.Tracking.Enabled, err = getEnvBool("RUN_TRACKING", cfg.Tracking.Enabled); err != nil {
		return err
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", v, err)
		}
		cfg.HTTP.Timeout = d
	}
	if v := os.Getenv("TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid TEMPERATURE %q: %w", v, err)
		}
		t := float32(f)
		cfg.Models.Temperature = &t
	}
	return nil
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
