package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/slidedeckflow/internal/config"
)

var envKeys = []string{
	"LLM_PROVIDER", "PROJECT_ID", "VERTEX_AI_REGION", "FIRESTORE_DATABASE",
	"OPENAI_BASE_URL", "OPENAI_API_KEY", "VISION_MODEL", "TEXT_MODEL",
	"DEFAULT_OUTPUT_FILE", "FIRESTORE_COLLECTION", "LOG_LEVEL", "LOG_FORMAT",
	"MAX_TOKENS", "IMAGE_CONCURRENCY", "HTTP_MAX_RETRIES", "VALIDATE_SLIDES",
	"REFUSAL_CHECK", "RUN_TRACKING", "HTTP_TIMEOUT", "TEMPERATURE",
}

// clearEnv blanks every variable Load reads; blank values are treated as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slidegen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROJECT_ID", "my-project")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.ProviderVertex, cfg.Provider)
	assert.Equal(t, "my-project", cfg.GCP.ProjectID)
	assert.Equal(t, "us-central1", cfg.GCP.Region)
	assert.Equal(t, "gemini-1.5-pro", cfg.Models.Vision)
	assert.Equal(t, "gemini-1.5-flash", cfg.Models.Text)
	assert.Equal(t, 4096, cfg.Models.MaxTokens)
	assert.Nil(t, cfg.Models.Temperature)
	assert.Equal(t, 4, cfg.Pipeline.ImageConcurrency)
	assert.False(t, cfg.Pipeline.ValidateSlides)
	assert.True(t, cfg.Pipeline.RefusalCheck)
	assert.Equal(t, "slides.html", cfg.Output.Path)
	assert.False(t, cfg.Tracking.Enabled)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
provider: openai
openai:
  api_key: from-file
models:
  vision: opus
  text: haiku
  max_tokens: 2048
  temperature: 0.2
pipeline:
  image_concurrency: 2
  validate_slides: true
http:
  timeout: 45s
`)
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("IMAGE_CONCURRENCY", "8")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "anthropic/claude-3-opus", cfg.Models.Vision)
	assert.Equal(t, "anthropic/claude-3-haiku", cfg.Models.Text)
	assert.Equal(t, 2048, cfg.Models.MaxTokens)
	require.NotNil(t, cfg.Models.Temperature)
	assert.InDelta(t, 0.2, *cfg.Models.Temperature, 1e-6)
	assert.Equal(t, 8, cfg.Pipeline.ImageConcurrency)
	assert.True(t, cfg.Pipeline.ValidateSlides)
	assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)

	httpCfg := cfg.HTTPClientConfig()
	assert.Equal(t, "from-env", httpCfg.APIKey)
	assert.Equal(t, 45*time.Second, httpCfg.Timeout)
	assert.Equal(t, cfg.HTTP.MaxRetries, httpCfg.Retry.MaxRetries)

	vision := cfg.VisionModel()
	assert.Equal(t, "anthropic/claude-3-opus", vision.Name)
	assert.Equal(t, 2048, vision.MaxTokens)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]struct {
		file string
		env  map[string]string
		want string
	}{
		"missing project": {
			want: "gcp.project_id is required",
		},
		"missing api key": {
			env:  map[string]string{"LLM_PROVIDER": "openai"},
			want: "openai.api_key is required",
		},
		"unknown provider": {
			env:  map[string]string{"LLM_PROVIDER": "bedrock", "PROJECT_ID": "p"},
			want: `invalid provider: "bedrock"`,
		},
		"bad integer": {
			env:  map[string]string{"PROJECT_ID": "p", "MAX_TOKENS": "lots"},
			want: "invalid MAX_TOKENS",
		},
		"bad bool": {
			env:  map[string]string{"PROJECT_ID": "p", "VALIDATE_SLIDES": "maybe"},
			want: "invalid VALIDATE_SLIDES",
		},
		"zero concurrency": {
			file: "pipeline:\n  image_concurrency: 0\n",
			env:  map[string]string{"PROJECT_ID": "p"},
			want: "pipeline.image_concurrency must be positive",
		},
		"bad yaml": {
			file: "models: [",
			want: "parse config file",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.file != "" {
				path = writeConfig(t, tc.file)
			}

			_, err := config.Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSetModel(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.SetModel("Sonnet")
	assert.Equal(t, "anthropic/claude-3-sonnet", cfg.Models.Vision)
	assert.Equal(t, "anthropic/claude-3-sonnet", cfg.Models.Text)

	cfg.SetModel("gpt-4o")
	assert.Equal(t, "gpt-4o", cfg.Models.Vision)
	assert.Equal(t, "gpt-4o", cfg.Models.Text)
}
