// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.parley/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Model: model name, temperature, embedder model
//   - Agent: deliberation cap, per-call timeout
//   - Retrieval: chunk window/overlap profiles, top-k
//   - Storage: session log directory
//   - Tools: directory and booking endpoint URLs, startup sources
//   - Server: listen address
//
// Error handling uses sentinel errors checked with errors.Is and wrapped
// with fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidChunking indicates a chunk window/overlap pair is unusable.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidRetrievalK indicates the retrieval top-k is out of range.
	ErrInvalidRetrievalK = errors.New("invalid retrieval k")

	// ErrInvalidMaxTurns indicates the deliberation cap is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidTimeout indicates the per-call timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid request timeout")

	// ErrInvalidEndpointURL indicates a configured tool endpoint is not
	// an absolute http(s) URL.
	ErrInvalidEndpointURL = errors.New("invalid endpoint URL")

	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")
)

// Defaults for the retrieval chunking profiles. Documents use a wide
// window; webpages use a narrow one because extracted page text is
// denser and shorter.
const (
	DefaultDocumentChunkSize    = 1000
	DefaultDocumentChunkOverlap = 200
	DefaultPageChunkSize        = 200
	DefaultPageChunkOverlap     = 20
)

// ChunkProfile is a window/overlap pair for the retrieval splitter.
type ChunkProfile struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

// Config stores application configuration.
type Config struct {
	// Model configuration
	ModelName     string  `mapstructure:"model_name"`
	Temperature   float32 `mapstructure:"temperature"`
	EmbedderModel string  `mapstructure:"embedder_model"`

	// Agent loop configuration
	MaxTurns       int `mapstructure:"max_turns"`
	TimeoutSeconds int `mapstructure:"request_timeout_seconds"`

	// Retrieval configuration
	DocumentChunks ChunkProfile `mapstructure:"document_chunks"`
	PageChunks     ChunkProfile `mapstructure:"page_chunks"`
	RetrievalK     int          `mapstructure:"retrieval_k"`

	// Storage configuration
	DataDir string `mapstructure:"data_dir"`

	// Tool endpoints
	DoctorListURL string `mapstructure:"doctor_list_url"`
	BookingURL    string `mapstructure:"booking_url"`

	// Startup sources for the QA tools (optional)
	DocumentPath string `mapstructure:"document_path"`
	WebpageURL   string `mapstructure:"webpage_url"`

	// Server configuration
	Addr string `mapstructure:"addr"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".parley")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("model_name", "gemini-2.0-flash")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("embedder_model", "gemini-embedding-001")

	viper.SetDefault("max_turns", 6)
	viper.SetDefault("request_timeout_seconds", 30)

	viper.SetDefault("document_chunks.size", DefaultDocumentChunkSize)
	viper.SetDefault("document_chunks.overlap", DefaultDocumentChunkOverlap)
	viper.SetDefault("page_chunks.size", DefaultPageChunkSize)
	viper.SetDefault("page_chunks.overlap", DefaultPageChunkOverlap)
	viper.SetDefault("retrieval_k", 4)

	viper.SetDefault("data_dir", filepath.Join(configDir, "chats"))

	viper.SetDefault("addr", ":3000")
}

// bindEnvVariables binds environment variable overrides explicitly.
// GEMINI_API_KEY is read directly by the gateway, not via viper; its
// presence is checked in APIKey().
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "PARLEY_MODEL_NAME")
	mustBind("data_dir", "PARLEY_DATA_DIR")
	mustBind("addr", "PARLEY_ADDR")
	mustBind("doctor_list_url", "PARLEY_DOCTOR_LIST_URL")
	mustBind("booking_url", "PARLEY_BOOKING_URL")
}

// Validate performs fail-fast range checks on the loaded configuration.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return ErrInvalidModelName
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (want 0..2)", ErrInvalidTemperature, c.Temperature)
	}
	if err := validateChunks("document_chunks", c.DocumentChunks); err != nil {
		return err
	}
	if err := validateChunks("page_chunks", c.PageChunks); err != nil {
		return err
	}
	if c.RetrievalK < 1 || c.RetrievalK > 20 {
		return fmt.Errorf("%w: %d (want 1..20)", ErrInvalidRetrievalK, c.RetrievalK)
	}
	if c.MaxTurns < 1 || c.MaxTurns > 20 {
		return fmt.Errorf("%w: %d (want 1..20)", ErrInvalidMaxTurns, c.MaxTurns)
	}
	if c.TimeoutSeconds < 1 || c.TimeoutSeconds > 600 {
		return fmt.Errorf("%w: %d seconds (want 1..600)", ErrInvalidTimeout, c.TimeoutSeconds)
	}

	for _, endpoint := range []string{c.DoctorListURL, c.BookingURL, c.WebpageURL} {
		if endpoint == "" {
			continue
		}
		if err := validateHTTPURL(endpoint); err != nil {
			return err
		}
	}

	return nil
}

// validateChunks checks a window/overlap pair: both positive where
// required and the overlap strictly smaller than the window, otherwise
// the splitter cannot make progress.
func validateChunks(name string, p ChunkProfile) error {
	if p.Size < 1 {
		return fmt.Errorf("%w: %s size %d (want >= 1)", ErrInvalidChunking, name, p.Size)
	}
	if p.Overlap < 0 || p.Overlap >= p.Size {
		return fmt.Errorf("%w: %s overlap %d (want 0 <= overlap < size)", ErrInvalidChunking, name, p.Overlap)
	}
	return nil
}

// validateHTTPURL checks that s parses as an absolute http(s) URL.
func validateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidEndpointURL, s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q (want http or https)", ErrInvalidEndpointURL, s)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q (missing host)", ErrInvalidEndpointURL, s)
	}
	return nil
}

// Timeout returns the per-call timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// APIKey returns the Gemini API key from the environment.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		return "", fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return key, nil
}
