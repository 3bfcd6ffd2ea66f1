package config

import (
	"errors"
	"testing"
	"time"
)

// validConfig returns a configuration mirroring the defaults.
func validConfig() *Config {
	return &Config{
		ModelName:      "gemini-2.0-flash",
		Temperature:    0.7,
		EmbedderModel:  "gemini-embedding-001",
		MaxTurns:       6,
		TimeoutSeconds: 30,
		DocumentChunks: ChunkProfile{Size: DefaultDocumentChunkSize, Overlap: DefaultDocumentChunkOverlap},
		PageChunks:     ChunkProfile{Size: DefaultPageChunkSize, Overlap: DefaultPageChunkOverlap},
		RetrievalK:     4,
		DataDir:        "/tmp/parley-test",
		Addr:           ":3000",
	}
}

func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("default-shaped config should validate, got %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "negative temperature",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "temperature above range",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.DocumentChunks.Size = 0 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "overlap equals size",
			mutate:  func(c *Config) { c.PageChunks.Overlap = c.PageChunks.Size },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.DocumentChunks.Overlap = -1 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "retrieval k zero",
			mutate:  func(c *Config) { c.RetrievalK = 0 },
			wantErr: ErrInvalidRetrievalK,
		},
		{
			name:    "max turns zero",
			mutate:  func(c *Config) { c.MaxTurns = 0 },
			wantErr: ErrInvalidMaxTurns,
		},
		{
			name:    "max turns excessive",
			mutate:  func(c *Config) { c.MaxTurns = 100 },
			wantErr: ErrInvalidMaxTurns,
		},
		{
			name:    "timeout zero",
			mutate:  func(c *Config) { c.TimeoutSeconds = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "booking URL without scheme",
			mutate:  func(c *Config) { c.BookingURL = "mockbin.example/booking" },
			wantErr: ErrInvalidEndpointURL,
		},
		{
			name:    "doctor list URL with bad scheme",
			mutate:  func(c *Config) { c.DoctorListURL = "ftp://example.com/doctors" },
			wantErr: ErrInvalidEndpointURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_AllowsEmptyEndpoints(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.DoctorListURL = ""
	cfg.BookingURL = ""
	cfg.WebpageURL = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty endpoints should be allowed, got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.TimeoutSeconds = 45

	if got, want := cfg.Timeout(), 45*time.Second; got != want {
		t.Errorf("Timeout() = %v, want %v", got, want)
	}
}

func TestAPIKey(t *testing.T) {
	cfg := validConfig()

	t.Run("missing", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")

		_, err := cfg.APIKey()
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("got %v, want ErrMissingAPIKey", err)
		}
	})

	t.Run("present", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")

		key, err := cfg.APIKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "test-key" {
			t.Errorf("got %q, want %q", key, "test-key")
		}
	})
}
