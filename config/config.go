// Package config holds the pipeline tunables and their resolution from
// an optional .hvkit.yaml project file plus the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the optional per-project configuration file.
const FileName = ".hvkit.yaml"

// Environment variables consulted for the chat API credential, in order.
var apiKeyEnvVars = []string{"HVKIT_API_KEY", "OPENAI_API_KEY"}

// Config holds every tunable of the lookup/glossary/translate pipeline.
type Config struct {
	// ServiceURL is the Hán-Việt phonetic form endpoint.
	ServiceURL string `yaml:"service_url,omitempty"`
	// LookupWindow is the per-request character cap for phonetic lookups.
	LookupWindow int `yaml:"lookup_window,omitempty"`
	// LookupDelayMs is an optional politeness pause between windowed
	// lookup requests, in milliseconds.
	LookupDelayMs int `yaml:"lookup_delay_ms,omitempty"`
	// TimeoutSeconds is the phonetic request deadline.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
	// KeepLeadingHan disables stripping of echoed leading ideographs.
	KeepLeadingHan bool `yaml:"keep_leading_han,omitempty"`

	// ChunkBudget is the per-chunk character budget for translation.
	ChunkBudget int `yaml:"chunk_budget,omitempty"`
	// SampleLimit caps the document prefix sent for noun extraction.
	SampleLimit int `yaml:"sample_limit,omitempty"`
	// MaxItems caps the extracted proper-noun list.
	MaxItems int `yaml:"max_items,omitempty"`
	// MaxTermLen skips glossary candidates longer than this.
	MaxTermLen int `yaml:"max_term_len,omitempty"`

	// PromptDir holds the external prompt files.
	PromptDir string `yaml:"prompt_dir,omitempty"`
	// GlossaryPath is the persisted glossary file.
	GlossaryPath string `yaml:"glossary_path,omitempty"`

	// Model is the translation model.
	Model string `yaml:"model,omitempty"`
	// ExtractModel is the (cheaper) model used for noun extraction.
	ExtractModel string `yaml:"extract_model,omitempty"`
	// Mode is the translation style: "smooth" or "literal".
	Mode string `yaml:"mode,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServiceURL:     "http://nguyendu.com.free.fr/hanviet/hv_phienam_dtk.php",
		LookupWindow:   1000,
		LookupDelayMs:  0,
		TimeoutSeconds: 2,
		ChunkBudget:    6000,
		SampleLimit:    20000,
		MaxItems:       250,
		MaxTermLen:     80,
		PromptDir:      "prompts",
		GlossaryPath:   "glossary.json",
		Model:          "gpt-5.2",
		ExtractModel:   "gpt-4o",
		Mode:           "smooth",
	}
}

// Load reads .hvkit.yaml from rootDir over the defaults. A missing file
// is not an error; fields omitted from the file keep their defaults.
// Relative paths in the file resolve against rootDir.
func Load(rootDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.resolvePaths(rootDir)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.resolvePaths(rootDir)
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Mode != "smooth" && c.Mode != "literal" {
		return fmt.Errorf("mode must be \"smooth\" or \"literal\", got %q", c.Mode)
	}
	if c.LookupWindow <= 0 {
		return fmt.Errorf("lookup_window must be positive")
	}
	if c.ChunkBudget <= 0 {
		return fmt.Errorf("chunk_budget must be positive")
	}
	return nil
}

func (c *Config) resolvePaths(rootDir string) {
	if !filepath.IsAbs(c.PromptDir) {
		c.PromptDir = filepath.Join(rootDir, c.PromptDir)
	}
	if !filepath.IsAbs(c.GlossaryPath) {
		c.GlossaryPath = filepath.Join(rootDir, c.GlossaryPath)
	}
}

// LookupDelay returns the configured inter-request delay.
func (c *Config) LookupDelay() time.Duration {
	return time.Duration(c.LookupDelayMs) * time.Millisecond
}

// Timeout returns the phonetic request deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ---------------------------------------------------------------------------
// Credential resolution
// ---------------------------------------------------------------------------

// APIKey resolves the chat API credential: an explicit flag value wins,
// then HVKIT_API_KEY, then OPENAI_API_KEY. A .env file in rootDir is
// loaded into the environment first (existing variables are not
// overridden). An empty result is an error: translation and extraction
// have no degraded mode without a credential.
func APIKey(rootDir, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	// Best effort: a missing .env is fine, the variable may be exported.
	_ = godotenv.Load(filepath.Join(rootDir, ".env"))

	for _, name := range apiKeyEnvVars {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}

	return "", fmt.Errorf("no API key: set %s or %s (a .env file works), or pass --api-key",
		apiKeyEnvVars[0], apiKeyEnvVars[1])
}
