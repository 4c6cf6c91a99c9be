// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AuthConfig struct {
	APIKey     string        `yaml:"api_key"`     // exchanged for a JWT at /api/v1/auth/token
	JWTSecret  string        `yaml:"jwt_secret"`  // HS256 signing secret
	SessionTTL time.Duration `yaml:"session_ttl"` // token lifetime
}

type RedisConfig struct {
	URL       string `yaml:"url"` // empty -> in-memory key store
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"` // 16/24/32 bytes; seals stored credentials
}

// ProviderConfig describes one AI backend.
type ProviderConfig struct {
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	BaseDelay time.Duration `yaml:"base_delay"` // retry backoff base
	Timeout   time.Duration `yaml:"timeout"`    // per HTTP request
	Keys      []string      `yaml:"keys"`       // optional seed credentials
}

type AIConfig struct {
	DefaultProvider string         `yaml:"default_provider"`
	ConcurrentLimit int            `yaml:"concurrent_limit"` // max concurrent AI calls per provider
	MaxAttempts     int            `yaml:"max_attempts"`
	AnalysisMaxEdge int            `yaml:"analysis_max_edge"` // longest edge of images sent for analysis
	Gemini          ProviderConfig `yaml:"gemini"`
	Mistral         ProviderConfig `yaml:"mistral"`
	Groq            ProviderConfig `yaml:"groq"`
}

type BatchConfig struct {
	Concurrency int `yaml:"concurrency"` // items per chunk
	RunWorkers  int `yaml:"run_workers"` // background run executors
}

type IntakeConfig struct {
	MaxFiles      int `yaml:"max_files"`
	ThumbnailEdge int `yaml:"thumbnail_edge"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Security SecurityConfig `yaml:"security"`
	AI       AIConfig       `yaml:"ai"`
	Batch    BatchConfig    `yaml:"batch"`
	Intake   IntakeConfig   `yaml:"intake"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path and applies defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes raw YAML, applies defaults and validates.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev

	// Minimal validation
	if !dev {
		if cfg.Auth.JWTSecret == "" {
			return nil, errors.New("auth.jwt_secret is required")
		}
		if cfg.Auth.APIKey == "" {
			return nil, errors.New("auth.api_key is required")
		}
	}
	if n := len(cfg.Security.EncryptionKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("security.encryption_key must be 16, 24, or 32 bytes; got %d", n)
	}
	switch cfg.AI.DefaultProvider {
	case "gemini", "mistral", "groq", "noop":
	default:
		return nil, fmt.Errorf("ai.default_provider %q is not supported", cfg.AI.DefaultProvider)
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxUploadMB <= 0 {
		cfg.HTTP.MaxUploadMB = 512
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Auth.SessionTTL <= 0 {
		cfg.Auth.SessionTTL = 12 * time.Hour
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "stockmeta"
	}

	if cfg.AI.DefaultProvider == "" {
		cfg.AI.DefaultProvider = "gemini"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.MaxAttempts <= 0 {
		cfg.AI.MaxAttempts = 5
	}
	if cfg.AI.AnalysisMaxEdge <= 0 {
		cfg.AI.AnalysisMaxEdge = 1024
	}
	providerDefaults(&cfg.AI.Gemini, "gemini-2.5-flash", "", time.Second)
	providerDefaults(&cfg.AI.Mistral, "pixtral-12b-2409", "https://api.mistral.ai/v1", 2*time.Second)
	providerDefaults(&cfg.AI.Groq, "meta-llama/llama-4-scout-17b-16e-instruct", "https://api.groq.com/openai/v1", 3*time.Second)

	if cfg.Batch.Concurrency <= 0 {
		cfg.Batch.Concurrency = 6
	}
	if cfg.Batch.RunWorkers <= 0 {
		cfg.Batch.RunWorkers = 2
	}
	if cfg.Intake.MaxFiles <= 0 {
		cfg.Intake.MaxFiles = 100
	}
	if cfg.Intake.ThumbnailEdge <= 0 {
		cfg.Intake.ThumbnailEdge = 256
	}
}

func providerDefaults(p *ProviderConfig, model, baseURL string, delay time.Duration) {
	if p.Model == "" {
		p.Model = model
	}
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = delay
	}
	if p.Timeout <= 0 {
		p.Timeout = 60 * time.Second
	}
}
