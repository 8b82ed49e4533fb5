// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/subosito/gotenv"
)

type HTTP struct {
	Addr        string   `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	RateLimit   float64  `yaml:"rate_limit" env:"RATE_LIMIT" env-default:"20"`
	BodyLimit   string   `yaml:"body_limit" env:"BODY_LIMIT" env-default:"10MB"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"change-me"`
	JWTExpiry time.Duration `yaml:"jwt_expiry" env:"JWT_EXPIRY" env-default:"24h"`
}

type LLM struct {
	// APIKey is the server-wide fallback used when a profile carries no key.
	APIKey         string        `yaml:"api_key" env:"GEMINI_API_KEY"`
	// BaseURL overrides the Gemini endpoint; empty means the public API.
	BaseURL        string        `yaml:"base_url" env:"GEMINI_BASE_URL"`
	DefaultModel   string        `yaml:"default_model" env:"DEFAULT_MODEL" env-default:"gemini-1.5-flash"`
	Timeout        time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"30s"`
	MaxAttempts    int           `yaml:"max_attempts" env:"LLM_MAX_ATTEMPTS" env-default:"3"`
	BackoffInitial time.Duration `yaml:"backoff_initial" env:"LLM_BACKOFF_INITIAL" env-default:"2s"`
	BackoffMax     time.Duration `yaml:"backoff_max" env:"LLM_BACKOFF_MAX" env-default:"10s"`
	HistoryCutoff  int           `yaml:"history_cutoff" env:"HISTORY_CUTOFF" env-default:"10"`
}

type Research struct {
	ArxivURL       string        `yaml:"arxiv_url" env:"ARXIV_URL" env-default:"https://export.arxiv.org/api/query"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT" env-default:"60s"`
	ExtractLimit   int           `yaml:"extract_limit" env:"EXTRACT_LIMIT" env-default:"10000"`
	RedisAddr      string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword  string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	SearchCacheTTL time.Duration `yaml:"search_cache_ttl" env:"SEARCH_CACHE_TTL" env-default:"10m"`
}

type Config struct {
	HTTP        HTTP     `yaml:"http"`
	Auth        Auth     `yaml:"auth"`
	LLM         LLM      `yaml:"llm"`
	Research    Research `yaml:"research"`
	DatabaseURL string   `yaml:"database_url" env:"DATABASE_URL" env-default:"file:synapse.db?_foreign_keys=on"`
	Debug       bool     `yaml:"debug" env:"DEBUG" env-default:"false"`
}

// Load reads .env (if present), then cfgPath (if non-empty), then the
// environment. Environment values win over the file.
func Load(cfgPath string) (*Config, error) {
	_ = gotenv.Load()

	var cfg Config
	if cfgPath != "" {
		if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", cfgPath, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &cfg, nil
}
