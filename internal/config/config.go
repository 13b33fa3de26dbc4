package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string `env:"DB_PATH" envDefault:"data/app.db"`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"out"`
	Gateway   string `env:"GATEWAY" envDefault:"sqlite"`

	ERPAPIBaseURL   string `env:"ERP_API_BASE_URL" envDefault:"http://localhost:3000/api"`
	ERPAPIToken     string `env:"ERP_API_TOKEN"`
	ERPRateLimitRPS int    `env:"ERP_RATE_LIMIT_RPS" envDefault:"5"`
	ERPTimeoutMs    int    `env:"ERP_TIMEOUT_MS" envDefault:"30000"`
	ERPMaxAttempts  int    `env:"ERP_MAX_ATTEMPTS" envDefault:"5"`

	ActorID string `env:"IMPORT_ACTOR_ID" envDefault:"system"`

	MatchMinEmbeddedCodeLen int     `env:"MATCH_MIN_EMBEDDED_CODE_LEN" envDefault:"4"`
	MatchMinFuzzyLen        int     `env:"MATCH_MIN_FUZZY_LEN" envDefault:"0"`
	MatchConfidenceAccept   float64 `env:"MATCH_CONFIDENCE_ACCEPT" envDefault:"0.7"`
	MatchSuggestionLimit    int     `env:"MATCH_SUGGESTION_LIMIT" envDefault:"3"`

	DefaultReplacementMotive string `env:"REPLACEMENT_DEFAULT_MOTIVE" envDefault:"Reemplazo por importación de lista de equipos"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads .env files when present and decodes the process environment.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, errors.Wrap(err, "load .env")
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}

// Default returns the configuration built from defaults only, ignoring the environment.
func Default() Config {
	var cfg Config
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.Errorf("missing required env var: %s", name)
	}
	return nil
}
