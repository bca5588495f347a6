package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/garnizeh/clipmarket/pkg/ollama"
)

const (
	insecureJWTSecret = "supersecretkey"

	ScoringHeuristic = "heuristic"
	ScoringLLM       = "llm"
)

type Config struct {
	Addr             string          `yaml:"addr"`
	JWTSecret        string          `yaml:"jwt_secret"`
	APITimeout       time.Duration   `yaml:"timeout"`
	DatabasePath     string          `yaml:"database_path"`
	TokenDuration    time.Duration   `yaml:"token_duration"`
	MFATokenDuration time.Duration   `yaml:"mfa_token_duration"`
	TwoFactor        TwoFactorConfig `yaml:"two_factor"`
	Scoring          ScoringConfig   `yaml:"scoring"`
	Ollama           ollama.Config   `yaml:"ollama"`
	Jobs             JobsConfig      `yaml:"jobs"`
}

type TwoFactorConfig struct {
	Issuer string `yaml:"issuer"`
	Period uint   `yaml:"period"`
	Skew   uint   `yaml:"skew"`
}

// ScoringConfig picks the fraud scorer. In llm mode the heuristic scorer is
// still used whenever the model cannot answer.
type ScoringConfig struct {
	Mode            string        `yaml:"mode"`
	Model           string        `yaml:"model"`
	TemplateVersion string        `yaml:"template_version"`
	Timeout         time.Duration `yaml:"timeout"`
}

type JobsConfig struct {
	Workers int `yaml:"workers"`
}

// LoadConfig builds the configuration from defaults, an optional .env file
// (CLIP_ENV_FILE overrides its location), CLIP_* environment variables and
// finally the YAML file at path.
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(getEnv("CLIP_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:             getEnv("CLIP_ADDR", ":8080"),
		JWTSecret:        getEnv("CLIP_JWT_SECRET", insecureJWTSecret),
		APITimeout:       15 * time.Second,
		DatabasePath:     getEnv("CLIP_DATABASE_PATH", "clipmarket.db"),
		TokenDuration:    time.Hour,
		MFATokenDuration: 5 * time.Minute,
		TwoFactor:        TwoFactorConfig{Issuer: getEnv("CLIP_2FA_ISSUER", "ClipMarket"), Period: 30, Skew: 2},
		Scoring: ScoringConfig{
			Mode:            getEnv("CLIP_SCORING_MODE", ScoringHeuristic),
			Model:           getEnv("CLIP_SCORING_MODEL", ""),
			TemplateVersion: "v1",
			Timeout:         20 * time.Second,
		},
		Ollama: ollama.DefaultConfig(),
		Jobs:   JobsConfig{Workers: 2},
	}
	cfg.Ollama.BaseURL = getEnv("CLIP_OLLAMA_BASE_URL", cfg.Ollama.BaseURL)

	var err error
	if cfg.APITimeout, err = getEnvDuration("CLIP_TIMEOUT", cfg.APITimeout); err != nil {
		return nil, err
	}
	if cfg.TokenDuration, err = getEnvDuration("CLIP_TOKEN_DURATION", cfg.TokenDuration); err != nil {
		return nil, err
	}
	if v := os.Getenv("CLIP_JOBS_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CLIP_JOBS_WORKERS: %w", err)
		}
		cfg.Jobs.Workers = n
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects unsafe or incomplete settings and fills the remaining
// defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if c.JWTSecret == insecureJWTSecret && os.Getenv("CLIP_ENV") != "development" {
		errs = append(errs, errors.New("jwt_secret uses the built-in default; set CLIP_JWT_SECRET or CLIP_ENV=development"))
	}

	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = time.Hour
	}
	if c.MFATokenDuration <= 0 {
		c.MFATokenDuration = 5 * time.Minute
	}
	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = 2
	}
	// skew is taken as given; 0 accepts only the current step
	if c.TwoFactor.Issuer == "" {
		c.TwoFactor.Issuer = "ClipMarket"
	}
	if c.TwoFactor.Period == 0 {
		c.TwoFactor.Period = 30
	}

	switch c.Scoring.Mode {
	case "":
		c.Scoring.Mode = ScoringHeuristic
	case ScoringHeuristic:
	case ScoringLLM:
		if c.Scoring.Model == "" {
			errs = append(errs, errors.New("scoring.model is required in llm mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("scoring.mode %q is not one of heuristic, llm", c.Scoring.Mode))
	}
	if c.Scoring.TemplateVersion == "" {
		c.Scoring.TemplateVersion = "v1"
	}

	if c.Ollama == (ollama.Config{}) {
		c.Ollama = ollama.DefaultConfig()
	}
	d := ollama.DefaultConfig()
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = d.BaseURL
	}
	if c.Ollama.Timeout <= 0 {
		c.Ollama.Timeout = d.Timeout
	}

	return errors.Join(errs...)
}

// loadDotEnv reads name into the environment when it exists. Variables that
// are already set win.
func loadDotEnv(name string) error {
	if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(name); err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
