package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// ErrMissingConnection is returned when the graph store cannot be reached
// because connection parameters are absent.
var ErrMissingConnection = errors.New("missing graph connection parameters")

const (
	DefaultPath      = "config/config.toml"
	DefaultChunkSize = 500
)

type GraphConfig struct {
	URI            string `toml:"uri"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	Database       string `toml:"database"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxPoolSize    int    `toml:"max_pool_size"`
}

type ScraperConfig struct {
	SeriesID       string `toml:"series_id"`
	BaseURL        string `toml:"base_url"`
	MaxWorkers     int    `toml:"max_workers"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	UserAgent      string `toml:"user_agent"`
}

type CacheConfig struct {
	File string `toml:"file"`
}

type IngestConfig struct {
	ChunkSize int `toml:"chunk_size"`
}

type SetupConfig struct {
	File string `toml:"file"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
}

type Config struct {
	Graph   GraphConfig   `toml:"graph"`
	Scraper ScraperConfig `toml:"scraper"`
	Cache   CacheConfig   `toml:"cache"`
	Ingest  IngestConfig  `toml:"ingest"`
	Setup   SetupConfig   `toml:"setup"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return &cfg, nil
}

// LoadEnv loads .env (if present), then the TOML file at path (a missing file
// yields defaults), then applies environment overrides and defaults.
func LoadEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("AMBRIDGE_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Graph.URI, "NEO4J_URI")
	override(&c.Graph.User, "NEO4J_USER")
	override(&c.Graph.Password, "NEO4J_PASSWORD")
	override(&c.Graph.Database, "NEO4J_DATABASE")
	override(&c.Scraper.SeriesID, "SERIES_ID")
	override(&c.Cache.File, "CACHE_FILE")
	override(&c.Server.Port, "PORT")
	override(&c.Log.Mode, "LOG_MODE")

	if v := strings.TrimSpace(getenv("NEO4J_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Graph.TimeoutSeconds = parsed
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Graph.TimeoutSeconds <= 0 {
		c.Graph.TimeoutSeconds = 10
	}
	if c.Graph.MaxPoolSize <= 0 {
		c.Graph.MaxPoolSize = 50
	}
	if c.Scraper.BaseURL == "" {
		c.Scraper.BaseURL = "https://www.bbc.co.uk/programmes"
	}
	if c.Scraper.MaxWorkers <= 0 {
		c.Scraper.MaxWorkers = 3
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		c.Scraper.TimeoutSeconds = 30
	}
	if c.Scraper.MaxRetries <= 0 {
		c.Scraper.MaxRetries = 3
	}
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	}
	if c.Cache.File == "" {
		c.Cache.File = "episodes.json"
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = DefaultChunkSize
	}
	if c.Setup.File == "" {
		c.Setup.File = "import_base_data.txt"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}
}

// Validate checks that the graph connection is fully specified.
func (c *Config) Validate() error {
	var missing []string
	if c.Graph.URI == "" {
		missing = append(missing, "uri")
	}
	if c.Graph.User == "" {
		missing = append(missing, "user")
	}
	if c.Graph.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: graph %s", ErrMissingConnection, strings.Join(missing, ", "))
	}
	return nil
}
