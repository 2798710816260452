package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Crawler CrawlerConfig `yaml:"crawler"`
	Search  SearchConfig  `yaml:"search"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

type CrawlerConfig struct {
	Threshold     int           `yaml:"threshold" validate:"min=1,max=1000000"`
	Workers       int           `yaml:"workers" validate:"min=1,max=512"`
	Rate          int           `yaml:"rate" validate:"min=0,max=1000"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout" validate:"required,min=1"`
	RespectRobots bool          `yaml:"respect_robots"`
	UserAgent     string        `yaml:"user_agent" validate:"required,len=1:256"`
}

type SearchConfig struct {
	DefaultLimit int     `yaml:"default_limit" validate:"min=1,max=10000"`
	TitleBoost   float64 `yaml:"title_boost" validate:"min=0"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"min=0"`
}

type LogConfig struct {
	File   string `yaml:"file"`
	Buffer int    `yaml:"buffer" validate:"min=1"`
}

const envPrefix = "SPYGLASS_"

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Path: "index/badger"},
		Crawler: CrawlerConfig{
			Threshold:    30,
			Workers:      4,
			Rate:         10,
			FetchTimeout: 30 * time.Second,
			UserAgent:    "spyglass/1.0 (+https://github.com/box1bs/spyglass)",
		},
		Search: SearchConfig{DefaultLimit: 50, TitleBoost: 1.5},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{Buffer: 500},
	}
}

func (cfg *Config) Validate() error {
	if cfg.Storage.Path == "" && !cfg.Storage.InMemory {
		return errors.New("storage.path is required unless storage.in_memory is set")
	}
	return New("validate").Validate(*cfg)
}

// Load reads the yaml file at path over the defaults, applies SPYGLASS_*
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(envPrefix + "DB_PATH"); ok {
		cfg.Storage.Path = v
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"HTTP_PORT", &cfg.Server.Port},
		{"THRESHOLD", &cfg.Crawler.Threshold},
		{"WORKERS", &cfg.Crawler.Workers},
		{"RATE", &cfg.Crawler.Rate},
	}
	for _, e := range ints {
		v, ok := lookup(envPrefix + e.name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, e.name, err)
		}
		*e.dst = n
	}
	return nil
}
