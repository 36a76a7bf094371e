// Package config loads dialga's YAML configuration. Every field has a
// working default; a missing config file yields a pure-default Config.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	ListenAddress string        `yaml:"listen_address"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type Scraper struct {
	BaseURL string `yaml:"base_url"`
}

type Cache struct {
	Backend string        `yaml:"backend"` // memory or sqlite
	Path    string        `yaml:"path"`    // sqlite database file
	TTL     time.Duration `yaml:"ttl"`
}

type Pipeline struct {
	Concurrency int `yaml:"concurrency"`
}

type Config struct {
	Server   Server   `yaml:"server"`
	Scraper  Scraper  `yaml:"scraper"`
	Cache    Cache    `yaml:"cache"`
	Pipeline Pipeline `yaml:"pipeline"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a YAML config file and fills in defaults for anything left
// unset.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// Serving the feed triggers a full scrape; give it room.
		c.Server.WriteTimeout = 2 * time.Minute
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Scraper.BaseURL == "" {
		c.Scraper.BaseURL = "https://pokemongo.com"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "dialga-cache.db"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Hour
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = 5
	}
}
