// Package config loads the ingestion configuration from YAML with
// environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config drives a tradefeed run: which sources to pull, where documents
// land, and where records go.
type Config struct {
	Sources []string `yaml:"sources"`

	Gmail struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		NewerThanDays   int    `yaml:"newer_than_days"`
		SaveDir         string `yaml:"save_dir"`
	} `yaml:"gmail"`

	Pipeline struct {
		Workers int `yaml:"workers"`
	} `yaml:"pipeline"`

	Output struct {
		Path string `yaml:"path"`
	} `yaml:"output"`

	Portfolio struct {
		BaseURL string `yaml:"base_url"`
		Name    string `yaml:"name"`
		Push    bool   `yaml:"push"`
	} `yaml:"portfolio"`

	// Statement passwords come from the environment, never the file.
	CathayTWPassword string `yaml:"-"`
	CathayUSPassword string `yaml:"-"`
}

var knownSources = map[string]bool{
	"cathay-tw":   true,
	"cathay-us":   true,
	"schwab-html": true,
	"schwab-text": true,
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("sources cannot be empty")
	}
	for _, s := range c.Sources {
		if !knownSources[s] {
			return fmt.Errorf("unknown source '%s'", s)
		}
	}
	if c.Gmail.NewerThanDays < 0 {
		return fmt.Errorf("gmail.newer_than_days must be >= 0, got %d", c.Gmail.NewerThanDays)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if c.Portfolio.Push && c.Portfolio.BaseURL == "" {
		return errors.New("portfolio.base_url required when portfolio.push is set")
	}
	return nil
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, then validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)
	applyEnv(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// Default returns a runnable configuration without a YAML file, for
// flag-only invocations.
func Default() *Config {
	var c Config
	c.Sources = []string{"cathay-tw", "cathay-us", "schwab-html"}
	applyDefaults(&c)
	applyEnv(&c)
	return &c
}

func applyDefaults(c *Config) {
	if c.Gmail.CredentialsFile == "" {
		c.Gmail.CredentialsFile = "credentials.json"
	}
	if c.Gmail.TokenFile == "" {
		c.Gmail.TokenFile = "token.json"
	}
	if c.Gmail.NewerThanDays == 0 {
		c.Gmail.NewerThanDays = 30
	}
	if c.Gmail.SaveDir == "" {
		c.Gmail.SaveDir = "statements"
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 4
	}
	if c.Output.Path == "" {
		c.Output.Path = "trades.json"
	}
	if c.Portfolio.Name == "" {
		c.Portfolio.Name = "default"
	}
}

func applyEnv(c *Config) {
	if v := os.Getenv("CATHAY_TW_PDF_PASSWORD"); v != "" {
		c.CathayTWPassword = v
	}
	if v := os.Getenv("CATHAY_US_PDF_PASSWORD"); v != "" {
		c.CathayUSPassword = v
	}
	if v := os.Getenv("PORTFOLIO_BASE_URL"); v != "" {
		c.Portfolio.BaseURL = v
	}
}
