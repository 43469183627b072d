// Package config loads settings from defaults, a YAML file, .env and the
// environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when the agent has no OpenAI key
var ErrMissingAPIKey = errors.New("llm.api_key (OPENAI_API_KEY) is required")

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Data     DataConfig     `yaml:"data"`
	LLM      LLMConfig      `yaml:"llm"`
	Agent    AgentConfig    `yaml:"agent"`
	SQL      SQLConfig      `yaml:"sql"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	ReadOnly bool   `yaml:"read_only"`
}

type DataConfig struct {
	AllocationsCSV     string `yaml:"allocations_csv"`
	AdvisorsClientsCSV string `yaml:"advisors_clients_csv"`
	IngestOnStart      bool   `yaml:"ingest_on_start"`
}

type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	Seed        *int64  `yaml:"seed"`
}

type AgentConfig struct {
	MaxIterations int `yaml:"max_iterations"`
	FewShotK      int `yaml:"few_shot_k"`
	TopK          int `yaml:"top_k"`
}

type SQLConfig struct {
	Extractor      string         `yaml:"extractor"`
	AllowNonSelect bool           `yaml:"allow_non_select"`
	Defaults       map[string]any `yaml:"defaults"`
	Placeholder    string         `yaml:"placeholder"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in settings
func Default() *Config {
	seed := int64(42)
	return &Config{
		Database: DatabaseConfig{URL: "data/database.db", ReadOnly: true},
		Data: DataConfig{
			AllocationsCSV:     "data/allocations.csv",
			AdvisorsClientsCSV: "data/advisors_clients.csv",
			IngestOnStart:      true,
		},
		LLM:     LLMConfig{Model: "gpt-4o", Temperature: 0, Seed: &seed},
		Agent:   AgentConfig{MaxIterations: 3, FewShotK: 5, TopK: 3},
		SQL:     SQLConfig{Extractor: "regex", Placeholder: "Unknown"},
		Server:  ServerConfig{Port: "8080"},
		Logging: LoggingConfig{Level: "info", File: "logs/app.log"},
	}
}

// Load reads path (optional) and applies .env and environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// a missing .env is fine; variables already set win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.File = getEnv("LOG_FILE", c.Logging.File)

	if value := os.Getenv("SQL_ALLOW_NON_SELECT"); value != "" {
		allow, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid SQL_ALLOW_NON_SELECT %q: %w", value, err)
		}
		c.SQL.AllowNonSelect = allow
	}
	return nil
}

// Validate reports settings the agent cannot run without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return c.ValidateStore()
}

// ValidateStore checks only what the query path needs
func (c *Config) ValidateStore() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("database.url (DATABASE_URL) is required")
	}
	switch strings.ToLower(c.SQL.Extractor) {
	case "", "regex", "parser":
	default:
		return fmt.Errorf("sql.extractor must be regex or parser, got %q", c.SQL.Extractor)
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be at least 1, got %d", c.Agent.MaxIterations)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
