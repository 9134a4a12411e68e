package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the process settings read from the Lambda environment.
type Config struct {
	BedrockRegion      string `env:"BEDROCK_REGION" envDefault:"us-east-1"`
	ModelID            string `env:"BEDROCK_MODEL_ID" envDefault:"anthropic.claude-3-haiku-20240307-v1:0"`
	MaxTokens          int    `env:"CAPTION_MAX_TOKENS" envDefault:"100"`
	ContinueOnNonImage bool   `env:"CONTINUE_ON_NON_IMAGE" envDefault:"false"`
	AttachImage        bool   `env:"ATTACH_IMAGE" envDefault:"false"`
	MaxImageEdge       int    `env:"MAX_IMAGE_EDGE" envDefault:"1568"`
	CaptionTable       string `env:"CAPTION_TABLE"`
	ParamPrefix        string `env:"PARAM_PREFIX"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses Config from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses Config from the given variables instead of os.Environ.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.BedrockRegion) == "" {
		return errors.New("config: BEDROCK_REGION must not be empty")
	}
	if strings.TrimSpace(c.ModelID) == "" {
		return errors.New("config: BEDROCK_MODEL_ID must not be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: CAPTION_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.MaxImageEdge <= 0 {
		return fmt.Errorf("config: MAX_IMAGE_EDGE must be positive, got %d", c.MaxImageEdge)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
