package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds detection and validation settings
type Config struct {
	Detection  DetectionConfig  `yaml:"detection"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type DetectionConfig struct {
	NEREnabled    bool     `yaml:"ner_enabled"`
	OverlapPolicy string   `yaml:"overlap_policy"` // keep_all | highest_confidence
	TightBBoxes   bool     `yaml:"tight_bboxes"`
	Entities      []string `yaml:"entities"` // empty means every type
	BatchSize     int      `yaml:"batch_size"`
}

type ValidationConfig struct {
	Enabled           bool          `yaml:"enabled"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	Timeout           time.Duration `yaml:"timeout"`
	Concurrency       int           `yaml:"concurrency"`
	Threshold         float64       `yaml:"false_positive_threshold"`
	ContextChars      int           `yaml:"context_chars"`
	CountPromptTokens bool          `yaml:"count_prompt_tokens"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Detection: DetectionConfig{
			NEREnabled:    true,
			OverlapPolicy: string(pii.OverlapKeepAll),
			TightBBoxes:   true,
			BatchSize:     10,
		},
		Validation: ValidationConfig{
			Model:        "gpt-4o-mini",
			Timeout:      20 * time.Second,
			Concurrency:  1,
			Threshold:    0.3,
			ContextChars: 200,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from, in increasing priority, the defaults,
// the YAML file named by path or PII_CONFIG_FILE, and the environment. A
// .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("PII_CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var err error
	setBool := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = errors.Wrapf(perr, "invalid %s", key)
				return
			}
			*dst = b
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = errors.Wrapf(perr, "invalid %s", key)
				return
			}
			*dst = n
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			f, perr := strconv.ParseFloat(v, 64)
			if perr != nil {
				err = errors.Wrapf(perr, "invalid %s", key)
				return
			}
			*dst = f
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	setBool("PII_NER_ENABLED", &cfg.Detection.NEREnabled)
	setString("PII_OVERLAP_POLICY", &cfg.Detection.OverlapPolicy)
	setBool("PII_TIGHT_BBOXES", &cfg.Detection.TightBBoxes)
	setInt("PII_BATCH_SIZE", &cfg.Detection.BatchSize)
	if v, ok := lookup("PII_ENTITIES"); ok && strings.TrimSpace(v) != "" {
		cfg.Detection.Entities = splitList(v)
	}

	setBool("LLM_VALIDATION_ENABLED", &cfg.Validation.Enabled)
	for _, key := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "LLM_API_KEY"} {
		setString(key, &cfg.Validation.APIKey)
	}
	setString("LLM_BASE_URL", &cfg.Validation.BaseURL)
	setString("LLM_MODEL", &cfg.Validation.Model)
	if v, ok := lookup("LLM_TIMEOUT"); ok && v != "" && err == nil {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			err = errors.Wrap(perr, "invalid LLM_TIMEOUT")
		} else {
			cfg.Validation.Timeout = d
		}
	}
	setInt("LLM_CONCURRENCY", &cfg.Validation.Concurrency)
	setFloat("LLM_FALSE_POSITIVE_THRESHOLD", &cfg.Validation.Threshold)
	setInt("LLM_CONTEXT_CHARS", &cfg.Validation.ContextChars)
	setBool("LLM_COUNT_PROMPT_TOKENS", &cfg.Validation.CountPromptTokens)

	setString("LOG_LEVEL", &cfg.Logging.Level)

	return err
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if _, err := pii.ParseOverlapPolicy(c.Detection.OverlapPolicy); err != nil {
		return err
	}
	if c.Detection.BatchSize <= 0 {
		return errors.Errorf("batch size must be positive, got %d", c.Detection.BatchSize)
	}
	if _, err := c.EntityTypes(); err != nil {
		return err
	}

	v := c.Validation
	if v.Threshold < 0 || v.Threshold > 1 {
		return errors.Errorf("false positive threshold must be within [0,1], got %v", v.Threshold)
	}
	if v.Timeout <= 0 {
		return errors.Errorf("validation timeout must be positive, got %s", v.Timeout)
	}
	if v.Concurrency <= 0 {
		return errors.Errorf("validation concurrency must be positive, got %d", v.Concurrency)
	}
	if v.ContextChars <= 0 {
		return errors.Errorf("context chars must be positive, got %d", v.ContextChars)
	}
	if v.Enabled && v.APIKey == "" {
		return errors.New("validation is enabled but no API key is set (LLM_API_KEY, GEMINI_API_KEY or OPENAI_API_KEY)")
	}
	return nil
}

// EntityTypes parses the configured entity filter
func (c *Config) EntityTypes() ([]pii.EntityType, error) {
	types := make([]pii.EntityType, 0, len(c.Detection.Entities))
	for _, name := range c.Detection.Entities {
		t, ok := pii.ParseEntityType(name)
		if !ok {
			return nil, errors.Errorf("unknown entity type %q", name)
		}
		types = append(types, t)
	}
	return types, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
