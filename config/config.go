// Package config resolves the process configuration for SupportMesh
// deployments.
//
// Configuration is read once at the process edge and injected into
// components; no other package consults the environment at call time.
// Resolution priority is environment > config file > defaults. A .env file
// in the working directory is folded into the process environment first so
// local development uses the same variable names as a deployment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every SupportMesh environment variable, section by
// section: SUPPORTMESH_LLM_API_KEY, SUPPORTMESH_MEMORY_DRIVER and so on.
const EnvPrefix = "SUPPORTMESH"

// Completion providers selectable via LLMConfig.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderMock      = "mock"
)

// Memory drivers selectable via MemoryConfig.Driver.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the root configuration. Top-level groups: LLM, Memory, Router,
// Workflow, Logging.
type Config struct {
	LLM      LLMConfig      `json:"llm"`
	Memory   MemoryConfig   `json:"memory"`
	Router   RouterConfig   `json:"router"`
	Workflow WorkflowConfig `json:"workflow"`
	Logging  LoggingConfig  `json:"logging"`
}

// LLMConfig selects the completion provider and the resilience settings of
// the shared client. An empty Model selects the provider's default model.
type LLMConfig struct {
	Provider       string        `json:"provider" envconfig:"PROVIDER"`
	APIKey         string        `json:"apiKey,omitempty" envconfig:"API_KEY"`
	BaseURL        string        `json:"baseUrl,omitempty" envconfig:"BASE_URL"`
	Model          string        `json:"model,omitempty" envconfig:"MODEL"`
	FallbackModels []string      `json:"fallbackModels,omitempty" envconfig:"FALLBACK_MODELS"`
	Temperature    float64       `json:"temperature" envconfig:"TEMPERATURE"`
	MaxTokens      int           `json:"maxTokens" envconfig:"MAX_TOKENS"`
	RetryInterval  time.Duration `json:"retryInterval" envconfig:"RETRY_INTERVAL"`
	BreakerEnabled bool          `json:"breakerEnabled" envconfig:"BREAKER_ENABLED"`
}

// MemoryConfig selects the session persistence backend. Path is only
// meaningful for the sqlite driver.
type MemoryConfig struct {
	Driver    string        `json:"driver" envconfig:"DRIVER"`
	Path      string        `json:"path,omitempty" envconfig:"PATH"`
	RetainFor time.Duration `json:"retainFor" envconfig:"RETAIN_FOR"`
}

// RouterConfig overrides the routing rule inputs. Empty keyword lists keep
// the built-in defaults.
type RouterConfig struct {
	EscalationKeywords  []string `json:"escalationKeywords,omitempty" envconfig:"ESCALATION_KEYWORDS"`
	ResolutionKeywords  []string `json:"resolutionKeywords,omitempty" envconfig:"RESOLUTION_KEYWORDS"`
	ConfidenceThreshold float64  `json:"confidenceThreshold" envconfig:"CONFIDENCE_THRESHOLD"`
}

// WorkflowConfig bounds a workflow run.
type WorkflowConfig struct {
	MaxSteps int `json:"maxSteps" envconfig:"MAX_STEPS"`
}

// LoggingConfig shapes diagnostic output. A non-empty FilePath switches
// output to a rotated log file.
type LoggingConfig struct {
	Level    string `json:"level" envconfig:"LEVEL"`
	Format   string `json:"format" envconfig:"FORMAT"`
	FilePath string `json:"filePath,omitempty" envconfig:"FILE_PATH"`
}

// Default returns the baseline configuration: Anthropic completion, in-memory
// session store, 30 day retention, JSON info logging.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:      ProviderAnthropic,
			Temperature:   0.7,
			MaxTokens:     1024,
			RetryInterval: 2 * time.Second,
		},
		Memory: MemoryConfig{
			Driver:    DriverMemory,
			RetainFor: 30 * 24 * time.Hour,
		},
		Router: RouterConfig{
			ConfidenceThreshold: 0.6,
		},
		Workflow: WorkflowConfig{
			MaxSteps: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load resolves the configuration. A .env file is folded into the
// environment first, then defaults are overlaid with the optional JSON file
// named by SUPPORTMESH_CONFIG and finally with the SUPPORTMESH_* environment
// sections. The result is normalized and validated.
func Load() (*Config, error) {
	// Missing .env files are the normal case outside local development.
	_ = godotenv.Load()

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(EnvPrefix + "_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	sections := []struct {
		prefix string
		target any
	}{
		{EnvPrefix + "_LLM", &c.LLM},
		{EnvPrefix + "_MEMORY", &c.Memory},
		{EnvPrefix + "_ROUTER", &c.Router},
		{EnvPrefix + "_WORKFLOW", &c.Workflow},
		{EnvPrefix + "_LOGGING", &c.Logging},
	}

	for _, section := range sections {
		if err := envconfig.Process(section.prefix, section.target); err != nil {
			return fmt.Errorf("process %s environment: %w", section.prefix, err)
		}
	}

	// Provider-native key variables still work when the namespaced one is
	// unset.
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case ProviderOpenAI:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	return nil
}

// normalize folds case and replaces unknown enum values with their defaults.
func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderMock:
	default:
		c.LLM.Provider = ProviderAnthropic
	}

	c.Memory.Driver = strings.ToLower(strings.TrimSpace(c.Memory.Driver))
	switch c.Memory.Driver {
	case DriverMemory, DriverSQLite:
	default:
		c.Memory.Driver = DriverMemory
	}

	if c.Memory.Driver == DriverSQLite && strings.TrimSpace(c.Memory.Path) == "" {
		c.Memory.Path = "supportmesh.db"
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json", "text":
	default:
		c.Logging.Format = "json"
	}

	if c.Workflow.MaxSteps <= 0 {
		c.Workflow.MaxSteps = Default().Workflow.MaxSteps
	}
}

// Validate reports configuration no component can act on.
func (c *Config) Validate() error {
	if c.LLM.Provider != ProviderMock && c.LLM.APIKey == "" {
		return fmt.Errorf("llm provider %q requires an api key", c.LLM.Provider)
	}

	if c.Router.ConfidenceThreshold < 0 || c.Router.ConfidenceThreshold > 1 {
		return fmt.Errorf("router confidence threshold %.2f outside [0, 1]", c.Router.ConfidenceThreshold)
	}

	return nil
}
