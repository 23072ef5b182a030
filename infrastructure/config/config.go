package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Backend selects which project repository implementation to wire.
const (
	BackendDynamoDB    = "dynamodb"
	BackendResearchAPI = "researchapi"
)

// Suggester selects which suggestion provider implementation to wire.
const (
	SuggesterGemini      = "gemini"
	SuggesterResearchAPI = "researchapi"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address" validate:"required"`
	Environment   string `yaml:"environment" validate:"oneof=development staging production"`

	// Persistence backend
	PersistenceBackend string `yaml:"persistence_backend" validate:"oneof=dynamodb researchapi"`
	AWSRegion          string `yaml:"aws_region"`
	DynamoDBTable      string `yaml:"dynamodb_table"`
	ResearchAPIBaseURL string `yaml:"research_api_base_url"`
	ResearchAPITimeout int    `yaml:"research_api_timeout_ms" validate:"gt=0"`

	// Messaging
	EnableEventBridge bool   `yaml:"enable_eventbridge"`
	EventBusName      string `yaml:"event_bus_name"`

	// Persistence debounce window, milliseconds
	SaveDebounceMS int `yaml:"save_debounce_ms" validate:"gt=0"`

	// Suggestions
	SuggestionProvider string `yaml:"suggestion_provider" validate:"oneof=gemini researchapi"`
	GeminiAPIKey       string `yaml:"gemini_api_key"`
	GeminiModel        string `yaml:"gemini_model"`

	// Logging and features
	LogLevel   string `yaml:"log_level"`
	EnableCORS bool   `yaml:"enable_cors"`
	IsLambda   bool   `yaml:"is_lambda"`
}

// LoadConfig loads configuration from an optional YAML file (CONFIG_FILE)
// overlaid with environment variables. Environment wins.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:      ":8080",
		Environment:        "development",
		PersistenceBackend: BackendDynamoDB,
		AWSRegion:          "us-west-2",
		DynamoDBTable:      "research-projects",
		ResearchAPIBaseURL: "http://localhost:8000",
		ResearchAPITimeout: 15000,
		EventBusName:       "research-workspace-events",
		SaveDebounceMS:     1000,
		SuggestionProvider: SuggesterResearchAPI,
		GeminiModel:        "gemini-1.5-flash",
		LogLevel:           "info",
		EnableCORS:         true,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.PersistenceBackend = getEnv("PERSISTENCE_BACKEND", cfg.PersistenceBackend)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.DynamoDBTable = getEnv("TABLE_NAME", cfg.DynamoDBTable)
	cfg.ResearchAPIBaseURL = getEnv("RESEARCH_API_BASE_URL", cfg.ResearchAPIBaseURL)
	cfg.ResearchAPITimeout = getEnvInt("RESEARCH_API_TIMEOUT_MS", cfg.ResearchAPITimeout)
	cfg.EnableEventBridge = getEnvBool("ENABLE_EVENTBRIDGE", cfg.EnableEventBridge)
	cfg.EventBusName = getEnv("EVENT_BUS_NAME", cfg.EventBusName)
	cfg.SaveDebounceMS = getEnvInt("SAVE_DEBOUNCE_MS", cfg.SaveDebounceMS)
	cfg.SuggestionProvider = getEnv("SUGGESTION_PROVIDER", cfg.SuggestionProvider)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)
	cfg.IsLambda = getEnvBool("IS_LAMBDA", cfg.IsLambda)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.PersistenceBackend == BackendResearchAPI && c.ResearchAPIBaseURL == "" {
		return fmt.Errorf("RESEARCH_API_BASE_URL is required with the researchapi backend")
	}
	if c.SuggestionProvider == SuggesterGemini && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required with the gemini suggestion provider")
	}
	if c.SuggestionProvider == SuggesterResearchAPI && c.ResearchAPIBaseURL == "" {
		return fmt.Errorf("RESEARCH_API_BASE_URL is required with the researchapi suggestion provider")
	}
	return nil
}

// DebounceWindow returns the persistence debounce delay.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.SaveDebounceMS) * time.Millisecond
}

// ResearchAPITimeoutDuration returns the research API request timeout.
func (c *Config) ResearchAPITimeoutDuration() time.Duration {
	return time.Duration(c.ResearchAPITimeout) * time.Millisecond
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
