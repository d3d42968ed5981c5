package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Snapshot persistence
	SnapshotBackend string `yaml:"snapshot_backend"` // memory or dynamodb
	AWSRegion       string `yaml:"aws_region"`
	DynamoDBTable   string `yaml:"dynamodb_table"`
	WorkspaceID     string `yaml:"workspace_id"`

	// Completion provider
	CompletionBackend string `yaml:"completion_backend"` // openai or stub
	OpenAIAPIKey      string `yaml:"openai_api_key"`
	OpenAIModel       string `yaml:"openai_model"`
	OpenAIBaseURL     string `yaml:"openai_base_url"`

	// Authentication
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Rate limiting
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// Logging and features
	LogLevel   string `yaml:"log_level"`
	EnableCORS bool   `yaml:"enable_cors"`
	EnableAuth bool   `yaml:"enable_auth"`

	// Overlay file, re-read on change when set
	OverlayPath string `yaml:"-"`
}

// LoadConfig loads configuration from environment variables, then
// overlays values from the YAML file named by CONFIG_FILE if present.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		SnapshotBackend: getEnv("SNAPSHOT_BACKEND", "memory"),
		AWSRegion:       getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:   getEnv("DYNAMODB_TABLE", "loom-trees"),
		WorkspaceID:     getEnv("WORKSPACE_ID", "default"),

		CompletionBackend: getEnv("COMPLETION_BACKEND", "stub"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "loom-backend"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		EnableCORS: getEnvBool("ENABLE_CORS", true),
		EnableAuth: getEnvBool("ENABLE_AUTH", false),

		OverlayPath: getEnv("CONFIG_FILE", ""),
	}

	if cfg.OverlayPath != "" {
		if err := cfg.ApplyOverlay(cfg.OverlayPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverlay merges values from a YAML file over the current config.
// Zero values in the file leave the existing setting untouched.
func (c *Config) ApplyOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config overlay %s: %w", path, err)
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing config overlay %s: %w", path, err)
	}
	c.merge(&overlay)
	return nil
}

func (c *Config) merge(o *Config) {
	if o.ServerAddress != "" {
		c.ServerAddress = o.ServerAddress
	}
	if o.Environment != "" {
		c.Environment = o.Environment
	}
	if o.SnapshotBackend != "" {
		c.SnapshotBackend = o.SnapshotBackend
	}
	if o.AWSRegion != "" {
		c.AWSRegion = o.AWSRegion
	}
	if o.DynamoDBTable != "" {
		c.DynamoDBTable = o.DynamoDBTable
	}
	if o.WorkspaceID != "" {
		c.WorkspaceID = o.WorkspaceID
	}
	if o.CompletionBackend != "" {
		c.CompletionBackend = o.CompletionBackend
	}
	if o.OpenAIAPIKey != "" {
		c.OpenAIAPIKey = o.OpenAIAPIKey
	}
	if o.OpenAIModel != "" {
		c.OpenAIModel = o.OpenAIModel
	}
	if o.OpenAIBaseURL != "" {
		c.OpenAIBaseURL = o.OpenAIBaseURL
	}
	if o.JWTSecret != "" {
		c.JWTSecret = o.JWTSecret
	}
	if o.JWTIssuer != "" {
		c.JWTIssuer = o.JWTIssuer
	}
	if o.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = o.RateLimitPerMinute
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.EnableAuth && c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production when auth is enabled")
		}
		if c.SnapshotBackend == "dynamodb" && c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb snapshot backend")
		}
	}
	if c.CompletionBackend == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the openai completion backend")
	}
	switch c.SnapshotBackend {
	case "memory", "dynamodb":
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.SnapshotBackend)
	}
	return nil
}

// IsDevelopment returns true when running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
