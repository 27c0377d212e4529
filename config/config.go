package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Flow          FlowConfig
	RAG           RAGConfig
	AuditDatabase *AuditDatabaseConfig // Optional: when nil, interactions are logged but not persisted
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// FlowConfig holds the Flow API connection and credential settings
type FlowConfig struct {
	BaseURL      string
	Tenant       string
	ClientID     string
	ClientSecret string
	AppToAccess  string
	AgentName    string
	Timeout      time.Duration
}

// RAGConfig holds the document corpus and retrieval settings
type RAGConfig struct {
	DocumentsPath      string
	SupportedFileTypes []string
	RecurseFolders     bool
	TopKDocuments      int
	EmbeddingDimension int
}

// AuditDatabaseConfig holds PostgreSQL settings for the chat audit log.
// When ConnectionString (from DATABASE_URL_AUDIT) is set, it takes
// precedence over individual fields.
type AuditDatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// fileConfig mirrors the optional YAML config file layout. Its client
// and rag sections seed FlowConfig and RAGConfig; environment variables
// override whatever the file provides.
type fileConfig struct {
	Client struct {
		BaseURL      string `yaml:"base_url"`
		Tenant       string `yaml:"tenant"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		AppToAccess  string `yaml:"app_to_access"`
		AgentName    string `yaml:"agent_name"`
	} `yaml:"client"`
	RAG struct {
		DocumentsPath      string   `yaml:"documents_path"`
		SupportedFileTypes []string `yaml:"supported_file_types"`
		RecurseFolders     bool     `yaml:"recurse_folders"`
		TopKDocuments      int      `yaml:"top_k_documents"`
		EmbeddingDimension int      `yaml:"embedding_dimension"`
	} `yaml:"rag"`
}

// New creates a new Config instance from the optional YAML config file
// plus environment variables. Environment variables win.
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	file, err := loadFileConfig(getEnv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8000),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Flow: FlowConfig{
			BaseURL:      getEnv("FLOW_BASE_URL", withDefault(file.Client.BaseURL, "https://flow.ciandt.com")),
			Tenant:       getEnv("FLOW_TENANT", file.Client.Tenant),
			ClientID:     getEnv("FLOW_CLIENT_ID", file.Client.ClientID),
			ClientSecret: getEnv("FLOW_CLIENT_SECRET", file.Client.ClientSecret),
			AppToAccess:  getEnv("FLOW_APP_TO_ACCESS", withDefault(file.Client.AppToAccess, "llm-api")),
			AgentName:    getEnv("FLOW_AGENT_NAME", withDefault(file.Client.AgentName, "llm-chatbot-rag")),
			Timeout:      getEnvAsDuration("FLOW_TIMEOUT", 30*time.Second),
		},
		RAG: RAGConfig{
			DocumentsPath:      getEnv("RAG_DOCUMENTS_PATH", withDefault(file.RAG.DocumentsPath, "documents")),
			SupportedFileTypes: getEnvAsSlice("RAG_FILE_TYPES", withDefaultSlice(file.RAG.SupportedFileTypes, []string{".txt", ".pdf", ".md"})),
			RecurseFolders:     getEnvAsBool("RAG_RECURSE_FOLDERS", file.RAG.RecurseFolders),
			TopKDocuments:      getEnvAsInt("RAG_TOP_K_DOCUMENTS", withDefaultInt(file.RAG.TopKDocuments, 3)),
			EmbeddingDimension: getEnvAsInt("RAG_EMBEDDING_DIMENSION", withDefaultInt(file.RAG.EmbeddingDimension, 384)),
		},
		AuditDatabase: loadAuditDatabaseConfig(),
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFileConfig reads the optional YAML config file. A missing file is
// fine; a malformed one is an error.
func loadFileConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Flow.BaseURL == "" {
		return fmt.Errorf("flow base URL is required")
	}
	if c.Flow.Tenant == "" {
		return fmt.Errorf("flow tenant is required")
	}

	if c.IsProduction() {
		if c.Flow.ClientID == "" {
			return fmt.Errorf("flow client ID is required in production")
		}
		if c.Flow.ClientSecret == "" {
			return fmt.Errorf("flow client secret is required in production")
		}
	}

	if c.RAG.DocumentsPath == "" {
		return fmt.Errorf("documents path is required")
	}
	if c.RAG.TopKDocuments <= 0 {
		return fmt.Errorf("top-k documents must be positive")
	}
	if c.RAG.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL_AUDIT) when set; otherwise builds from individual fields.
func (c *AuditDatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *AuditDatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL_AUDIT>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadAuditDatabaseConfig loads the audit DB config from
// DATABASE_URL_AUDIT or AUDIT_DB_* env vars. Returns nil when neither is
// set (audit persistence disabled).
func loadAuditDatabaseConfig() *AuditDatabaseConfig {
	if dbURL := getEnv("DATABASE_URL_AUDIT", ""); dbURL != "" {
		return &AuditDatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("AUDIT_DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvAsInt("AUDIT_DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime:  getEnvAsDuration("AUDIT_DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	if getEnv("AUDIT_DB_HOST", "") == "" {
		return nil
	}
	return &AuditDatabaseConfig{
		Host:            getEnv("AUDIT_DB_HOST", "localhost"),
		Port:            getEnvAsInt("AUDIT_DB_PORT", 5432),
		User:            getEnv("AUDIT_DB_USER", "audit"),
		Password:        getEnv("AUDIT_DB_PASSWORD", ""),
		Database:        getEnv("AUDIT_DB_NAME", "chat_audit"),
		SSLMode:         getEnv("AUDIT_DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("AUDIT_DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("AUDIT_DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("AUDIT_DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

func withDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func withDefaultInt(value, defaultValue int) int {
	if value != 0 {
		return value
	}
	return defaultValue
}

func withDefaultSlice(value, defaultValue []string) []string {
	if len(value) > 0 {
		return value
	}
	return defaultValue
}
