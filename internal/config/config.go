package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingField is returned when a required setting is empty
var ErrMissingField = errors.New("required field is missing or empty")

const (
	KeyData                 = "PINDB_DATA"
	KeyOutputDir            = "PINDB_OUTPUT_DIR"
	KeyDatasetVersion       = "PINDB_DATASET_VERSION"
	KeyExpectedRecords      = "PINDB_EXPECTED_RECORDS"
	KeyExpectedManufacturer = "PINDB_EXPECTED_MANUFACTURERS"
	KeyUnitTolerance        = "PINDB_UNIT_TOLERANCE"
	KeyQualityThreshold     = "PINDB_QUALITY_THRESHOLD"
	KeyPDFRows              = "PINDB_PDF_ROWS"
	KeyArrowBatchSize       = "PINDB_ARROW_BATCH_SIZE"
	KeyLogLevel             = "PINDB_LOG_LEVEL"
	KeyLogFormat            = "PINDB_LOG_FORMAT"
	KeyLogOutput            = "PINDB_LOG_OUTPUT"

	KeyS3Endpoint        = "PINDB_S3_ENDPOINT"
	KeyS3Region          = "PINDB_S3_REGION"
	KeyS3AccessKeyID     = "PINDB_S3_ACCESS_KEY_ID"
	KeyS3SecretAccessKey = "PINDB_S3_SECRET_ACCESS_KEY"
	KeyS3UseSSL          = "PINDB_S3_USE_SSL"

	KeyPostgresHost             = "PINDB_POSTGRES_HOST"
	KeyPostgresPort             = "PINDB_POSTGRES_PORT"
	KeyPostgresDatabase         = "PINDB_POSTGRES_DATABASE"
	KeyPostgresUsername         = "PINDB_POSTGRES_USERNAME"
	KeyPostgresPassword         = "PINDB_POSTGRES_PASSWORD"
	KeyPostgresSSLMode          = "PINDB_POSTGRES_SSLMODE"
	KeyPostgresSchema           = "PINDB_POSTGRES_SCHEMA"
	KeyPostgresTable            = "PINDB_POSTGRES_TABLE"
	KeyPostgresConnectTimeout   = "PINDB_POSTGRES_CONNECT_TIMEOUT"
	KeyPostgresStatementTimeout = "PINDB_POSTGRES_STATEMENT_TIMEOUT"
)

var envVars = []string{
	KeyData,
	KeyOutputDir,
	KeyDatasetVersion,
	KeyExpectedRecords,
	KeyExpectedManufacturer,
	KeyUnitTolerance,
	KeyQualityThreshold,
	KeyPDFRows,
	KeyArrowBatchSize,
	KeyLogLevel,
	KeyLogFormat,
	KeyLogOutput,
	KeyS3Endpoint,
	KeyS3Region,
	KeyS3AccessKeyID,
	KeyS3SecretAccessKey,
	KeyS3UseSSL,
	KeyPostgresHost,
	KeyPostgresPort,
	KeyPostgresDatabase,
	KeyPostgresUsername,
	KeyPostgresPassword,
	KeyPostgresSSLMode,
	KeyPostgresSchema,
	KeyPostgresTable,
	KeyPostgresConnectTimeout,
	KeyPostgresStatementTimeout,
}

type Config struct {
	values map[string]string
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads a YAML file of KEY: value pairs, then applies the environment on top.
// An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{
		values: make(map[string]string),
	}

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for key, value := range raw {
		if value == nil {
			continue
		}
		c.values[strings.ToUpper(key)] = fmt.Sprint(value)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			c.values[envVar] = value
		}
	}
}

// Set overrides a value, typically from a command-line flag
func (c *Config) Set(key, value string) {
	if value == "" {
		return
	}
	c.values[key] = value
}

func (c *Config) GetString(key, defaultValue string) string {
	if value, exists := c.values[key]; exists {
		return value
	}
	return defaultValue
}

func (c *Config) GetInt(key string, defaultValue int) int {
	if value, exists := c.values[key]; exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) GetFloat(key string, defaultValue float64) float64 {
	if value, exists := c.values[key]; exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func (c *Config) GetBool(key string, defaultValue bool) bool {
	if value, exists := c.values[key]; exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (c *Config) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := c.values[key]; exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// S3Config holds the object storage settings
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// HasStaticCredentials reports whether both access keys are set
func (s S3Config) HasStaticCredentials() bool {
	return s.AccessKeyID != "" && s.SecretAccessKey != ""
}

func (c *Config) GetS3Config() S3Config {
	return S3Config{
		Endpoint:        c.GetString(KeyS3Endpoint, ""),
		Region:          c.GetString(KeyS3Region, "us-east-1"),
		AccessKeyID:     c.GetString(KeyS3AccessKeyID, ""),
		SecretAccessKey: c.GetString(KeyS3SecretAccessKey, ""),
		UseSSL:          c.GetBool(KeyS3UseSSL, true),
	}
}

// PostgresConfig holds the connection and target table settings
type PostgresConfig struct {
	Host             string
	Port             int
	Database         string
	Username         string
	Password         string
	SSLMode          string
	Schema           string
	Table            string
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

func (c *Config) GetPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:             c.GetString(KeyPostgresHost, "localhost"),
		Port:             c.GetInt(KeyPostgresPort, 5432),
		Database:         c.GetString(KeyPostgresDatabase, ""),
		Username:         c.GetString(KeyPostgresUsername, ""),
		Password:         c.GetString(KeyPostgresPassword, ""),
		SSLMode:          c.GetString(KeyPostgresSSLMode, "prefer"),
		Schema:           c.GetString(KeyPostgresSchema, "public"),
		Table:            c.GetString(KeyPostgresTable, "excavators"),
		ConnectTimeout:   c.GetDuration(KeyPostgresConnectTimeout, 30*time.Second),
		StatementTimeout: c.GetDuration(KeyPostgresStatementTimeout, 300*time.Second),
	}
}

// ValidatePostgresConfig checks that the fields needed to connect are present
func ValidatePostgresConfig(config PostgresConfig) error {
	required := []struct {
		field string
		set   bool
	}{
		{"host", config.Host != ""},
		{"port", config.Port > 0},
		{"database", config.Database != ""},
		{"username", config.Username != ""},
	}

	for _, r := range required {
		if !r.set {
			return fmt.Errorf("postgres %s: %w", r.field, ErrMissingField)
		}
	}

	return nil
}
