package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"http_server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	SAP        SAPConfig        `mapstructure:"sap"`
	Queue      QueueConfig      `mapstructure:"queue"`
	MasterData MasterDataConfig `mapstructure:"masterdata"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

// SAPConfig selects and parameterizes the SAP backend. Type is one of
// ECC, S4_ONPREM or S4_CLOUD; basic-auth fields drive the on-premise
// variants, the oauth fields drive S4_CLOUD.
type SAPConfig struct {
	Type              string        `mapstructure:"type"`
	BaseURL           string        `mapstructure:"base_url"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	OAuthTokenURL     string        `mapstructure:"oauth_token_url"`
	OAuthClientID     string        `mapstructure:"oauth_client_id"`
	OAuthClientSecret string        `mapstructure:"oauth_client_secret"`
	CompanyCode       string        `mapstructure:"company_code"`
	ExpensePath       string        `mapstructure:"expense_path"`
	DefaultTaxRate    float64       `mapstructure:"default_tax_rate"`
	MaxRetries        int           `mapstructure:"max_retries"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type QueueConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BatchSize     int           `mapstructure:"batch_size"`
}

type MasterDataConfig struct {
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- DEFAULTS -----------------

func (c *SAPConfig) ApplyDefaults() {
	if c.Type == "" {
		c.Type = "ECC"
	}
	if c.CompanyCode == "" {
		c.CompanyCode = "1000"
	}
	if c.ExpensePath == "" {
		c.ExpensePath = "/Z_EXP_POST_SRV/ExpenseSet"
	}
	if c.DefaultTaxRate <= 0 {
		c.DefaultTaxRate = 0.18
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

func (c *QueueConfig) ApplyDefaults() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
}

func (c *MasterDataConfig) ApplyDefaults() {
	if c.SyncInterval <= 0 {
		c.SyncInterval = 24 * time.Hour
	}
}

func (c *Config) ApplyDefaults() {
	c.SAP.ApplyDefaults()
	c.Queue.ApplyDefaults()
	c.MasterData.ApplyDefaults()
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds the configuration from environment variables,
// used for Docker/production deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:           getEnv("SERVER_BASE_URL", ""),
			ReadHeaderTimeout: getEnvAsDuration("SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DB_SOURCE", ""),
		},
		SAP: SAPConfig{
			Type:              getEnv("SAP_TYPE", "ECC"),
			BaseURL:           getEnv("SAP_BASE_URL", ""),
			Username:          getEnv("SAP_USERNAME", ""),
			Password:          getEnv("SAP_PASSWORD", ""),
			OAuthTokenURL:     getEnv("SAP_OAUTH_TOKEN_URL", ""),
			OAuthClientID:     getEnv("SAP_OAUTH_CLIENT_ID", ""),
			OAuthClientSecret: getEnv("SAP_OAUTH_CLIENT_SECRET", ""),
			CompanyCode:       getEnv("SAP_COMPANY_CODE", "1000"),
			ExpensePath:       getEnv("SAP_EXPENSE_PATH", "/Z_EXP_POST_SRV/ExpenseSet"),
			MaxRetries:        getEnvAsInt("SAP_MAX_RETRIES", 3),
			Timeout:           getEnvAsDuration("SAP_TIMEOUT", 30*time.Second),
		},
		Queue: QueueConfig{
			SweepInterval: getEnvAsDuration("QUEUE_SWEEP_INTERVAL", 5*time.Minute),
			MaxAttempts:   getEnvAsInt("QUEUE_MAX_ATTEMPTS", 3),
			BatchSize:     getEnvAsInt("QUEUE_BATCH_SIZE", 10),
		},
		MasterData: MasterDataConfig{
			SyncInterval: getEnvAsDuration("MASTERDATA_SYNC_INTERVAL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if v := os.Getenv("SAP_DEFAULT_TAX_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SAP.DefaultTaxRate = f
		}
	}

	cfg.ApplyDefaults()
	return cfg
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.SAP.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("sap config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SAPConfig) Validate() error {
	switch strings.ToUpper(c.Type) {
	case "", "ECC", "S4_ONPREM", "S4_CLOUD":
	default:
		return fmt.Errorf("unknown sap type %q", c.Type)
	}
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid sap base_url %s: %w", c.BaseURL, err)
		}
	}
	if strings.ToUpper(c.Type) == "S4_CLOUD" && c.OAuthTokenURL == "" {
		return errors.New("oauth_token_url is required for S4_CLOUD")
	}
	if c.DefaultTaxRate < 0 || c.DefaultTaxRate >= 1 {
		return errors.New("default_tax_rate must be in [0, 1)")
	}
	return nil
}
