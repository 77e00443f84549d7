package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration
type Config struct {
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Provider    ProviderConfig `yaml:"provider"`
	Markets     MarketsConfig  `yaml:"markets"`
	Auth        AuthConfig     `yaml:"auth"`
	Environment string         `yaml:"environment"`
}

type ServerConfig struct {
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	Timeout           Duration `yaml:"timeout"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Database       string `yaml:"database"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	SSLMode        string `yaml:"ssl_mode"`
	MaxConnections int    `yaml:"max_connections"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProviderConfig holds settings for the market-data provider. The API key is
// deliberately not validated at load time: a missing key fails the individual
// fetch attempt, not the process.
type ProviderConfig struct {
	BaseURL        string   `yaml:"base_url"`
	APIKey         string   `yaml:"api_key"`
	Timeout        Duration `yaml:"timeout"`
	ScreenerLimit  int      `yaml:"screener_limit"`
	QuoteBatchSize int      `yaml:"quote_batch_size"`
}

type MarketsConfig struct {
	Indexes     []string `yaml:"indexes"`
	Commodities []string `yaml:"commodities"`
	CacheTTL    Duration `yaml:"cache_ttl"`
	RefreshCron string   `yaml:"refresh_cron"`
}

type AuthConfig struct {
	JWTSecret     string   `yaml:"jwt_secret"`
	TokenTTL      Duration `yaml:"token_ttl"`
	ResetTokenTTL Duration `yaml:"reset_token_ttl"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	config := &Config{}

	// Read config file
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	// Parse YAML
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand environment variables
	expandEnvVars(config)

	// Apply defaults
	applyDefaults(config)

	// Validate configuration
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// expandEnvVars expands environment variables in string fields
func expandEnvVars(config *Config) {
	config.Provider.APIKey = os.ExpandEnv(config.Provider.APIKey)
	config.Database.Postgres.Password = os.ExpandEnv(config.Database.Postgres.Password)
	config.Database.Redis.Password = os.ExpandEnv(config.Database.Redis.Password)
	config.Auth.JWTSecret = os.ExpandEnv(config.Auth.JWTSecret)
}

func applyDefaults(config *Config) {
	if config.Server.Timeout == 0 {
		config.Server.Timeout = Duration(30 * time.Second)
	}
	if config.Server.RequestsPerMinute == 0 {
		config.Server.RequestsPerMinute = 100
	}
	if config.Provider.BaseURL == "" {
		config.Provider.BaseURL = "https://financialmodelingprep.com/api/v3"
	}
	if config.Provider.Timeout == 0 {
		config.Provider.Timeout = Duration(30 * time.Second)
	}
	if config.Provider.ScreenerLimit == 0 {
		config.Provider.ScreenerLimit = 1000
	}
	if config.Provider.QuoteBatchSize == 0 {
		config.Provider.QuoteBatchSize = 150
	}
	if len(config.Markets.Indexes) == 0 {
		config.Markets.Indexes = []string{"^GSPC", "^DJI", "^IXIC", "^RUT"}
	}
	if len(config.Markets.Commodities) == 0 {
		config.Markets.Commodities = []string{"GCUSD", "SIUSD", "CLUSD", "NGUSD"}
	}
	if config.Markets.CacheTTL == 0 {
		config.Markets.CacheTTL = Duration(5 * time.Minute)
	}
	if config.Markets.RefreshCron == "" {
		config.Markets.RefreshCron = "*/5 * * * *"
	}
	if config.Auth.TokenTTL == 0 {
		config.Auth.TokenTTL = Duration(24 * time.Hour)
	}
	if config.Auth.ResetTokenTTL == 0 {
		config.Auth.ResetTokenTTL = Duration(time.Hour)
	}
}

// validate ensures the configuration is valid
func validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Postgres.Host == "" {
		return fmt.Errorf("postgres host is required")
	}

	if config.Database.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required")
	}

	return nil
}
