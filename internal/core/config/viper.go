package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("engine.max_blocks", def.Engine.MaxBlocks)
	v.SetDefault("engine.max_depth", def.Engine.MaxDepth)
	v.SetDefault("engine.workers", def.Engine.Workers)
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.request_timeout", def.Server.RequestTimeout.String())
	v.SetDefault("server.max_batch_size", def.Server.MaxBatchSize)
	v.SetDefault("store.db_url", "")

	// Bind environment variables with RB_ prefix
	v.SetEnvPrefix("RB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Database credentials must come from the environment, never from files
	if err := validateNoCredentialsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Engine: EngineConfig{
			MaxBlocks: v.GetInt("engine.max_blocks"),
			MaxDepth:  v.GetInt("engine.max_depth"),
			Workers:   v.GetInt("engine.workers"),
		},
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxBatchSize:   v.GetInt("server.max_batch_size"),
		},
		Store: StoreConfig{
			DBURL: v.GetString("store.db_url"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive engine and server bounds.
func validateConfig(cfg *Config) error {
	if cfg.Engine.MaxBlocks <= 0 {
		return fmt.Errorf("max_blocks must be positive, got %d", cfg.Engine.MaxBlocks)
	}
	if cfg.Engine.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", cfg.Engine.MaxDepth)
	}
	if cfg.Engine.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", cfg.Engine.Workers)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.Server.MaxBatchSize)
	}
	return nil
}

// validateNoCredentialsInConfig rejects a database URL with a password in the config file.
// The file is re-read without environment binding so RB_STORE_DB_URL stays allowed.
func validateNoCredentialsInConfig(v *viper.Viper) error {
	if !v.InConfig("store.db_url") {
		return nil
	}
	fileOnly := viper.New()
	fileOnly.SetConfigFile(v.ConfigFileUsed())
	if err := fileOnly.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return checkNoPassword(fileOnly.GetString("store.db_url"))
}

func checkNoPassword(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid store.db_url: %w", err)
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return fmt.Errorf("database passwords not allowed in config files (use RB_STORE_DB_URL environment variable)")
	}
	return nil
}
