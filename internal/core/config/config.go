// Package config holds runtime settings for the ruleblocks service and CLI.
package config

import (
	"time"

	"github.com/solatis/ruleblocks/internal/types"
)

// Config is the complete runtime configuration.
type Config struct {
	Engine EngineConfig
	Server ServerConfig
	Store  StoreConfig
}

// EngineConfig bounds compiled rule sets and batch execution.
type EngineConfig struct {
	MaxBlocks int
	MaxDepth  int
	// Workers caps batch parallelism; 0 means GOMAXPROCS.
	Workers int
}

// ServerConfig controls the gRPC validation service.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxBatchSize   int
}

// StoreConfig points at the run history database. An empty URL disables persistence.
type StoreConfig struct {
	DBURL string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxBlocks: types.MaxBlocks,
			MaxDepth:  types.MaxBlockDepth,
			Workers:   0,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			RequestTimeout: 30 * time.Second,
			MaxBatchSize:   1000,
		},
	}
}

// Limits converts the engine section into serializer limits.
func (c *Config) Limits() types.Limits {
	return types.Limits{
		MaxBlocks: c.Engine.MaxBlocks,
		MaxDepth:  c.Engine.MaxDepth,
	}
}
