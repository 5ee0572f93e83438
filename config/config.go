// Package config loads the YAML configuration shared by the client commands
// and the node.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/govm-net/counter/core"
	"gopkg.in/yaml.v3"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("coins", func(fl validator.FieldLevel) bool {
		_, err := core.ToNano(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register coins validation: %v", err))
	}
	return v
}

type Config struct {
	LogLevel string       `yaml:"logLevel" validate:"oneof=debug info warn error"`
	Client   ClientConfig `yaml:"client"`
	Node     NodeConfig   `yaml:"node"`
}

// ClientConfig drives the deploy and increment commands
type ClientConfig struct {
	Endpoint       string        `yaml:"endpoint" validate:"required,url"`
	Sender         string        `yaml:"sender" validate:"required"`
	Value          string        `yaml:"value" validate:"required,coins"`
	PollInterval   time.Duration `yaml:"pollInterval" validate:"gt=0"`
	MaxAttempts    int           `yaml:"maxAttempts" validate:"gte=0"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	DeployAttempts int           `yaml:"deployAttempts" validate:"gt=0"`
	Workchain      int8          `yaml:"workchain"`
	DeploymentsDir string        `yaml:"deploymentsDir" validate:"required"`
	// MetricsFile receives the client metrics in the Prometheus text format
	// after deploy and increment. Empty disables it.
	MetricsFile string `yaml:"metricsFile"`
}

// NodeConfig drives the node command
type NodeConfig struct {
	Listen          string        `yaml:"listen" validate:"required,hostname_port"`
	BlockInterval   time.Duration `yaml:"blockInterval" validate:"gt=0"`
	Store           string        `yaml:"store" validate:"oneof=memory db"`
	DBPath          string        `yaml:"dbPath" validate:"required_if=Store db"`
	AutoSeal        bool          `yaml:"autoSeal"`
	TreasuryBalance string        `yaml:"treasuryBalance" validate:"required,coins"`
	Workchain       int8          `yaml:"workchain"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Client: ClientConfig{
			Endpoint:       "http://127.0.0.1:8545",
			Sender:         "deployer",
			Value:          "0.05",
			PollInterval:   2 * time.Second,
			DeployAttempts: 30,
			DeploymentsDir: "./deployments",
		},
		Node: NodeConfig{
			Listen:          "127.0.0.1:8545",
			BlockInterval:   time.Second,
			Store:           "memory",
			DBPath:          "./counter.db",
			TreasuryBalance: "1000000",
			AllowedOrigins:  []string{"*"},
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		return fmt.Errorf("%w: %s failed %q", core.ErrInvalidConfig, f.Namespace(), f.Tag())
	}
	return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
}

// Coins returns the value attached to client messages
func (c *ClientConfig) Coins() (core.Coins, error) {
	return core.ToNano(c.Value)
}

// Balance returns the initial balance of new treasuries
func (c *NodeConfig) Balance() (core.Coins, error) {
	return core.ToNano(c.TreasuryBalance)
}
