// Package config resolves the request configuration from environment
// variables and CLI flags. Flags, when set, override the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// DefaultHost is the API host used when REQUEST_HOST is not set.
	DefaultHost = "api.cdp.coinbase.com"
	// DefaultMethod is the HTTP method used when REQUEST_METHOD is not set.
	DefaultMethod = "GET"
	// DefaultTimeoutSeconds bounds the request well inside the 120s token
	// validity window.
	DefaultTimeoutSeconds = 100
)

// Config holds everything one invocation needs. It is created once per
// process and threaded explicitly through the pipeline; there is no global
// configuration state.
type Config struct {
	KeyID     string `mapstructure:"key_id"`
	KeySecret string `mapstructure:"key_secret"`
	Method    string `mapstructure:"method"`
	Path      string `mapstructure:"path"`
	Host      string `mapstructure:"host"`

	Data           string `mapstructure:"data"`
	Output         string `mapstructure:"output"`
	TimeoutSeconds int    `mapstructure:"timeout"`
	Verbose        bool   `mapstructure:"verbose"`
}

// Timeout returns the request deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MissingError reports every required field that is absent, named by its
// environment variable, so a single run surfaces the full list at once.
type MissingError struct {
	Fields []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Fields, ", "))
}

// InitViper initializes Viper with env bindings and defaults.
func InitViper() *viper.Viper {
	v := viper.New()

	v.BindEnv("key_id", "KEY_ID")
	v.BindEnv("key_secret", "KEY_SECRET")
	v.BindEnv("method", "REQUEST_METHOD")
	v.BindEnv("path", "REQUEST_PATH")
	v.BindEnv("host", "REQUEST_HOST")

	v.SetDefault("method", DefaultMethod)
	v.SetDefault("host", DefaultHost)
	v.SetDefault("timeout", DefaultTimeoutSeconds)

	return v
}

// BindFlags binds the CLI flags to Viper. A flag left at its default does not
// mask a value from the environment.
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().String("key-id", "", "API key ID (env KEY_ID)")
	cmd.Flags().String("key-secret", "", "API key secret, raw or base64-wrapped PEM (env KEY_SECRET)")
	cmd.Flags().String("method", "", "HTTP method (env REQUEST_METHOD, default GET)")
	cmd.Flags().String("path", "", "Request path, e.g. /platform/v2/evm/networks (env REQUEST_PATH)")
	cmd.Flags().String("host", "", "API host (env REQUEST_HOST, default "+DefaultHost+")")
	cmd.Flags().StringP("data", "d", "", "Request body")
	cmd.Flags().StringP("output", "o", "", "Write the response body to a file instead of stdout")
	cmd.Flags().Int("timeout", DefaultTimeoutSeconds, "Request timeout in seconds")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")

	v.BindPFlag("key_id", cmd.Flags().Lookup("key-id"))
	v.BindPFlag("key_secret", cmd.Flags().Lookup("key-secret"))
	v.BindPFlag("method", cmd.Flags().Lookup("method"))
	v.BindPFlag("path", cmd.Flags().Lookup("path"))
	v.BindPFlag("host", cmd.Flags().Lookup("host"))
	v.BindPFlag("data", cmd.Flags().Lookup("data"))
	v.BindPFlag("output", cmd.Flags().Lookup("output"))
	v.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))
	v.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
}

// Load builds and validates the configuration record for this invocation.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Method == "" {
		cfg.Method = DefaultMethod
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}

	// Only non-emptiness is checked: key IDs and paths are passed through as
	// given, the server is the authority on their shape.
	var missing []string
	if cfg.KeyID == "" {
		missing = append(missing, "KEY_ID")
	}
	if cfg.KeySecret == "" {
		missing = append(missing, "KEY_SECRET")
	}
	if cfg.Path == "" {
		missing = append(missing, "REQUEST_PATH")
	}
	if len(missing) > 0 {
		return nil, &MissingError{Fields: missing}
	}

	return &cfg, nil
}
