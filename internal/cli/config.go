package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds CLI configuration.
// Precedence: flags, then WORLDCTL_* env, then the config file, then defaults.
type Config struct {
	ServerURL string `mapstructure:"server"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token_file"`
	NATSURL   string `mapstructure:"nats"`
	Output    string `mapstructure:"output"`
	Verbose   bool   `mapstructure:"verbose"`

	// loadErr is reported once a command runs so --help still works with a broken file
	loadErr error
}

// DefaultConfig returns defaults layered with ~/.worldctl/config.yaml
// (or $WORLDCTL_CONFIG) and WORLDCTL_* environment variables
func DefaultConfig() *Config {
	v := viper.New()
	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("token", "")
	v.SetDefault("token_file", filepath.Join(configDir(), "token"))
	v.SetDefault("nats", "nats://localhost:4222")
	v.SetDefault("output", "text")
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("WORLDCTL")
	v.AutomaticEnv()

	cfg := &Config{}
	configFile := os.Getenv("WORLDCTL_CONFIG")
	if configFile == "" {
		configFile = filepath.Join(configDir(), "config.yaml")
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		cfg.loadErr = fmt.Errorf("read %s: %w", configFile, err)
	}

	if err := v.Unmarshal(cfg); err != nil && cfg.loadErr == nil {
		cfg.loadErr = fmt.Errorf("decode %s: %w", configFile, err)
	}
	return cfg
}

// Err reports a config file that could not be loaded
func (c *Config) Err() error {
	return c.loadErr
}

// LoadToken loads the token from file if not already set
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No token file is fine
		}
		return err
	}

	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken saves the token to the token file
func (c *Config) SaveToken(token string) error {
	c.Token = token

	dir := filepath.Dir(c.TokenFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.TokenFile, []byte(token), 0600)
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".worldctl"
	}
	return filepath.Join(home, ".worldctl")
}
