// Package config handles zxdb-adapter configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (ZXDB_*)
//  2. Config file (~/.config/zxdb-adapter/config.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/musher-dev/zxdb-adapter/internal/paths"
)

const (
	// DefaultCommand launches zxdb with its debug adapter server enabled.
	DefaultCommand = "fx debug -- --enable-debug-adapter"
	// DefaultTimeoutMS is how long to wait for the console to accept
	// connections: the 10s fx debug timeout plus buffer time.
	DefaultTimeoutMS = 30000
	// DefaultServerPort is the port the zxdb debug adapter server binds.
	// It mirrors the backend and is not independently configurable.
	DefaultServerPort = 15678
	// DefaultServerHost is the host the readiness probe dials.
	DefaultServerHost = "localhost"
)

// Configuration keys.
const (
	KeyCommand = "console.command"
	KeyTimeout = "console.timeout"
	KeyShell   = "console.shell"
	KeyDebug   = "debug"
)

// KnownKeys lists every key zxdb-adapter reads, sorted.
func KnownKeys() []string {
	keys := []string{KeyCommand, KeyTimeout, KeyShell, KeyDebug}
	sort.Strings(keys)

	return keys
}

// IsKnownKey reports whether key is read by zxdb-adapter.
func IsKnownKey(key string) bool {
	for _, k := range KnownKeys() {
		if k == key {
			return true
		}
	}

	return false
}

// Config holds the zxdb-adapter configuration.
type Config struct {
	v       *viper.Viper
	fileDir string
}

// Load reads configuration from all sources.
func Load() *Config {
	v := viper.New()

	// Set defaults
	v.SetDefault(KeyCommand, DefaultCommand)
	v.SetDefault(KeyTimeout, DefaultTimeoutMS)
	v.SetDefault(KeyShell, "")
	v.SetDefault(KeyDebug, false)

	// Config file location
	configDir, err := paths.ConfigRoot()
	if err == nil {
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("ZXDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found, but warn on other errors)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v, fileDir: configDir}
}

// Get returns a configuration value.
func (c *Config) Get(key string) interface{} {
	return c.v.Get(key)
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns a configuration value as int.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// Set sets a configuration value and persists it.
func (c *Config) Set(key string, value interface{}) error {
	c.v.Set(key, value)

	if c.fileDir == "" {
		return fmt.Errorf("config directory is not resolvable")
	}

	if err := os.MkdirAll(c.fileDir, 0o700); err != nil {
		return err
	}

	return c.v.WriteConfigAs(filepath.Join(c.fileDir, "config.yaml"))
}

// All returns all configuration as a map.
func (c *Config) All() map[string]interface{} {
	return c.v.AllSettings()
}

// Command returns the shell command that starts the zxdb console.
func (c *Config) Command() string {
	if cmd := strings.TrimSpace(c.GetString(KeyCommand)); cmd != "" {
		return cmd
	}

	return DefaultCommand
}

// Timeout returns how long to wait for the console to become ready.
// Non-positive values fall back to the default.
func (c *Config) Timeout() time.Duration {
	ms := c.GetInt(KeyTimeout)
	if ms <= 0 {
		ms = DefaultTimeoutMS
	}

	return time.Duration(ms) * time.Millisecond
}

// Shell returns the interactive shell used to host the console. An empty
// value means $SHELL, falling back to /bin/sh.
func (c *Config) Shell() string {
	if shell := strings.TrimSpace(c.GetString(KeyShell)); shell != "" {
		return shell
	}

	if shell := strings.TrimSpace(os.Getenv("SHELL")); shell != "" {
		return shell
	}

	return "/bin/sh"
}

// Debug reports whether verbose protocol logging is enabled.
func (c *Config) Debug() bool {
	return c.v.GetBool(KeyDebug)
}

// ServerAddress returns the host:port the readiness probe dials.
func ServerAddress() string {
	return fmt.Sprintf("%s:%d", DefaultServerHost, DefaultServerPort)
}
