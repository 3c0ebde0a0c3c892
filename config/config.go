/*
config.go - Application configuration

PURPOSE:
  Loads server configuration from an optional YAML file with environment
  variable overrides, via configor. Flags in main.go can override the
  loaded values for local runs.

PRECEDENCE (lowest to highest):
  1. Struct defaults
  2. config.yml (when present)
  3. Environment variables
  4. Command-line flags (applied in main.go)

EXAMPLES:
  APP_PORT=3000 ./server
  ./server -db=":memory:"

SEE ALSO:
  - cmd/server/main.go: Applies flag overrides on top of this
*/
package config

import (
	"os"

	"github.com/gotify/configor"
)

// Config is the full server configuration.
type Config struct {
	App struct {
		ListenAddr string `default:"" env:"APP_HOST"`
		Port       int    `default:"8080" env:"APP_PORT"`
	}
	Database struct {
		// Path is the SQLite database path. ":memory:" for in-memory.
		Path string `default:"leave.db" env:"DB_PATH"`
	}
	Log struct {
		// Level is a zap level name: debug, info, warn, error.
		Level string `default:"info" env:"LOG_LEVEL"`
	}
}

// Load reads configuration from the given file (skipped when absent),
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	loader := configor.New(&configor.Config{})

	var files []string
	if _, err := os.Stat(path); err == nil {
		files = append(files, path)
	}
	if err := loader.Load(cfg, files...); err != nil {
		return nil, err
	}
	return cfg, nil
}
