package restql

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the collaborator-supplied configuration: which engine to
// talk to, how to reach it, and the defaults the orchestrator applies to
// requests that leave them unset.
type Config struct {
	// Dialect is one of the dialect package constants.
	Dialect string `yaml:"dialect"`
	// DSN is the connection string passed to the registered driver.
	DSN string `yaml:"dsn"`
	// DefaultLimit is the page size applied when a find request carries
	// no limit.
	DefaultLimit int `yaml:"default_limit"`
	// SoftDelete names the timestamp column used instead of physical
	// deletes. Empty disables soft deletes.
	SoftDelete string `yaml:"soft_delete"`
	// SlowQueryThreshold enables slow statement logging when positive.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// DefaultLimitFallback is applied when neither configuration nor request
// supplies a page size.
const DefaultLimitFallback = 25

// LoadConfig reads a YAML config file and applies environment overrides.
// A .env file next to the config file is loaded first, if present, so
// deployments can keep the DSN out of the YAML.
//
// Environment overrides: RESTQL_DIALECT, RESTQL_DSN, RESTQL_DEFAULT_LIMIT,
// RESTQL_SOFT_DELETE.
func LoadConfig(path string) (*Config, error) {
	// Missing .env is fine; a malformed one is not.
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("restql: loading %s: %w", envPath, err)
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("restql: reading config: %w", err)
	}
	cfg := &Config{DefaultLimit: DefaultLimitFallback}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("restql: parsing config: %w", err)
	}
	cfg.applyEnv()
	if cfg.Dialect == "" {
		return nil, fmt.Errorf("restql: config %s has no dialect", path)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("RESTQL_DIALECT"); v != "" {
		c.Dialect = v
	}
	if v := os.Getenv("RESTQL_DSN"); v != "" {
		c.DSN = v
	}
	if v := os.Getenv("RESTQL_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.DefaultLimit = n
		}
	}
	if v := os.Getenv("RESTQL_SOFT_DELETE"); v != "" {
		c.SoftDelete = v
	}
}

// WatchConfig watches the config file and invokes onChange with the
// re-loaded configuration every time it is rewritten. It blocks until the
// context is canceled. Reload failures are reported to onError and the
// previous configuration stays in effect.
func WatchConfig(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Watch the directory: editors replace files instead of writing in
	// place, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			evAbs, _ := filepath.Abs(ev.Name)
			if evAbs != abs || !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadConfig(path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
