package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the project config file discovered from the working directory upward.
const ConfigFileName = "p4ir.toml"

// Config is the optional p4ir.toml project configuration.
type Config struct {
	Path string `toml:"-"`

	Build BuildConfig `toml:"build"`
	Store StoreConfig `toml:"store"`
	Log   LogConfig   `toml:"log"`
}

type BuildConfig struct {
	Arch   string `toml:"arch"`
	Format string `toml:"format"`
}

type StoreConfig struct {
	// Path is the build history database. Relative paths are resolved against
	// the config file's directory. Empty disables recording.
	Path string `toml:"path"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// FindConfig walks up from startDir looking for p4ir.toml.
func FindConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadConfig decodes a config file. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Build.Format != "" && !isValidFormat(cfg.Build.Format) {
		return nil, fmt.Errorf("%s: [build].format must be one of %v", path, ValidFormats)
	}
	if cfg.Log.Level != "" {
		if _, err := parseLogLevel(cfg.Log.Level); err != nil {
			return nil, fmt.Errorf("%s: [log].level: %w", path, err)
		}
	}
	if cfg.Store.Path != "" && cfg.Store.Path != ":memory:" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(filepath.Dir(path), cfg.Store.Path)
	}
	cfg.Path = path
	return &cfg, nil
}

// resolveConfig loads the explicit config path, or the discovered one. A missing
// discovered file yields an empty config.
func resolveConfig(explicit string) (*Config, error) {
	if explicit != "" {
		return LoadConfig(explicit)
	}
	path, ok, err := FindConfig(".")
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Config{}, nil
	}
	return LoadConfig(path)
}
