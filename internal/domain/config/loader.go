package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration at path over the defaults and validates it.
// An empty path returns the validated defaults. The format is chosen by
// extension: .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewConfigNotFoundError(path)
		}
		return nil, &UserError{
			Code:       ErrCodeConfigNotFound,
			Message:    "cannot read configuration file",
			Context:    path,
			Underlying: err,
		}
	}

	if err := Decode(path, data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode decodes data into cfg according to path's extension. Unknown keys
// are rejected so typos do not silently fall back to defaults.
func Decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document leaves the defaults untouched.
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return NewConfigParseError(path, "YAML", err)
		}
		return nil
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return NewConfigParseError(path, "TOML", err)
		}
		return nil
	default:
		return NewUnsupportedFormatError(path)
	}
}
