// Package config loads editor host settings from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	theme "github.com/goliatone/go-theme"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formedit/pkg/schema"
)

// ErrUnsupportedFormat is returned for files that are neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// File is the on-disk configuration.
type File struct {
	Editor Editor `toml:"editor" yaml:"editor"`
	Theme  Theme  `toml:"theme" yaml:"theme"`
	Upload Upload `toml:"upload" yaml:"upload"`
	State  State  `toml:"state" yaml:"state"`
}

// Editor holds global option defaults. Unset switches stay nil so schema and
// instance options can still decide.
type Editor struct {
	Collapsed             *bool `toml:"collapsed" yaml:"collapsed"`
	DisableCollapse       *bool `toml:"disable_collapse" yaml:"disable_collapse"`
	RemoveEmptyProperties *bool `toml:"remove_empty_properties" yaml:"remove_empty_properties"`
	TableRow              *bool `toml:"table_row" yaml:"table_row"`
	RequiredByDefault     *bool `toml:"required_by_default" yaml:"required_by_default"`
	GridColumns           int   `toml:"grid_columns" yaml:"grid_columns"`
}

// Theme selects a go-theme name plus token and CSS variable overrides.
type Theme struct {
	Name    string            `toml:"name" yaml:"name"`
	Variant string            `toml:"variant" yaml:"variant"`
	Tokens  map[string]string `toml:"tokens" yaml:"tokens"`
	CSSVars map[string]string `toml:"css_vars" yaml:"css_vars"`
}

// Upload configures the HTTP uploader.
type Upload struct {
	Endpoint  string            `toml:"endpoint" yaml:"endpoint"`
	FileField string            `toml:"file_field" yaml:"file_field"`
	PathField string            `toml:"path_field" yaml:"path_field"`
	Timeout   string            `toml:"timeout" yaml:"timeout"`
	Headers   map[string]string `toml:"headers" yaml:"headers"`
}

// State configures state tokens.
type State struct {
	Key string `toml:"key" yaml:"key"`
}

// Default returns the configuration used when no file is present.
func Default() File {
	return File{
		Upload: Upload{
			FileField: "file",
			PathField: "path",
		},
	}
}

// Load reads path. An empty path or a missing file yields Default.
func Load(path string) (File, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return File{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &cfg)
	default:
		return File{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return File{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

// Validate checks fields that are parsed lazily.
func (f File) Validate() error {
	if _, err := f.Upload.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// Options converts the editor section into global schema options.
func (f File) Options() schema.Options {
	return schema.Options{
		Collapsed:             f.Editor.Collapsed,
		DisableCollapse:       f.Editor.DisableCollapse,
		RemoveEmptyProperties: f.Editor.RemoveEmptyProperties,
		TableRow:              f.Editor.TableRow,
		RequiredByDefault:     f.Editor.RequiredByDefault,
		GridColumns:           f.Editor.GridColumns,
	}
}

// RendererConfig converts the theme section for view.NewTheme. It returns nil
// when the section is empty.
func (f File) RendererConfig() *theme.RendererConfig {
	t := f.Theme
	if t.Name == "" && t.Variant == "" && len(t.Tokens) == 0 && len(t.CSSVars) == 0 {
		return nil
	}
	return &theme.RendererConfig{
		Theme:   t.Name,
		Variant: t.Variant,
		Tokens:  t.Tokens,
		CSSVars: t.CSSVars,
	}
}

// TimeoutDuration parses the upload timeout; empty means no timeout.
func (u Upload) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(u.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(u.Timeout))
	if err != nil {
		return 0, fmt.Errorf("config: upload timeout: %w", err)
	}
	return d, nil
}
