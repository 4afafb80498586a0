// Package config loads .modtr.yaml configuration files.
//
// Settings are layered: built-in defaults, then the user file in
// $XDG_CONFIG_HOME/modtr/config.yaml, then the project file .modtr.yaml in
// the working directory. Each layer only overrides the keys it sets.
// Command-line flags are applied on top by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/modtr/quality"
	"github.com/minios-linux/modtr/rebuild"
	"github.com/minios-linux/modtr/transcache"
	"github.com/minios-linux/modtr/translate"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the .modtr.yaml structure.
type File struct {
	// SourceLang is the language mods are translated from (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// TargetLang is the language to translate into.
	TargetLang string `yaml:"target_lang,omitempty"`
	// ModsDir is the directory holding mod archives (default: detected).
	ModsDir string `yaml:"mods_dir,omitempty"`
	// OutputDir receives translated mods or the language pack.
	OutputDir string `yaml:"output_dir,omitempty"`
	// Backend: "deepl" or "google".
	Backend string `yaml:"backend,omitempty"`
	// Mode: "mods" or "pack".
	Mode string `yaml:"mode,omitempty"`

	DeepL   DeepL   `yaml:"deepl,omitempty"`
	Google  Google  `yaml:"google,omitempty"`
	Quality Quality `yaml:"quality,omitempty"`
	Pack    Pack    `yaml:"pack,omitempty"`
	Cache   Cache   `yaml:"cache,omitempty"`

	// MaxFailures is the number of failed requests in a row after which the
	// remaining texts are left untranslated.
	MaxFailures int  `yaml:"max_failures,omitempty"`
	Backup      bool `yaml:"backup,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL for both backends.
	Proxy string `yaml:"proxy,omitempty"`

	// Sources lists the files that were loaded, lowest priority first.
	Sources []string `yaml:"-"`
}

// DeepL holds the deepl: section.
type DeepL struct {
	Endpoint   string        `yaml:"endpoint,omitempty"`
	GlossaryID string        `yaml:"glossary_id,omitempty"`
	BatchSize  int           `yaml:"batch_size,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// Google holds the google: section.
type Google struct {
	Endpoint      string        `yaml:"endpoint,omitempty"`
	MaxChunkBytes int           `yaml:"max_chunk_bytes,omitempty"`
	MinDelay      time.Duration `yaml:"min_delay,omitempty"`
	MaxDelay      time.Duration `yaml:"max_delay,omitempty"`
	PerMinute     int           `yaml:"per_minute,omitempty"`
	PerHour       int           `yaml:"per_hour,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
}

// Quality holds the quality: section.
type Quality struct {
	Enabled           bool    `yaml:"enabled"`
	MinIndicatorRatio float64 `yaml:"min_indicator_ratio,omitempty"`
	MaxPenaltyRatio   float64 `yaml:"max_penalty_ratio,omitempty"`
}

// Pack holds the pack: section (language pack info.json fields).
type Pack struct {
	Name            string `yaml:"name,omitempty"`
	Title           string `yaml:"title,omitempty"`
	Author          string `yaml:"author,omitempty"`
	Description     string `yaml:"description,omitempty"`
	FactorioVersion string `yaml:"factorio_version,omitempty"`
}

// Cache holds the cache: section.
type Cache struct {
	// Path of the cache file (default: $XDG_CACHE_HOME/modtr/...).
	Path      string `yaml:"path,omitempty"`
	SaveEvery int    `yaml:"save_every,omitempty"`
	Disabled  bool   `yaml:"disabled,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the project config file name.
const FileName = ".modtr.yaml"

// UserPath returns $XDG_CONFIG_HOME/modtr/config.yaml.
func UserPath() string {
	return filepath.Join(xdg.ConfigHome, "modtr", "config.yaml")
}

// userConfigPath is replaced in tests.
var userConfigPath = UserPath

// Default returns the built-in settings.
func Default() *File {
	return &File{
		SourceLang:  "en",
		Backend:     "google",
		Mode:        "mods",
		MaxFailures: translate.DefaultMaxConsecutiveFailures,
		DeepL: DeepL{
			BatchSize:  translate.DefaultDeepLBatchSize,
			MaxRetries: translate.DefaultDeepLMaxRetries,
			Timeout:    30 * time.Second,
		},
		Google: Google{
			MaxChunkBytes: translate.DefaultGoogleMaxChunkBytes,
			MinDelay:      1500 * time.Millisecond,
			MaxDelay:      3 * time.Second,
			PerMinute:     25,
			PerHour:       1000,
			Timeout:       30 * time.Second,
		},
		Quality: Quality{
			Enabled:           true,
			MinIndicatorRatio: quality.DefaultMinIndicatorRatio,
			MaxPenaltyRatio:   quality.DefaultMaxPenaltyRatio,
		},
		Cache: Cache{SaveEvery: transcache.DefaultSaveEvery},
	}
}

// Load builds the effective settings from the defaults, the user file and
// the project file. projectPath may be empty, in which case .modtr.yaml in
// the working directory is used. Missing files are skipped; an explicitly
// given projectPath must exist.
func Load(projectPath string) (*File, error) {
	f := Default()

	if _, err := f.merge(userConfigPath()); err != nil {
		return nil, err
	}

	explicit := projectPath != ""
	if !explicit {
		projectPath = FileName
	}
	found, err := f.merge(projectPath)
	if err != nil {
		return nil, err
	}
	if explicit && !found {
		return nil, fmt.Errorf("config file %s not found", projectPath)
	}

	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadFile reads a single config file without defaults or validation.
// Returns nil if the file does not exist.
func LoadFile(path string) (*File, error) {
	f := &File{}
	found, err := f.merge(path)
	if err != nil || !found {
		return nil, err
	}
	return f, nil
}

// merge decodes path over f. Keys absent from the file keep their value.
func (f *File) merge(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.Sources = append(f.Sources, path)
	return true, nil
}

func (f *File) validate() error {
	where := "config"
	if n := len(f.Sources); n > 0 {
		where = f.Sources[n-1]
	}

	if _, err := translate.ParseBackendKind(f.Backend); err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	switch strings.ToLower(f.Mode) {
	case "", "mods", "pack":
	default:
		return fmt.Errorf("%s: unknown mode %q (valid: mods, pack)", where, f.Mode)
	}
	if f.SourceLang == "" {
		f.SourceLang = "en"
	}
	for _, r := range []struct {
		key string
		v   float64
	}{
		{"quality.min_indicator_ratio", f.Quality.MinIndicatorRatio},
		{"quality.max_penalty_ratio", f.Quality.MaxPenaltyRatio},
	} {
		if r.v < 0 || r.v > 1 {
			return fmt.Errorf("%s: %s must be between 0 and 1, got %g", where, r.key, r.v)
		}
	}
	if f.DeepL.BatchSize < 0 || f.Google.MaxChunkBytes < 0 || f.MaxFailures < 0 {
		return fmt.Errorf("%s: sizes and limits must not be negative", where)
	}
	if f.Google.MinDelay > 0 && f.Google.MaxDelay > 0 && f.Google.MinDelay > f.Google.MaxDelay {
		return fmt.Errorf("%s: google.min_delay %s exceeds google.max_delay %s", where, f.Google.MinDelay, f.Google.MaxDelay)
	}
	return nil
}

// Save writes f to path as YAML.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// BackendConfig returns the translate configuration of the selected
// backend. apiKey is only used by DeepL.
func (f *File) BackendConfig(apiKey string) (translate.BackendConfig, error) {
	kind, err := translate.ParseBackendKind(f.Backend)
	if err != nil {
		return nil, err
	}
	switch kind {
	case translate.BackendDeepL:
		return translate.DeepLConfig{
			APIKey:     apiKey,
			Endpoint:   f.DeepL.Endpoint,
			GlossaryID: f.DeepL.GlossaryID,
			BatchSize:  f.DeepL.BatchSize,
			MaxRetries: f.DeepL.MaxRetries,
			Timeout:    f.DeepL.Timeout,
			Proxy:      f.Proxy,
		}, nil
	default:
		return translate.GoogleConfig{
			Endpoint:      f.Google.Endpoint,
			MaxChunkBytes: f.Google.MaxChunkBytes,
			MinDelay:      f.Google.MinDelay,
			MaxDelay:      f.Google.MaxDelay,
			PerMinute:     f.Google.PerMinute,
			PerHour:       f.Google.PerHour,
			Timeout:       f.Google.Timeout,
			Proxy:         f.Proxy,
		}, nil
	}
}

// Classifier returns the quality classifier described by the quality:
// section.
func (f *File) Classifier() quality.Classifier {
	if !f.Quality.Enabled {
		return quality.Always{}
	}
	c := quality.Default()
	if f.Quality.MinIndicatorRatio > 0 {
		c.MinIndicatorRatio = f.Quality.MinIndicatorRatio
	}
	if f.Quality.MaxPenaltyRatio > 0 {
		c.MaxPenaltyRatio = f.Quality.MaxPenaltyRatio
	}
	return c
}

// PackMeta returns the language pack fields for target.
func (f *File) PackMeta(target string) rebuild.PackMeta {
	return rebuild.PackMeta{
		Name:            f.Pack.Name,
		Title:           f.Pack.Title,
		Author:          f.Pack.Author,
		Description:     f.Pack.Description,
		FactorioVersion: f.Pack.FactorioVersion,
		Target:          target,
	}
}

// CachePath returns the cache file path, or "" when caching is disabled.
func (f *File) CachePath() string {
	if f.Cache.Disabled {
		return ""
	}
	if f.Cache.Path != "" {
		return expandHome(f.Cache.Path)
	}
	return transcache.DefaultPath()
}

// expandHome replaces a leading "~/" with the home directory.
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
