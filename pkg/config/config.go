// Package config loads and validates the hif configuration: the repository
// definitions and the settings that locate caches, the lock and the
// installed database. Configuration is YAML; missing values fall back to
// XDG base directories.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/hif/pkg/auth"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/fsutil"
	"github.com/glorpus-work/hif/pkg/platform"
)

// AppName names the per-application XDG directories.
const AppName = "hif"

// Repository kinds.
const (
	KindRPMMD = "rpm-md"
	KindJSON  = "json"
)

// Default configuration values.
const (
	DefaultCacheAge      = 24 * time.Hour
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultMaxConcurrent = 5
	DefaultPriority      = 99

	YAMLIndent = 2
)

// Config represents the application configuration.
type Config struct {
	Repositories []*RepositoryConfig `yaml:"repositories"`
	Settings     Settings            `yaml:"settings"`
}

// RepositoryConfig is one configured repository.
type RepositoryConfig struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name,omitempty"`
	BaseURLs []string `yaml:"baseurls"`
	Enabled  *bool    `yaml:"enabled,omitempty"`
	Priority int      `yaml:"priority,omitempty"`
	// CacheAge overrides Settings.CacheAge; negative never expires.
	CacheAge          *time.Duration    `yaml:"cache_age,omitempty"`
	Type              string            `yaml:"type,omitempty"`
	SkipIfUnavailable *bool             `yaml:"skip_if_unavailable,omitempty"`
	Auth              *auth.Credentials `yaml:"auth,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	CacheDir    string `yaml:"cache_dir,omitempty"`
	MetadataDir string `yaml:"metadata_dir,omitempty"`
	SolvDir     string `yaml:"solv_dir,omitempty"`
	PackagesDir string `yaml:"packages_dir,omitempty"`
	LockDir     string `yaml:"lock_dir,omitempty"`
	StateDir    string `yaml:"state_dir,omitempty"`
	InstallRoot string `yaml:"install_root,omitempty"`

	CacheAge  time.Duration `yaml:"cache_age"`
	KeepCache bool          `yaml:"keep_cache"`

	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	UserAgent     string        `yaml:"user_agent,omitempty"`

	Arch     string `yaml:"arch,omitempty"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a configuration with defaults rooted in the XDG
// directories of the current user.
func DefaultConfig() *Config {
	cacheDir := filepath.Join(xdg.CacheHome, AppName)
	stateDir := filepath.Join(xdg.StateHome, AppName)
	return &Config{
		Repositories: []*RepositoryConfig{},
		Settings: Settings{
			CacheDir:      cacheDir,
			MetadataDir:   filepath.Join(cacheDir, "metadata"),
			SolvDir:       filepath.Join(cacheDir, "solv"),
			PackagesDir:   filepath.Join(cacheDir, "packages"),
			LockDir:       filepath.Join(cacheDir, "lock"),
			StateDir:      stateDir,
			InstallRoot:   filepath.Join(xdg.DataHome, AppName, "root"),
			CacheAge:      DefaultCacheAge,
			HTTPTimeout:   DefaultHTTPTimeout,
			MaxConcurrent: DefaultMaxConcurrent,
			Arch:          platform.CurrentArch(),
			LogLevel:      "info",
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/hif/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}
	return &config, nil
}

// SaveConfig writes the configuration to path through a temporary file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}
	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateRepositories(c.Repositories); err != nil {
		return err
	}
	return validateSettings(c.Settings)
}

func validateRepositories(repos []*RepositoryConfig) error {
	seen := make(map[string]bool)
	for i, repo := range repos {
		if repo == nil || repo.ID == "" {
			return fmt.Errorf("repository #%d has no id", i)
		}
		if strings.ContainsAny(repo.ID, `/\ `) || repo.ID == "@System" {
			return fmt.Errorf("repository id %q is not allowed", repo.ID)
		}
		if seen[repo.ID] {
			return fmt.Errorf("repository %q defined twice", repo.ID)
		}
		seen[repo.ID] = true
		if len(repo.BaseURLs) == 0 {
			return fmt.Errorf("repository %q has no baseurls", repo.ID)
		}
		if _, err := repo.URLs(); err != nil {
			return err
		}
		if _, err := auth.New(repo.Auth); err != nil {
			return fmt.Errorf("repository %q: %w", repo.ID, err)
		}
		switch repo.Type {
		case KindRPMMD, KindJSON:
		default:
			return fmt.Errorf("repository %q has unknown type %q", repo.ID, repo.Type)
		}
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative")
	}
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1")
	}
	if s.Arch != "" && !platform.Known(s.Arch) {
		return fmt.Errorf("invalid architecture %q", s.Arch)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("invalid log level %q", s.LogLevel)
	}
	return nil
}

// applyDefaults fills in missing values with defaults. Directory settings
// left empty are derived from CacheDir when it was given explicitly.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	s := &c.Settings

	if s.CacheDir == "" {
		s.CacheDir = defaults.Settings.CacheDir
	}
	deriveDir(&s.MetadataDir, s.CacheDir, "metadata")
	deriveDir(&s.SolvDir, s.CacheDir, "solv")
	deriveDir(&s.PackagesDir, s.CacheDir, "packages")
	deriveDir(&s.LockDir, s.CacheDir, "lock")
	if s.StateDir == "" {
		s.StateDir = defaults.Settings.StateDir
	}
	if s.InstallRoot == "" {
		s.InstallRoot = defaults.Settings.InstallRoot
	}
	if s.CacheAge == 0 {
		s.CacheAge = defaults.Settings.CacheAge
	}
	if s.HTTPTimeout == 0 {
		s.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if s.MaxConcurrent == 0 {
		s.MaxConcurrent = defaults.Settings.MaxConcurrent
	}
	if s.Arch == "" {
		s.Arch = defaults.Settings.Arch
	}
	s.Arch = platform.NormalizeArch(s.Arch)
	if s.LogLevel == "" {
		s.LogLevel = defaults.Settings.LogLevel
	}

	for _, repo := range c.Repositories {
		if repo == nil {
			continue
		}
		if repo.Name == "" {
			repo.Name = repo.ID
		}
		if repo.Priority == 0 {
			repo.Priority = DefaultPriority
		}
		if repo.Type == "" {
			repo.Type = KindRPMMD
		}
	}
}

func deriveDir(dst *string, base, name string) {
	if *dst == "" {
		*dst = filepath.Join(base, name)
	}
}

// IsEnabled reports whether the repository is enabled; unset means enabled.
func (rc *RepositoryConfig) IsEnabled() bool {
	return rc.Enabled == nil || *rc.Enabled
}

// SkipUnavailable reports whether an unreachable repository may be skipped;
// unset means true.
func (rc *RepositoryConfig) SkipUnavailable() bool {
	return rc.SkipIfUnavailable == nil || *rc.SkipIfUnavailable
}

// URLs parses the configured base URLs. Plain absolute paths become file URLs.
func (rc *RepositoryConfig) URLs() ([]*url.URL, error) {
	out := make([]*url.URL, 0, len(rc.BaseURLs))
	for _, raw := range rc.BaseURLs {
		if filepath.IsAbs(raw) {
			out = append(out, &url.URL{Scheme: "file", Path: filepath.ToSlash(raw)})
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("repository %q: invalid baseurl %q: %w", rc.ID, raw, err)
		}
		switch u.Scheme {
		case "http", "https", "file":
		default:
			return nil, fmt.Errorf("repository %q: unsupported baseurl scheme in %q", rc.ID, raw)
		}
		out = append(out, u)
	}
	return out, nil
}

// GetRepository returns the repository with the given id, or nil.
func (c *Config) GetRepository(id string) *RepositoryConfig {
	for _, repo := range c.Repositories {
		if repo.ID == id {
			return repo
		}
	}
	return nil
}

// DatabasePath returns the path of the installed-package database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Settings.StateDir, "installed.db")
}
