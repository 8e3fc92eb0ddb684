// Package config provides application configuration management with support
// for a TOML config file, environment variables, command-line flags, and .env
// files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Directories DirectoriesConfig
	Image       ImageConfig
	Metadata    MetadataConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DirectoriesConfig holds the filesystem layout.
type DirectoriesConfig struct {
	// Data is the base directory for the database and derived files.
	Data string `toml:"data"`
	// Images is the root of the per-archive image storage tree.
	Images string `toml:"images"`
	// Inbox is watched for metadata documents to import.
	Inbox string `toml:"inbox"`
}

// ImageConfig holds image handling configuration.
type ImageConfig struct {
	// RemoveOnUpdate deletes on-disk variants of a page whose backing file
	// is replaced during reconciliation.
	RemoveOnUpdate bool `toml:"remove_on_update"`
}

// MetadataConfig holds the normalization rules applied before metadata is
// reconciled into the store.
type MetadataConfig struct {
	SourceMapping []SourceMappingRule `toml:"source_mapping" validate:"dive"`
	TagMapping    []TagMappingRule    `toml:"tag_mapping" validate:"dive"`
}

// SourceMappingRule rewrites a source name before storage. Rules are ordered;
// the last matching rule wins.
type SourceMappingRule struct {
	// Match is compared against the source name, or, when the source has no
	// name, checked for containment in its URL.
	Match      string `toml:"match" validate:"required"`
	IgnoreCase bool   `toml:"ignore_case"`
	Name       string `toml:"name"`
}

// TagMappingRule rewrites a tag's namespace and/or name before storage.
// Rules are ordered; the last matching rule wins.
type TagMappingRule struct {
	// Match is the set of tag names the rule applies to.
	Match      []string `toml:"match" validate:"required,min=1"`
	IgnoreCase bool     `toml:"ignore_case"`
	// MatchNamespace restricts the rule to tags currently in that namespace.
	// Empty matches any namespace.
	MatchNamespace string `toml:"match_namespace"`
	Namespace      string `toml:"namespace"`
	Name           string `toml:"name"`
}

// fileConfig mirrors the TOML file layout.
type fileConfig struct {
	Directories DirectoriesConfig `toml:"directories"`
	Image       ImageConfig       `toml:"image"`
	Metadata    MetadataConfig    `toml:"metadata"`
}

// LoadConfig loads configuration for the daemon with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. TOML config file.
// 5. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	configPath := flag.String("config", "", "Path to TOML config file (default: {data}/folium.toml)")
	dataDir := flag.String("data-dir", "", "Base directory for database and derived files")
	imagesDir := flag.String("images-dir", "", "Root of the image storage tree")
	inboxDir := flag.String("inbox-dir", "", "Directory watched for metadata documents")
	removeOnUpdate := flag.String("remove-on-update", "", "Delete replaced page files during reconciliation (default: false)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = godotenv.Load(*envFile)

	return load(loadParams{
		env:            *env,
		logLevel:       *logLevel,
		configPath:     *configPath,
		dataDir:        *dataDir,
		imagesDir:      *imagesDir,
		inboxDir:       *inboxDir,
		removeOnUpdate: *removeOnUpdate,
	})
}

// Load loads configuration without touching the flag package, for commands
// that manage their own flags. configPath may be empty to use the default.
func Load(configPath string) (*Config, error) {
	return load(loadParams{configPath: configPath})
}

type loadParams struct {
	env            string
	logLevel       string
	configPath     string
	dataDir        string
	imagesDir      string
	inboxDir       string
	removeOnUpdate string
}

func load(p loadParams) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(p.env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(p.logLevel, "LOG_LEVEL", "info"),
		},
		Directories: DirectoriesConfig{
			Data: getConfigValue(p.dataDir, "DATA_DIR", ""),
		},
	}

	if err := cfg.expandDataDir(); err != nil {
		return nil, fmt.Errorf("invalid data directory: %w", err)
	}

	// Read the TOML config file; a missing file just means defaults.
	path := getConfigValue(p.configPath, "CONFIG_PATH", filepath.Join(cfg.Directories.Data, "folium.toml"))
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}

	// Scalar values can still be overridden by env vars and flags.
	cfg.Directories.Images = getConfigValue(p.imagesDir, "IMAGES_DIR", cfg.Directories.Images)
	cfg.Directories.Inbox = getConfigValue(p.inboxDir, "INBOX_DIR", cfg.Directories.Inbox)
	cfg.Image.RemoveOnUpdate = getBoolConfigValue(p.removeOnUpdate, "IMAGE_REMOVE_ON_UPDATE", cfg.Image.RemoveOnUpdate)

	if err := cfg.expandImagesDir(); err != nil {
		return nil, fmt.Errorf("invalid images directory: %w", err)
	}
	if err := cfg.expandInboxDir(); err != nil {
		return nil, fmt.Errorf("invalid inbox directory: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyFile merges values from a TOML config file into the config.
// A missing file is not an error.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path) //#nosec G304 -- config file path comes from the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Directories.Data != "" {
		c.Directories.Data = fc.Directories.Data
		if err := c.expandDataDir(); err != nil {
			return fmt.Errorf("invalid data directory: %w", err)
		}
	}
	c.Directories.Images = fc.Directories.Images
	c.Directories.Inbox = fc.Directories.Inbox
	c.Image = fc.Image
	c.Metadata = fc.Metadata

	return nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Directories.Data == "" {
		return errors.New("data directory cannot be empty after expansion")
	}

	// Mapping rules come from the config file only; malformed rules would
	// otherwise surface as silent normalization no-ops.
	v := validator.New()
	if err := v.Struct(c.Metadata); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid mapping rule: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid mapping rules: %w", err)
	}

	return nil
}

// DatabasePath returns the location of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Directories.Data, "folium.db")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataDir expands ~ and makes the path absolute, defaulting to
// ~/Folium.
func (c *Config) expandDataDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Folium")

	expanded, err := expandPath(c.Directories.Data, defaultPath)
	if err != nil {
		return err
	}
	c.Directories.Data = expanded
	return nil
}

// expandImagesDir defaults to {data}/images.
func (c *Config) expandImagesDir() error {
	defaultPath := filepath.Join(c.Directories.Data, "images")

	expanded, err := expandPath(c.Directories.Images, defaultPath)
	if err != nil {
		return err
	}
	c.Directories.Images = expanded
	return nil
}

// expandInboxDir defaults to {data}/inbox.
func (c *Config) expandInboxDir() error {
	defaultPath := filepath.Join(c.Directories.Data, "inbox")

	expanded, err := expandPath(c.Directories.Inbox, defaultPath)
	if err != nil {
		return err
	}
	c.Directories.Inbox = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}
