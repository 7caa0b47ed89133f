/*
Package config manages the TOML (or YAML) config shared by the codewords
binaries.

Values resolve in this order, later wins: built-in defaults, the config
file, CODEWORDS_* environment variables (a .env file is loaded by the
binaries first), then command line flags.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/bastiangx/codewords/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Build   BuildConfig   `toml:"build" yaml:"build"`
	Segment SegmentConfig `toml:"segment" yaml:"segment"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Store   StoreConfig   `toml:"store" yaml:"store"`
}

// BuildConfig holds wordbuild options.
type BuildConfig struct {
	PoolSize     int    `toml:"pool_size" yaml:"pool_size"`
	DedupWorkers int    `toml:"dedup_workers" yaml:"dedup_workers"`
	RawChunkMB   int    `toml:"raw_chunk_mb" yaml:"raw_chunk_mb"`
	CleanChunkMB int    `toml:"clean_chunk_mb" yaml:"clean_chunk_mb"`
	RawQueue     int    `toml:"raw_queue" yaml:"raw_queue"`
	CleanQueue   int    `toml:"clean_queue" yaml:"clean_queue"`
	Workdir      string `toml:"workdir" yaml:"workdir"`
	Keep         bool   `toml:"keep" yaml:"keep"`
	HunspellDir  string `toml:"hunspell_dir" yaml:"hunspell_dir"`
	Output       string `toml:"output" yaml:"output"`
}

// SegmentConfig holds segmenter options.
type SegmentConfig struct {
	Codes   string `toml:"codes" yaml:"codes"`
	Index   string `toml:"index" yaml:"index"`
	CodeLen int    `toml:"code_len" yaml:"code_len"`
	MinSize int    `toml:"min_size" yaml:"min_size"`
	MaxSize int    `toml:"max_size" yaml:"max_size"`
	Format  string `toml:"format" yaml:"format"`
}

// ServerConfig holds query server options.
type ServerConfig struct {
	HTTPAddr     string `toml:"http_addr" yaml:"http_addr"`
	DefaultLimit int    `toml:"default_limit" yaml:"default_limit"`
}

// StoreConfig holds docingest options.
type StoreConfig struct {
	URL          string `toml:"url" yaml:"url"`
	BatchSize    int    `toml:"batch_size" yaml:"batch_size"`
	PoolSize     int    `toml:"pool_size" yaml:"pool_size"`
	WhenExisting string `toml:"when_existing" yaml:"when_existing"`
	Create       bool   `toml:"create" yaml:"create"`
	IDField      string `toml:"id_field" yaml:"id_field"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			PoolSize:     3,
			RawChunkMB:   50,
			CleanChunkMB: 10,
			RawQueue:     8,
			CleanQueue:   20,
			HunspellDir:  "/usr/share/hunspell",
		},
		Segment: SegmentConfig{
			CodeLen: 3,
			MinSize: 0,
			MaxSize: -1,
			Format:  "plain",
		},
		Server: ServerConfig{
			HTTPAddr:     ":8080",
			DefaultLimit: 10,
		},
		Store: StoreConfig{
			BatchSize:    100,
			PoolSize:     2,
			WhenExisting: "ignore",
			Create:       true,
		},
	}
}

// Validate reports values no binary can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Build.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("build.pool_size must be at least 1, got %d", c.Build.PoolSize))
	}
	if c.Build.DedupWorkers < 0 {
		errs = append(errs, fmt.Errorf("build.dedup_workers must not be negative, got %d", c.Build.DedupWorkers))
	}
	if c.Build.RawChunkMB < 1 || c.Build.CleanChunkMB < 1 {
		errs = append(errs, errors.New("build chunk sizes must be at least 1 MB"))
	}
	if c.Segment.CodeLen < 1 {
		errs = append(errs, fmt.Errorf("segment.code_len must be positive, got %d", c.Segment.CodeLen))
	}
	if c.Segment.Format != "plain" && c.Segment.Format != "spaced" {
		errs = append(errs, fmt.Errorf("segment.format must be plain or spaced, got %q", c.Segment.Format))
	}
	if c.Store.BatchSize < 1 || c.Store.PoolSize < 1 {
		errs = append(errs, errors.New("store batch_size and pool_size must be at least 1"))
	}
	return errors.Join(errs...)
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/codewords
// 2. ~/Library/Application Support/codewords (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "codewords")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "codewords")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	return utils.GetExecutableDir()
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from -config flag
// 2. Default path: [UserConfigDir]/codewords/config.toml, created if missing
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string, l *log.Logger) (*Config, string, error) {
	l = logger.OrDiscard(l)

	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath, l)
			if err == nil {
				l.Debug("loaded config", "path", customConfigPath)
				return config, customConfigPath, nil
			}
			l.Warn("failed to load custom config, trying default path", "path", customConfigPath, "err", err)
		} else {
			l.Warn("custom config not found, trying default path", "path", customConfigPath)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		l.Warn("no default config path, using built-in defaults", "err", err)
		return DefaultConfig(), "", nil
	}
	config, err := InitConfig(defaultPath, l)
	if err != nil {
		l.Warn("using built-in defaults", "path", defaultPath, "err", err)
		return DefaultConfig(), "", nil
	}
	l.Debug("loaded config", "path", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string, l *log.Logger) (*Config, error) {
	l = logger.OrDiscard(l)
	if err := utils.EnsureDir(filepath.Dir(configPath)); err != nil {
		return nil, err
	}
	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			return nil, err
		}
		l.Debug("created default config file", "path", configPath)
		return config, nil
	}
	return LoadConfig(configPath, l)
}

// LoadConfig loads a TOML file, or YAML for .yaml and .yml paths. A TOML file
// with bad values is salvaged section by section.
func LoadConfig(configPath string, l *log.Logger) (*Config, error) {
	config := DefaultConfig()
	if isYAML(configPath) {
		if err := utils.LoadYAMLFile(configPath, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
		return config, nil
	}
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		logger.OrDiscard(l).Warn("config has errors, recovering valid sections", "path", configPath, "err", err)
		return tryPartialParse(configPath, l)
	}
	return config, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// tryPartialParse keeps every well-typed value of a TOML file and defaults
// the rest.
func tryPartialParse(configPath string, l *log.Logger) (*Config, error) {
	config := DefaultConfig()

	data, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		logger.OrDiscard(l).Warn("could not parse any valid configuration, using all defaults", "path", configPath, "err", err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(data, "build"); ok {
		extractBuildConfig(section, &config.Build)
	}
	if section, ok := utils.ExtractSection(data, "segment"); ok {
		extractSegmentConfig(section, &config.Segment)
	}
	if section, ok := utils.ExtractSection(data, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(data, "store"); ok {
		extractStoreConfig(section, &config.Store)
	}
	return config, nil
}

func extractBuildConfig(data map[string]any, b *BuildConfig) {
	setInt(data, "pool_size", &b.PoolSize)
	setInt(data, "dedup_workers", &b.DedupWorkers)
	setInt(data, "raw_chunk_mb", &b.RawChunkMB)
	setInt(data, "clean_chunk_mb", &b.CleanChunkMB)
	setInt(data, "raw_queue", &b.RawQueue)
	setInt(data, "clean_queue", &b.CleanQueue)
	setString(data, "workdir", &b.Workdir)
	setBool(data, "keep", &b.Keep)
	setString(data, "hunspell_dir", &b.HunspellDir)
	setString(data, "output", &b.Output)
}

func extractSegmentConfig(data map[string]any, s *SegmentConfig) {
	setString(data, "codes", &s.Codes)
	setString(data, "index", &s.Index)
	setInt(data, "code_len", &s.CodeLen)
	setInt(data, "min_size", &s.MinSize)
	setInt(data, "max_size", &s.MaxSize)
	setString(data, "format", &s.Format)
}

func extractServerConfig(data map[string]any, s *ServerConfig) {
	setString(data, "http_addr", &s.HTTPAddr)
	setInt(data, "default_limit", &s.DefaultLimit)
}

func extractStoreConfig(data map[string]any, s *StoreConfig) {
	setString(data, "url", &s.URL)
	setInt(data, "batch_size", &s.BatchSize)
	setInt(data, "pool_size", &s.PoolSize)
	setString(data, "when_existing", &s.WhenExisting)
	setBool(data, "create", &s.Create)
	setString(data, "id_field", &s.IDField)
}

func setInt(data map[string]any, key string, dst *int) {
	if v, ok := utils.ExtractInt64(data, key); ok {
		*dst = v
	}
}

func setBool(data map[string]any, key string, dst *bool) {
	if v, ok := utils.ExtractBool(data, key); ok {
		*dst = v
	}
}

func setString(data map[string]any, key string, dst *string) {
	if v, ok := utils.ExtractString(data, key); ok {
		*dst = v
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CODEWORDS_"

// ApplyEnv overlays CODEWORDS_* variables, e.g. CODEWORDS_INDEX or
// CODEWORDS_POOL_SIZE. Malformed numbers are reported and left unapplied.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	num("POOL_SIZE", &c.Build.PoolSize)
	num("DEDUP_WORKERS", &c.Build.DedupWorkers)
	str("WORKDIR", &c.Build.Workdir)
	flag("KEEP", &c.Build.Keep)
	str("HUNSPELL_DIR", &c.Build.HunspellDir)
	str("OUTPUT", &c.Build.Output)
	str("CODES", &c.Segment.Codes)
	str("INDEX", &c.Segment.Index)
	num("CODE_LEN", &c.Segment.CodeLen)
	str("FORMAT", &c.Segment.Format)
	str("HTTP_ADDR", &c.Server.HTTPAddr)
	str("STORE_URL", &c.Store.URL)
	str("WHEN_EXISTING", &c.Store.WhenExisting)
	return errors.Join(errs...)
}
