/*
Package config manages the TOML config for addrserve.

Values are resolved in three layers: built-in defaults, the TOML file, then environment
variables (ADDRSERVE_*). A config file with broken values is recovered section by section so
one bad key does not discard the rest of the file.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bastiangx/addrserve/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/ilyakaznacheev/cleanenv"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config holds the entire config structure
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
	Vector VectorConfig `toml:"vector"`
	CLI    CliConfig    `toml:"cli"`
}

// EngineConfig tunes matching.
type EngineConfig struct {
	Locality           string  `toml:"locality" env:"ADDRSERVE_LOCALITY"`
	TopN               int     `toml:"top_n" env:"ADDRSERVE_TOP_N"`
	CandidateLimit     int     `toml:"candidate_limit"`
	ScoreCutoff        float64 `toml:"score_cutoff"`
	PrefilterThreshold int     `toml:"prefilter_threshold"`
	PrefixLen          int     `toml:"prefix_len"`
	Retriever          string  `toml:"retriever" env:"ADDRSERVE_RETRIEVER"`
	NormalizeCache     int     `toml:"normalize_cache"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver   string `toml:"driver" env:"ADDRSERVE_STORE_DRIVER"`
	Path     string `toml:"path" env:"ADDRSERVE_DATA"`
	DSN      string `toml:"dsn" env:"ADDRSERVE_DSN"`
	MaxConns int32  `toml:"max_conns" env:"ADDRSERVE_MAX_CONNS"`
	Migrate  bool   `toml:"migrate" env:"ADDRSERVE_MIGRATE"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxLimit    int `toml:"max_limit"`
	MaxQueryLen int `toml:"max_query_len"`
}

// VectorConfig configures the vector retriever.
type VectorConfig struct {
	Dim int `toml:"dim"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Locality:           "Москва",
			TopN:               3,
			CandidateLimit:     50,
			ScoreCutoff:        30,
			PrefilterThreshold: 50,
			PrefixLen:          3,
			Retriever:          "levenshtein",
			NormalizeCache:     4096,
		},
		Store: StoreConfig{
			Driver:   DriverFile,
			Path:     "data/addresses.csv",
			MaxConns: 8,
		},
		Server: ServerConfig{
			MaxLimit:    64,
			MaxQueryLen: 256,
		},
		Vector: VectorConfig{
			Dim: 256,
		},
		CLI: CliConfig{
			DefaultLimit: 5,
		},
	}
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	e := c.Engine
	switch {
	case e.Locality == "":
		return fmt.Errorf("engine.locality must not be empty")
	case e.TopN < 0:
		return fmt.Errorf("engine.top_n must be >= 0 (got %d)", e.TopN)
	case e.CandidateLimit <= 0:
		return fmt.Errorf("engine.candidate_limit must be > 0 (got %d)", e.CandidateLimit)
	case e.ScoreCutoff <= 0 || e.ScoreCutoff > 100:
		return fmt.Errorf("engine.score_cutoff must be within (0,100] (got %v)", e.ScoreCutoff)
	case e.PrefixLen <= 0:
		return fmt.Errorf("engine.prefix_len must be > 0 (got %d)", e.PrefixLen)
	}
	switch e.Retriever {
	case "levenshtein", "token", "vector":
	default:
		return fmt.Errorf("engine.retriever %q is not one of levenshtein, token, vector", e.Retriever)
	}

	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the file driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of file, postgres", c.Store.Driver)
	}

	if c.Server.MaxLimit <= 0 {
		return fmt.Errorf("server.max_limit must be > 0 (got %d)", c.Server.MaxLimit)
	}
	if c.Server.MaxQueryLen <= 0 {
		return fmt.Errorf("server.max_query_len must be > 0 (got %d)", c.Server.MaxQueryLen)
	}
	if c.Vector.Dim <= 0 {
		return fmt.Errorf("vector.dim must be > 0 (got %d)", c.Vector.Dim)
	}
	return nil
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/addrserve
// 2. ~/Library/Application Support/addrserve (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "addrserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "addrserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
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
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/addrserve/config.toml
// 3. Builtin defaults
// Environment overrides are applied on top of whichever file was used.
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		config := DefaultConfig()
		return config, "", applyEnv(config)
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		return nil, "", err
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		config := DefaultConfig()
		return config, applyEnv(config)
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
		} else {
			log.Debugf("Created default config file at: %s", configPath)
		}
		return config, applyEnv(config)
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file and applies environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		config = tryPartialParse(configPath)
	}
	return config, applyEnv(config)
}

// applyEnv overrides config values with ADDRSERVE_* variables that are set.
func applyEnv(config *Config) error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("config: read env: %w", err)
	}
	return nil
}

// tryPartialParse keeps every section value that decodes with the right type.
func tryPartialParse(configPath string) *Config {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config
	}

	if section, ok := utils.ExtractSection(tempConfig, "engine"); ok {
		extractEngineConfig(section, &config.Engine)
	}
	if section, ok := utils.ExtractSection(tempConfig, "store"); ok {
		extractStoreConfig(section, &config.Store)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "vector"); ok {
		if val, ok := utils.ExtractInt64(section, "dim"); ok {
			config.Vector.Dim = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		if val, ok := utils.ExtractInt64(section, "default_limit"); ok {
			config.CLI.DefaultLimit = val
		}
	}
	return config
}

func extractEngineConfig(data map[string]any, engine *EngineConfig) {
	if val, ok := utils.ExtractString(data, "locality"); ok {
		engine.Locality = val
	}
	if val, ok := utils.ExtractInt64(data, "top_n"); ok {
		engine.TopN = val
	}
	if val, ok := utils.ExtractInt64(data, "candidate_limit"); ok {
		engine.CandidateLimit = val
	}
	if val, ok := utils.ExtractFloat(data, "score_cutoff"); ok {
		engine.ScoreCutoff = val
	}
	if val, ok := utils.ExtractInt64(data, "prefilter_threshold"); ok {
		engine.PrefilterThreshold = val
	}
	if val, ok := utils.ExtractInt64(data, "prefix_len"); ok {
		engine.PrefixLen = val
	}
	if val, ok := utils.ExtractString(data, "retriever"); ok {
		engine.Retriever = val
	}
	if val, ok := utils.ExtractInt64(data, "normalize_cache"); ok {
		engine.NormalizeCache = val
	}
}

func extractStoreConfig(data map[string]any, store *StoreConfig) {
	if val, ok := utils.ExtractString(data, "driver"); ok {
		store.Driver = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		store.Path = val
	}
	if val, ok := utils.ExtractString(data, "dsn"); ok {
		store.DSN = val
	}
	if val, ok := utils.ExtractInt64(data, "max_conns"); ok {
		store.MaxConns = int32(val)
	}
	if val, ok := utils.ExtractBool(data, "migrate"); ok {
		store.Migrate = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_query_len"); ok {
		server.MaxQueryLen = val
	}
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
