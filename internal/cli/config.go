package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/librarian/internal/paths"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Config keys in config.yaml.
const (
	cfgKeyDataDir  = "data_dir"
	cfgKeyDBFile   = "db_file"
	cfgKeyLogLevel = "log_level"
	cfgKeyUser     = "user"
	cfgKeyClasses  = "classes"
	cfgKeyHouses   = "houses"
)

// envPrefix scopes the environment variables viper consults.
const envPrefix = "LIBRARIAN"

// configFile is the structure written to config.yaml on first run.
type configFile struct {
	DataDir  string   `yaml:"data_dir"`
	DBFile   string   `yaml:"db_file"`
	LogLevel string   `yaml:"log_level"`
	User     string   `yaml:"user"`
	Classes  []string `yaml:"classes"`
	Houses   []string `yaml:"houses"`
}

func defaultConfigFile() configFile {
	return configFile{
		DBFile:   types.DefaultDBFile,
		LogLevel: "warn",
		Classes:  []string{},
		Houses:   []string{},
	}
}

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. log_level and user may also come from
// LIBRARIAN_LOG_LEVEL and LIBRARIAN_USER. data_dir is resolved by the paths
// package so that the file value outranks LIBRARIAN_DATA_DIR.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(configDir, paths.ConfigFileName)
	if err := writeConfigIfMissing(path, defaultConfigFile()); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	def := defaultConfigFile()
	v.SetDefault(cfgKeyDBFile, def.DBFile)
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetEnvPrefix(envPrefix)
	_ = v.BindEnv(cfgKeyLogLevel)
	_ = v.BindEnv(cfgKeyUser)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}

// writeConfigIfMissing creates path with cfg when the file does not exist.
func writeConfigIfMissing(path string, cfg configFile) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
