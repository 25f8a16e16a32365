// config.go: loading and access for application settings
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // path to log file
	Rotation RotationType // rotation type
	MaxSize  int64        // max size in bytes for RotationSize
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// ConsensusSettings holds the tunable policy knobs of the consensus engine.
// Thresholds are policy, not constants: operators may tighten auto-confirm
// or the cascade similarity gate per corpus without a rebuild.
type ConsensusSettings struct {
	AutoConfirmThreshold float64 // composite confidence needed for automatic confirmation
	CorroborationQuorum  int     // corroborate votes required for the corroborated state
	LengthSlack          int     // tolerated character difference for length matching
	ContextSimilarity    float64 // minimum token similarity for cascade matching
	CascadeMaxDepth      int     // maximum cascade recursion depth
	CascadeScanLimit     int     // upper bound on candidates evaluated per cascade pass
}

// Settings contains all configuration options for the consensus service.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"` // Version from build
	BuildDate string `yaml:"-"` // Build date from build

	Main struct {
		Name string    // name of this node, used to identify audit sources
		Log  LogConfig // logging configuration
	}

	Consensus ConsensusSettings // consensus engine policy

	Security struct {
		RequireAuth bool   // true to reject requests without an identity header
		AdminToken  string // shared bearer token granting admin privileges
	}

	WebServer struct {
		Debug   bool      // true to enable web server debug mode
		Enabled bool      // true to enable web server
		Port    string    // port for web server
		Log     LogConfig // logging configuration for web server
	}

	Output struct {
		SQLite struct {
			Enabled bool   // true to enable sqlite output
			Path    string // path to sqlite database
		}

		MySQL struct {
			Enabled  bool   // true to enable mysql output
			Username string // username for mysql database
			Password string // password for mysql database
			Database string // database name for mysql database
			Host     string // host for mysql database
			Port     string // port for mysql database
		}
	}
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings struct.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file found, create one from defaults
		if err := createDefaultConfig(configPaths[0]); err != nil {
			return fmt.Errorf("error creating default config file: %w", err)
		}
		return viper.ReadInConfig()
	}

	return nil
}

// createDefaultConfig writes the default configuration to the first config path.
func createDefaultConfig(configPath string) error {
	if err := os.MkdirAll(configPath, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	configFilePath := filepath.Join(configPath, "config.yaml")
	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}

	return SaveYAMLConfig(configFilePath, settings)
}

// GetDefaultConfigPaths returns the list of paths searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}

	return []string{
		filepath.Join(homeDir, ".config", "redactions"),
		".",
	}, nil
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, yamlData, 0o644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configPath, err)
	}

	return nil
}

// GetBasePath resolves a possibly-relative data path and ensures the
// directory exists.
func GetBasePath(path string) string {
	basePath := viper.GetString("main.basepath")
	if basePath != "" {
		path = filepath.Join(basePath, path)
	}

	if path != "" && path != "." {
		if err := os.MkdirAll(path, 0o755); err != nil {
			log.Printf("Failed to create directory %s: %v", path, err)
		}
	}

	return path
}
