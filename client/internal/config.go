package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/voiceassistant/assistant/client/internal/updatemanager"
	"github.com/voiceassistant/assistant/util"
)

const (
	// DefaultDescriptorURL is the latest release document of the public repository
	DefaultDescriptorURL = "https://api.github.com/repos/Gosheto1234/Voice-Assistant/releases/latest"
	// DefaultCheckInterval is the period of background update checks
	DefaultCheckInterval = 6 * time.Hour
)

// Duration is a time.Duration stored as a human readable string, e.g. "10s"
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

// ConfigInput carries configuration changes to the client
type ConfigInput struct {
	ConfigPath      string
	DescriptorURL   string
	AssetName       string
	UpdaterPath     string
	CheckTimeout    *time.Duration
	DownloadTimeout *time.Duration
	CheckInterval   *time.Duration
	KeepBackup      *bool
}

// Config Configuration type
type Config struct {
	// DescriptorURL points to the version descriptor or a GitHub latest release document
	DescriptorURL string
	// AssetName selects the artifact among the assets of a GitHub release
	AssetName string
	// UpdaterPath overrides the updater next to the executable
	UpdaterPath     string `json:",omitempty"`
	CheckTimeout    Duration
	DownloadTimeout Duration
	// CheckInterval of background checks, 0 disables them
	CheckInterval Duration
	// KeepBackup keeps <executable>.bak after a successful update
	KeepBackup bool
}

// ReadConfig read config file and return with Config. If it is not exists create a new with default values
func ReadConfig(configPath string) (*Config, error) {
	if configFileIsExists(configPath) {
		config := &Config{}
		if _, err := util.ReadJson(configPath, config); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
		// initialize through apply() without changes
		if changed, err := config.apply(ConfigInput{}); err != nil {
			return nil, err
		} else if changed {
			if err = WriteOutConfig(configPath, config); err != nil {
				return nil, err
			}
		}

		return config, nil
	}

	cfg, err := createNewConfig(ConfigInput{ConfigPath: configPath})
	if err != nil {
		return nil, err
	}

	err = WriteOutConfig(configPath, cfg)
	return cfg, err
}

// UpdateOrCreateConfig reads existing config or generates a new one
func UpdateOrCreateConfig(input ConfigInput) (*Config, error) {
	if !configFileIsExists(input.ConfigPath) {
		log.Infof("generating new config %s", input.ConfigPath)
		cfg, err := createNewConfig(input)
		if err != nil {
			return nil, err
		}
		err = WriteOutConfig(input.ConfigPath, cfg)
		return cfg, err
	}

	return update(input)
}

// WriteOutConfig write put the prepared config to the given path
func WriteOutConfig(path string, config *Config) error {
	return util.WriteJson(context.Background(), path, config)
}

// UpdateManagerConfig maps the stored settings to the update client configuration
func (config *Config) UpdateManagerConfig(currentVersion, targetPath, workDir string) updatemanager.Config {
	return updatemanager.Config{
		DescriptorURL:   config.DescriptorURL,
		AssetName:       config.AssetName,
		CurrentVersion:  currentVersion,
		TargetPath:      targetPath,
		WorkDir:         workDir,
		CheckTimeout:    time.Duration(config.CheckTimeout),
		DownloadTimeout: time.Duration(config.DownloadTimeout),
		CheckInterval:   time.Duration(config.CheckInterval),
	}
}

func createNewConfig(input ConfigInput) (*Config, error) {
	config := &Config{
		CheckInterval: Duration(DefaultCheckInterval),
	}
	if _, err := config.apply(input); err != nil {
		return nil, err
	}
	return config, nil
}

func update(input ConfigInput) (*Config, error) {
	config := &Config{}

	if _, err := util.ReadJson(input.ConfigPath, config); err != nil {
		return nil, err
	}

	updated, err := config.apply(input)
	if err != nil {
		return nil, err
	}

	if updated {
		if err := WriteOutConfig(input.ConfigPath, config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

func (config *Config) apply(input ConfigInput) (updated bool, err error) {
	if input.DescriptorURL != "" && input.DescriptorURL != config.DescriptorURL {
		if err := validateURL(input.DescriptorURL); err != nil {
			return false, err
		}
		log.Infof("new descriptor URL provided, updated to %s (old value %s)", input.DescriptorURL, config.DescriptorURL)
		config.DescriptorURL = input.DescriptorURL
		updated = true
	} else if config.DescriptorURL == "" {
		log.Infof("using default descriptor URL %s", DefaultDescriptorURL)
		config.DescriptorURL = DefaultDescriptorURL
		updated = true
	}

	if input.AssetName != "" && input.AssetName != config.AssetName {
		config.AssetName = input.AssetName
		updated = true
	} else if config.AssetName == "" {
		config.AssetName = updatemanager.DefaultAssetName
		updated = true
	}

	if input.UpdaterPath != "" && input.UpdaterPath != config.UpdaterPath {
		log.Infof("using updater %s", input.UpdaterPath)
		config.UpdaterPath = input.UpdaterPath
		updated = true
	}

	updated = applyDuration(&config.CheckTimeout, input.CheckTimeout, updatemanager.DefaultCheckTimeout) || updated
	updated = applyDuration(&config.DownloadTimeout, input.DownloadTimeout, updatemanager.DefaultDownloadTimeout) || updated

	// a zero interval is a valid setting, only a missing field gets the default
	if input.CheckInterval != nil && Duration(*input.CheckInterval) != config.CheckInterval {
		config.CheckInterval = Duration(*input.CheckInterval)
		updated = true
	} else if input.CheckInterval == nil && config.CheckInterval < 0 {
		config.CheckInterval = 0
		updated = true
	}

	if input.KeepBackup != nil && *input.KeepBackup != config.KeepBackup {
		log.Infof("switching keep backup to %t", *input.KeepBackup)
		config.KeepBackup = *input.KeepBackup
		updated = true
	}

	return updated, nil
}

func applyDuration(field *Duration, input *time.Duration, def time.Duration) bool {
	if input != nil && *input > 0 && Duration(*input) != *field {
		*field = Duration(*input)
		return true
	}
	if *field <= 0 {
		*field = Duration(def)
		return true
	}
	return false
}

// validateURL accepts http and https descriptor locations only
func validateURL(descriptorURL string) error {
	parsed, err := url.ParseRequestURI(descriptorURL)
	if err != nil {
		return fmt.Errorf("invalid descriptor URL %s: %w", descriptorURL, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("invalid descriptor URL provided %s. Supported format [http|https]://[host]:[port]/[path]", descriptorURL)
	}
	return nil
}

func configFileIsExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
