// Package settings loads and persists user configuration: model and voice
// selection, system prompt, vault location and the API key.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Defaults applied when neither the config file nor the environment sets a
// value.
const (
	DefaultModel = "gemini-2.0-flash-live-001"
	DefaultVoice = "Puck"

	DefaultSystemPrompt = "You are a voice assistant for a personal note vault. " +
		"Keep spoken replies short and natural. Use the vault tools to look things up " +
		"or make changes instead of guessing, and confirm before destructive changes."
)

const envPrefix = "VAULTVOICE"

// Settings is the resolved configuration for a run.
type Settings struct {
	Model         string `mapstructure:"model"`
	Voice         string `mapstructure:"voice"`
	SystemPrompt  string `mapstructure:"system_prompt"`
	CustomContext string `mapstructure:"custom_context"`
	VaultPath     string `mapstructure:"vault_path"`
	APIKey        string `mapstructure:"api_key"`
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vaultvoice", "config.yaml"), nil
}

// Load resolves settings with precedence: defaults, then the config file
// (if present), then environment variables. configFile may be empty to use
// the default location; a missing file is not an error.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("model", DefaultModel)
	v.SetDefault("voice", DefaultVoice)
	v.SetDefault("system_prompt", DefaultSystemPrompt)
	v.SetDefault("custom_context", "")
	v.SetDefault("vault_path", "vault")
	v.SetDefault("api_key", "")

	if configFile == "" {
		path, err := DefaultConfigPath()
		if err == nil {
			configFile = path
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", configFile, err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", "GEMINI_API_KEY", envPrefix+"_API_KEY")
	_ = v.BindEnv("vault_path", envPrefix+"_VAULT_PATH")
	_ = v.BindEnv("model", envPrefix+"_MODEL")
	_ = v.BindEnv("voice", envPrefix+"_VOICE")

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &s, nil
}

// Save writes the settings to a config file, creating parent directories as
// needed. The API key is not persisted; it stays in the environment.
func Save(s *Settings, configFile string) error {
	if configFile == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		configFile = path
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		return err
	}
	v := viper.New()
	v.Set("model", s.Model)
	v.Set("voice", s.Voice)
	v.Set("system_prompt", s.SystemPrompt)
	v.Set("custom_context", s.CustomContext)
	v.Set("vault_path", s.VaultPath)
	return v.WriteConfigAs(configFile)
}
