package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file
func (l *Loader) Load() (*Config, error) {
	configPath := l.configPath
	if configPath == "" {
		configPath = "membercenter.json"
	}

	// Setup viper
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	// Read environment variables
	v.SetEnvPrefix("MEMBERCENTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()

	// Missing config file is fine, env overrides still apply
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Well-known env vars take precedence over file values
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && !hasProfile(cfg, "anthropic") {
		cfg.AI.Profiles = append(cfg.AI.Profiles, AIProfile{
			ID:       "anthropic-env",
			Provider: "anthropic",
			APIKey:   key,
			Priority: 1,
		})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && !hasProfile(cfg, "openai") {
		cfg.AI.Profiles = append(cfg.AI.Profiles, AIProfile{
			ID:       "openai-env",
			Provider: "openai",
			APIKey:   key,
			Priority: 2,
		})
	}

	// Set data directory if not specified
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "membercenter.log")
	}

	if cfg.Knowledge.IndexPath == "" {
		cfg.Knowledge.IndexPath = filepath.Join(cfg.DataDir, "knowledge.db")
	}

	return cfg, nil
}

func hasProfile(cfg *Config, provider string) bool {
	for _, p := range cfg.AI.Profiles {
		if p.Provider == provider {
			return true
		}
	}
	return false
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.configPath
	if configPath == "" {
		configPath = "membercenter.json"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("server", cfg.Server)
	v.Set("database", cfg.Database)
	v.Set("redis", cfg.Redis)
	v.Set("agents", cfg.Agents)
	v.Set("knowledge", cfg.Knowledge)
	v.Set("jobs", cfg.Jobs)
	v.Set("logging", cfg.Logging)
	v.Set("moderation", cfg.Moderation)
	v.Set("data_dir", cfg.DataDir)
	v.Set("ai", cfg.AI)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
		} else {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	return "membercenter.json"
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
