package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config configurazione del backend
type Config struct {
	Port       int      `yaml:"port"`
	EnableCORS bool     `yaml:"enable_cors"`
	Debug      bool     `yaml:"debug"`
	WatchPaths []string `yaml:"watch_paths"`
	StoryDir   string   `yaml:"story_dir"`
}

// Default restituisce la configurazione di default
func Default() *Config {
	return &Config{
		Port:       8080,
		EnableCORS: true,
		Debug:      false,
		StoryDir:   "./stories",
	}
}

// Load carica la configurazione da un file YAML.
// Se il file non esiste si usano i default, non è un errore.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("errore lettura config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("errore parsing config: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	return cfg, nil
}
