package service

import (
	"fmt"
	"os"

	"github.com/skuehn/mapgraph/lib/settings"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration file of the service binary. The
// mapper block supplies the default pipeline settings; requests may
// override them per call.
type Config struct {
	ListenAddress  string                  `yaml:"listenAddress"`
	MetricsAddress string                  `yaml:"metricsAddress"`
	TimeoutSeconds int                     `yaml:"timeoutSeconds"`
	Mapper         settings.MapperSettings `yaml:"mapper"`
}

// LoadConfig reads and parses a YAML config file and applies the
// pipeline defaults to the mapper block.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.Mapper = cfg.Mapper.ApplyDefaults()
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":9201"
	}
	if cfg.MetricsAddress == "" {
		cfg.MetricsAddress = ":9203"
	}
	return &cfg, nil
}
