package fedavg

import (
	"fmt"
	"os"

	"github.com/absmach/fedavg/pkg/params"
	"github.com/pelletier/go-toml"
)

type Config struct {
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Model       ModelConfig       `toml:"model"`
}

type CoordinatorConfig struct {
	ClientID string `toml:"client_id"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// ModelConfig lists the trainable layers every update must match.
type ModelConfig struct {
	Layers []params.LayerSpec `toml:"layers"`
}

func (c ModelConfig) Architecture() params.Architecture {
	return params.Architecture(c.Layers)
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(cfg.Model.Layers) > 0 {
		if err := cfg.Model.Architecture().Validate(); err != nil {
			return nil, fmt.Errorf("invalid model in config file: %w", err)
		}
	}

	return &cfg, nil
}

func SaveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
