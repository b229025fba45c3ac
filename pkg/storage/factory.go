package storage

import "fmt"

type Config struct {
	Type       string `env:"FEDAVG_HISTORY"     envDefault:"memory"`
	BadgerPath string `env:"FEDAVG_HISTORY_DIR" envDefault:"./data/history"`
}

// New returns the history backend selected by cfg.Type.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "badger":
		return NewBadgerStorage(cfg.BadgerPath)
	case "memory", "":
		return NewInMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
