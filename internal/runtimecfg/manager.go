// Package runtimecfg holds the config of a running server and applies
// partial updates posted from the HTTP API.
package runtimecfg

import (
	"sync"

	"github.com/pcdogyu/tradecal/internal/config"
)

// Manager serves the effective config (file, env overrides, defaults) and
// writes patches back to the config file. Only patched keys reach the file;
// env overrides and defaults stay out of it.
type Manager struct {
	path string
	mu   sync.RWMutex
	cfg  config.Config
}

func Load(path string) (*Manager, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, cfg: cfg}, nil
}

// NewStatic keeps updates in memory only.
func NewStatic(cfg config.Config) *Manager {
	return &Manager{cfg: cfg}
}

func (m *Manager) Get() config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Update applies p to the effective config and, for a file-backed manager,
// to the file. Nothing changes when validation or the write fails.
func (m *Manager) Update(p Patch) (config.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.cfg
	p.Apply(&cfg)
	if err := config.NormalizeAndValidate(&cfg); err != nil {
		return config.Config{}, err
	}

	if m.path != "" {
		if err := m.persistLocked(p); err != nil {
			return config.Config{}, err
		}
	}
	m.cfg = cfg
	return cfg, nil
}

func (m *Manager) persistLocked(p Patch) error {
	onDisk, err := config.ReadFile(m.path)
	if err != nil {
		return err
	}
	p.Apply(&onDisk)
	return config.Save(m.path, onDisk)
}
