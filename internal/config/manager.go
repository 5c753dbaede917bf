package config

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Manager hands out configuration snapshots and supports reloading from
// the backing file. Components read a snapshot per request, so a reload
// never mutates a value a caller already holds.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// NewManager creates a Manager serving cfg, reloadable from path.
func NewManager(path string, cfg Config) *Manager {
	return &Manager{path: path, cfg: cfg}
}

// Get returns the current configuration snapshot.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Reload re-reads the backing file. On failure the previous
// configuration stays in effect.
func (m *Manager) Reload() error {
	cfg, err := Load(m.path)
	if err != nil {
		log.Warn().Err(err).Str("path", m.path).Msg("Config reload failed, keeping previous")
		return err
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	log.Info().Str("path", m.path).Msg("Configuration reloaded")
	return nil
}
