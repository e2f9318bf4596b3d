// Package prefs provides the durable key-value store that full-coverage
// baselines are cached in.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

const prefsFile = "preferences.json"

// Store is a string-keyed store of integers and integer lists.
type Store interface {
	IntList(key string) ([]int, bool)
	SetIntList(key string, val []int)
	Int(key string) (int, bool)
	SetInt(key string, val int)
}

// BaselineKey builds the cache key of a full-coverage baseline for one
// rendering resolution.
func BaselineKey(namespace string, width, height int) string {
	return fmt.Sprintf("%s%d%d", namespace, width, height)
}

// DefaultPath returns ~/.config/psoriasis-draw/preferences.json.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "psoriasis-draw", prefsFile)
}

// Prefs stores preferences as a key-value map backed by a JSON file.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
	logger *logrus.Logger

	// AutoSave writes the file after every setter call.
	AutoSave bool
}

var _ Store = (*Prefs)(nil)

// Load reads preferences from path (DefaultPath when empty). A missing file
// yields empty preferences; an unreadable one is logged and ignored.
func Load(path string, logger *logrus.Logger) *Prefs {
	if path == "" {
		path = DefaultPath()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	p := &Prefs{
		values: make(map[string]interface{}),
		path:   path,
		logger: logger,
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WithError(err).Warn("Failed to read preferences")
		}
		return p
	}
	if err := json.Unmarshal(data, &p.values); err != nil {
		logger.WithError(err).WithField("path", p.path).Warn("Ignoring malformed preferences")
		p.values = make(map[string]interface{})
	}
	return p
}

// NewMemory returns preferences that are never written to disk.
func NewMemory() *Prefs {
	return &Prefs{
		values: make(map[string]interface{}),
		logger: logrus.StandardLogger(),
	}
}

// Path returns the backing file path.
func (p *Prefs) Path() string {
	return p.path
}

// Save writes preferences to disk. In-memory preferences are not saved.
func (p *Prefs) Save() error {
	if p.path == "" {
		return nil
	}
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

func (p *Prefs) set(key string, val interface{}) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()

	if p.AutoSave {
		if err := p.Save(); err != nil {
			p.logger.WithError(err).WithField("key", key).Warn("Failed to save preferences")
		}
	}
}

// Int returns an integer preference.
func (p *Prefs) Int(key string) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// SetInt stores an integer preference.
func (p *Prefs) SetInt(key string, val int) {
	p.set(key, val)
}

// IntList returns an integer list preference.
func (p *Prefs) IntList(key string) ([]int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	if !ok {
		return nil, false
	}
	switch l := v.(type) {
	case []int:
		return append([]int(nil), l...), true
	case []interface{}:
		out := make([]int, 0, len(l))
		for _, e := range l {
			n, ok := toInt(e)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	}
	return nil, false
}

// SetIntList stores an integer list preference.
func (p *Prefs) SetIntList(key string, val []int) {
	p.set(key, append([]int(nil), val...))
}

// Delete removes a preference.
func (p *Prefs) Delete(key string) {
	p.mu.Lock()
	delete(p.values, key)
	p.mu.Unlock()
}

// JSON numbers decode as float64.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
