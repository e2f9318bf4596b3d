package prefs

import (
	"fmt"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/sirupsen/logrus"
)

// Storage backends selectable from configuration.
const (
	BackendFile = "file"
	BackendFyne = "fyne"
)

// Cache is a Store whose entries can be dropped.
type Cache interface {
	Store
	Delete(key string)
}

var _ Cache = (*Prefs)(nil)

// Open returns the baseline cache of backend. The file backend reads the
// JSON file at path; the fyne backend uses the preferences of the fyne
// application appID, shared with a fyne host running under the same id.
func Open(backend, path, appID string, logger *logrus.Logger) (Cache, error) {
	switch backend {
	case "", BackendFile:
		return Load(path, logger), nil
	case BackendFyne:
		return NewFyneStore(fyneapp.NewWithID(appID).Preferences()), nil
	default:
		return nil, fmt.Errorf("unknown prefs backend %q", backend)
	}
}

// Describe names where c keeps its entries, for log output.
func Describe(c Cache) string {
	if p, ok := c.(*Prefs); ok {
		return p.Path()
	}
	return "fyne preferences"
}
