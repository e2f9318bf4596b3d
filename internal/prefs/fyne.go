package prefs

import (
	"math"

	"fyne.io/fyne/v2"
)

// absent is the fallback used to detect unset integer keys.
const absent = math.MinInt

// FyneStore adapts the preferences of a fyne application to Store, for hosts
// that embed the engine in a fyne UI.
type FyneStore struct {
	prefs fyne.Preferences
}

var _ Cache = FyneStore{}

// NewFyneStore wraps p.
func NewFyneStore(p fyne.Preferences) FyneStore {
	return FyneStore{prefs: p}
}

// IntList returns the list stored under key. Empty lists count as absent.
func (s FyneStore) IntList(key string) ([]int, bool) {
	l := s.prefs.IntListWithFallback(key, nil)
	if len(l) == 0 {
		return nil, false
	}
	return l, true
}

// SetIntList stores val under key.
func (s FyneStore) SetIntList(key string, val []int) {
	s.prefs.SetIntList(key, val)
}

// Int returns the integer stored under key.
func (s FyneStore) Int(key string) (int, bool) {
	v := s.prefs.IntWithFallback(key, absent)
	if v == absent {
		return 0, false
	}
	return v, true
}

// SetInt stores val under key.
func (s FyneStore) SetInt(key string, val int) {
	s.prefs.SetInt(key, val)
}

// Delete removes key.
func (s FyneStore) Delete(key string) {
	s.prefs.RemoveValue(key)
}
