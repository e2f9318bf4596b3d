// Package zone describes the named rectangular areas of a body-region image
// that a participant can select, either by tapping them or by drawing over
// them.
package zone

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"psoriasis-draw/pkg/geometry"
)

var (
	// ErrDuplicateZone is returned when two zones in one map share an identifier.
	ErrDuplicateZone = errors.New("duplicate zone identifier")
	// ErrUnknownZone marks a reference to a zone the base map does not contain.
	ErrUnknownZone = errors.New("unknown zone identifier")
)

// Zone is one named rectangle, in the coordinate space of its map's ImageSize.
type Zone struct {
	Identifier string           `json:"identifier" yaml:"identifier"`
	Label      string           `json:"label" yaml:"label"`
	Origin     geometry.Point2D `json:"origin" yaml:"origin"`
	Dimensions geometry.Size    `json:"dimensions" yaml:"dimensions"`
	IsSelected bool             `json:"isSelected" yaml:"isSelected"`
}

// Rect returns the zone rectangle in image space.
func (z Zone) Rect() geometry.Rect {
	return geometry.RectFrom(z.Origin, z.Dimensions)
}

// Center returns the zone center in image space.
func (z Zone) Center() geometry.Point2D {
	return z.Rect().Center()
}

// Map is the zone layout of one body region. Zone order is significant and is
// preserved by every operation.
type Map struct {
	Identifier string        `json:"identifier" yaml:"identifier"`
	ImageSize  geometry.Size `json:"imageSize" yaml:"imageSize"`
	Zones      []Zone        `json:"zones" yaml:"zones"`
}

// Validate checks that zone identifiers are unique and non-empty.
func (m Map) Validate() error {
	seen := make(map[string]struct{}, len(m.Zones))
	for i, z := range m.Zones {
		if z.Identifier == "" {
			return fmt.Errorf("zone %d of %q has no identifier", i, m.Identifier)
		}
		if _, ok := seen[z.Identifier]; ok {
			return fmt.Errorf("%w: %q in %q", ErrDuplicateZone, z.Identifier, m.Identifier)
		}
		seen[z.Identifier] = struct{}{}
	}
	return nil
}

// Zone looks a zone up by identifier.
func (m Map) Zone(identifier string) (Zone, bool) {
	for _, z := range m.Zones {
		if z.Identifier == identifier {
			return z, true
		}
	}
	return Zone{}, false
}

// Clone returns a deep copy of the map.
func (m Map) Clone() Map {
	out := m
	out.Zones = append([]Zone(nil), m.Zones...)
	return out
}

// WithSelection returns a copy of the map whose zones are selected exactly
// when their identifier is true in selected. The receiver is not modified.
func (m Map) WithSelection(selected map[string]bool) Map {
	out := m.Clone()
	for i := range out.Zones {
		out.Zones[i].IsSelected = selected[out.Zones[i].Identifier]
	}
	return out
}

// Selected returns the selected zones in map order.
func (m Map) Selected() []Zone {
	var out []Zone
	for _, z := range m.Zones {
		if z.IsSelected {
			out = append(out, z)
		}
	}
	return out
}

// SelectedIdentifier is the per-zone entry of a selection summary result.
type SelectedIdentifier struct {
	Identifier string `json:"identifier"`
	IsSelected bool   `json:"isSelected"`
}

// SelectedIdentifiers summarizes every zone's selection state in map order.
func (m Map) SelectedIdentifiers() []SelectedIdentifier {
	out := make([]SelectedIdentifier, len(m.Zones))
	for i, z := range m.Zones {
		out[i] = SelectedIdentifier{Identifier: z.Identifier, IsSelected: z.IsSelected}
	}
	return out
}

// ApplyCompletion marks zones of base as selected according to a region
// completion map. Identifiers that base does not contain are skipped with a
// warning; the returned error joins one ErrUnknownZone per skipped entry so
// callers may inspect them, but the returned map is always usable.
func ApplyCompletion(base Map, selected map[string]bool, logger *logrus.Logger) (Map, error) {
	out := base.Clone()
	index := make(map[string]int, len(out.Zones))
	for i, z := range out.Zones {
		index[z.Identifier] = i
	}

	var errs []error
	for id, isSelected := range selected {
		i, ok := index[id]
		if !ok {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"region":     base.Identifier,
					"identifier": id,
				}).Warn("Skipping completion for unknown zone")
			}
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownZone, id))
			continue
		}
		out.Zones[i].IsSelected = isSelected
	}
	return out, errors.Join(errs...)
}
