package zone

import (
	"fmt"

	"psoriasis-draw/pkg/geometry"
)

// Region is the part of the body a joint map covers.
type Region string

const (
	AboveTheWaist Region = "aboveTheWaist"
	BelowTheWaist Region = "belowTheWaist"
	Hands         Region = "hands"
	Feet          Region = "feet"
	FullBody      Region = "fullBody"
)

// Subregion distinguishes sides for regions that have one.
type Subregion string

const (
	Left        Subregion = "left"
	Right       Subregion = "right"
	NoSubregion Subregion = "none"
)

// defaultJointSize is the button side used when a map omits jointSize.
const defaultJointSize = 40

// Joint is a tappable joint button, positioned by its center.
type Joint struct {
	Identifier string           `json:"identifier" yaml:"identifier"`
	Center     geometry.Point2D `json:"center" yaml:"center"`
	IsSelected bool             `json:"isSelected" yaml:"isSelected"`
}

// JointMap places equally sized joint buttons over a region image.
type JointMap struct {
	Region    Region        `json:"region" yaml:"region"`
	Subregion Subregion     `json:"subregion" yaml:"subregion"`
	ImageSize geometry.Size `json:"imageSize" yaml:"imageSize"`
	// JointCircleCount is the number of concentric translucent circles drawn
	// for each joint. Zero is treated as one solid circle.
	JointCircleCount int           `json:"jointCircleCount,omitempty" yaml:"jointCircleCount,omitempty"`
	JointSize        geometry.Size `json:"jointSize" yaml:"jointSize"`
	Joints           []Joint       `json:"joints" yaml:"joints"`
}

// Identifier names the map after its region and, when set, its side.
func (j JointMap) Identifier() string {
	if j.Subregion == "" || j.Subregion == NoSubregion {
		return string(j.Region)
	}
	return fmt.Sprintf("%s%s", j.Region, j.Subregion)
}

// Zones converts the joint buttons into rectangular zones centered on each
// joint, so joints go through the same selection pipeline as body zones.
func (j JointMap) Zones() Map {
	size := j.JointSize
	if size.IsEmpty() {
		size = geometry.NewSize(defaultJointSize, defaultJointSize)
	}
	m := Map{
		Identifier: j.Identifier(),
		ImageSize:  j.ImageSize,
		Zones:      make([]Zone, len(j.Joints)),
	}
	for i, joint := range j.Joints {
		m.Zones[i] = Zone{
			Identifier: joint.Identifier,
			Label:      joint.Identifier,
			Origin:     joint.Center.Sub(geometry.NewPoint2D(size.Width/2, size.Height/2)),
			Dimensions: size,
			IsSelected: joint.IsSelected,
		}
	}
	return m
}

// Ring is one concentric circle of a joint button.
type Ring struct {
	Alpha float64
	Rect  geometry.Rect
}

// Rings returns the concentric circles of a joint button, outermost first.
// Each inner ring is smaller and more opaque; the innermost is fully opaque.
func (j JointMap) Rings() []Ring {
	count := j.JointCircleCount
	if count < 1 {
		count = 1
	}
	w, h := j.JointSize.Width, j.JointSize.Height
	if j.JointSize.IsEmpty() {
		w, h = defaultJointSize, defaultJointSize
	}

	factor := 1 / float64(count)
	rings := make([]Ring, count)
	for i := range rings {
		f := float64(i) * factor
		rings[i] = Ring{
			Alpha: float64(i+1) * factor,
			Rect:  geometry.NewRect(w*f*0.5, h*f*0.5, w-w*f, h-h*f),
		}
	}
	return rings
}
