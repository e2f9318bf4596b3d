package zone

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psoriasis-draw/pkg/geometry"
)

func sampleMap() Map {
	return Map{
		Identifier: "aboveTheWaistFront",
		ImageSize:  geometry.NewSize(375, 471),
		Zones: []Zone{
			{Identifier: "head", Label: "Head", Origin: geometry.NewPoint2D(150, 0), Dimensions: geometry.NewSize(75, 90)},
			{Identifier: "chest", Label: "Chest", Origin: geometry.NewPoint2D(110, 120), Dimensions: geometry.NewSize(155, 80.5), IsSelected: true},
			{Identifier: "leftArm", Label: "Left arm", Origin: geometry.NewPoint2D(20, 110), Dimensions: geometry.NewSize(60, 240)},
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	m := sampleMap()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, m))
	got, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, m, got)
}

func TestYAMLRoundTrip(t *testing.T) {
	m := sampleMap()

	var buf bytes.Buffer
	require.NoError(t, EncodeYAML(&buf, m))
	got, err := DecodeYAML(&buf)
	require.NoError(t, err)

	assert.Equal(t, m, got)
}

func TestDecodeKeys(t *testing.T) {
	const doc = `{
		"identifier": "belowTheWaistBack",
		"imageSize": {"width": 100, "height": 200},
		"zones": [
			{"identifier": "leftLeg", "label": "Left leg",
			 "origin": {"x": 1, "y": 2}, "dimensions": {"width": 3, "height": 4}}
		]
	}`
	m, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "belowTheWaistBack", m.Identifier)
	assert.Equal(t, geometry.NewSize(100, 200), m.ImageSize)
	require.Len(t, m.Zones, 1)
	assert.Equal(t, geometry.NewRect(1, 2, 3, 4), m.Zones[0].Rect())
	assert.False(t, m.Zones[0].IsSelected)
}

func TestDecodeRejectsDuplicates(t *testing.T) {
	const doc = `{"identifier": "x", "zones": [{"identifier": "a"}, {"identifier": "a"}]}`
	_, err := Decode(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrDuplicateZone)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	m := sampleMap()

	var jsonBuf, yamlBuf bytes.Buffer
	require.NoError(t, Encode(&jsonBuf, m))
	require.NoError(t, EncodeYAML(&yamlBuf, m))
	jsonPath := filepath.Join(dir, "zones.json")
	yamlPath := filepath.Join(dir, "zones.yaml")
	require.NoError(t, os.WriteFile(jsonPath, jsonBuf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, yamlBuf.Bytes(), 0o644))

	fromJSON, err := Load(jsonPath)
	require.NoError(t, err)
	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromYAML)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestWithSelectionIsImmutable(t *testing.T) {
	m := sampleMap()
	next := m.WithSelection(map[string]bool{"head": true})

	assert.True(t, next.Zones[0].IsSelected)
	assert.False(t, next.Zones[1].IsSelected)
	assert.False(t, m.Zones[0].IsSelected)
	assert.True(t, m.Zones[1].IsSelected)

	require.Len(t, next.Selected(), 1)
	assert.Equal(t, "head", next.Selected()[0].Identifier)
	assert.Equal(t, []SelectedIdentifier{
		{Identifier: "head", IsSelected: true},
		{Identifier: "chest", IsSelected: false},
		{Identifier: "leftArm", IsSelected: false},
	}, next.SelectedIdentifiers())
}

func TestApplyCompletionSkipsUnknown(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m := sampleMap()

	got, err := ApplyCompletion(m, map[string]bool{"leftArm": true, "tail": true}, logger)
	assert.ErrorIs(t, err, ErrUnknownZone)
	assert.True(t, got.Zones[2].IsSelected)
	assert.True(t, got.Zones[1].IsSelected)
	assert.Len(t, got.Zones, 3)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "tail", hook.LastEntry().Data["identifier"])

	_, err = ApplyCompletion(m, map[string]bool{"head": true}, nil)
	assert.NoError(t, err)
}

func TestJointMapZones(t *testing.T) {
	j := JointMap{
		Region:           Hands,
		Subregion:        Left,
		ImageSize:        geometry.NewSize(200, 200),
		JointCircleCount: 2,
		JointSize:        geometry.NewSize(10, 10),
		Joints: []Joint{
			{Identifier: "thumb", Center: geometry.NewPoint2D(50, 50)},
			{Identifier: "wrist", Center: geometry.NewPoint2D(100, 180), IsSelected: true},
		},
	}
	m := j.Zones()
	assert.Equal(t, "handsleft", m.Identifier)
	require.Len(t, m.Zones, 2)
	assert.Equal(t, geometry.NewRect(45, 45, 10, 10), m.Zones[0].Rect())
	assert.Equal(t, geometry.NewPoint2D(100, 180), m.Zones[1].Center())
	assert.True(t, m.Zones[1].IsSelected)

	assert.Equal(t, "fullBody", JointMap{Region: FullBody, Subregion: NoSubregion}.Identifier())
}

func TestJointMapRings(t *testing.T) {
	j := JointMap{JointCircleCount: 2, JointSize: geometry.NewSize(40, 40)}
	rings := j.Rings()
	require.Len(t, rings, 2)
	assert.Equal(t, Ring{Alpha: 0.5, Rect: geometry.NewRect(0, 0, 40, 40)}, rings[0])
	assert.Equal(t, Ring{Alpha: 1, Rect: geometry.NewRect(10, 10, 20, 20)}, rings[1])

	solid := JointMap{}.Rings()
	require.Len(t, solid, 1)
	assert.Equal(t, 1.0, solid[0].Alpha)
}

func TestLoadJointMap(t *testing.T) {
	const doc = `
region: aboveTheWaist
subregion: none
imageSize: {width: 100, height: 100}
jointCircleCount: 3
jointSize: {width: 12, height: 12}
joints:
  - identifier: leftShoulder
    center: {x: 20, y: 30}
`
	path := filepath.Join(t.TempDir(), "joints.yml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	j, err := LoadJointMap(path)
	require.NoError(t, err)
	assert.Equal(t, AboveTheWaist, j.Region)
	assert.Equal(t, 3, j.JointCircleCount)
	require.Len(t, j.Joints, 1)
	assert.Equal(t, geometry.NewPoint2D(20, 30), j.Joints[0].Center)
}
