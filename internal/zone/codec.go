package zone

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a zone map from a .json, .yaml or .yml file and validates it.
func Load(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return Map{}, fmt.Errorf("failed to open zone map: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(f)
	default:
		return Decode(f)
	}
}

// Decode reads a JSON zone map and validates it.
func Decode(r io.Reader) (Map, error) {
	var m Map
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Map{}, fmt.Errorf("failed to decode zone map: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Map{}, err
	}
	return m, nil
}

// DecodeYAML reads a YAML zone map and validates it.
func DecodeYAML(r io.Reader) (Map, error) {
	var m Map
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return Map{}, fmt.Errorf("failed to decode zone map: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Map{}, err
	}
	return m, nil
}

// Encode writes m as indented JSON.
func Encode(w io.Writer, m Map) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode zone map: %w", err)
	}
	return nil
}

// EncodeYAML writes m as YAML.
func EncodeYAML(w io.Writer, m Map) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode zone map: %w", err)
	}
	return enc.Close()
}

// LoadJointMap reads a joint map from a .json, .yaml or .yml file.
func LoadJointMap(path string) (JointMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return JointMap{}, fmt.Errorf("failed to read joint map: %w", err)
	}

	var j JointMap
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &j)
	default:
		err = json.Unmarshal(data, &j)
	}
	if err != nil {
		return JointMap{}, fmt.Errorf("failed to decode joint map: %w", err)
	}
	if err := j.Zones().Validate(); err != nil {
		return JointMap{}, err
	}
	return j, nil
}
