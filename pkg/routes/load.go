package routes

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type routesFile struct {
	Routes map[string]string `yaml:"routes"`
}

// LoadFile reads a YAML route file of the form
//
//	routes:
//	  "931_": MBTA Line Red
//
// and returns the resulting TagMap.
func LoadFile(path string) (*TagMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file %s: %w", path, err)
	}

	m, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("routes file %s: %w", path, err)
	}
	return m, nil
}

// LoadBytes parses YAML route data from raw bytes.
func LoadBytes(data []byte) (*TagMap, error) {
	var f routesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse routes data: %w", err)
	}

	m := New(f.Routes)
	if m.Len() == 0 {
		return nil, fmt.Errorf("no routes defined")
	}
	return m, nil
}
