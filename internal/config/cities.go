package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CityCatalogue is the on-disk shape of CITIES_FILE.
type CityCatalogue struct {
	Cities []string `yaml:"cities"`
}

// DefaultCities returns the built-in catalogue offered to clients.
func DefaultCities() []string {
	return []string{"Milano", "Roma", "Napoli", "Bologna", "Firenze"}
}

// LoadCities reads a YAML city catalogue. Blank and repeated entries are dropped.
func LoadCities(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cities file: %w", err)
	}

	var catalogue CityCatalogue
	if err := yaml.Unmarshal(data, &catalogue); err != nil {
		return nil, fmt.Errorf("parse cities file: %w", err)
	}

	seen := make(map[string]struct{}, len(catalogue.Cities))
	cities := make([]string, 0, len(catalogue.Cities))
	for _, raw := range catalogue.Cities {
		city := strings.TrimSpace(raw)
		if city == "" {
			continue
		}
		key := strings.ToLower(city)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cities = append(cities, city)
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("cities file %s lists no cities", path)
	}
	return cities, nil
}
