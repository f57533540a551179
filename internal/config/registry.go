package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

// Site is a facility whose prefecture is forecast.
type Site struct {
	Name       string `toml:"name" yaml:"name"`
	Prefecture string `toml:"prefecture" yaml:"prefecture"`
}

// Registry is the site registry file: the facilities to cover and an optional
// warning whitelist override.
type Registry struct {
	Sites    []Site            `toml:"sites" yaml:"sites"`
	Warnings map[string]string `toml:"warnings" yaml:"warnings"`
}

// LoadRegistry reads a TOML (.toml) or YAML (.yaml, .yml) site registry.
func LoadRegistry(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site registry: %w", err)
	}

	var reg Registry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(b, &reg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &reg)
	default:
		return nil, fmt.Errorf("site registry %s: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse site registry %s: %w", path, err)
	}

	for i, s := range reg.Sites {
		if !prefectureCode.MatchString(s.Prefecture) {
			return nil, fmt.Errorf("site registry %s: sites[%d] %q: invalid prefecture code %q", path, i, s.Name, s.Prefecture)
		}
	}
	return &reg, nil
}

// Prefectures returns the prefecture codes of all sites in file order, without duplicates.
func (r *Registry) Prefectures() []string {
	codes := make([]string, 0, len(r.Sites))
	for _, s := range r.Sites {
		codes = append(codes, s.Prefecture)
	}
	return dedupe(codes)
}

// Whitelist returns the warning whitelist for this deployment: the registry
// override when present, the default list otherwise.
func (c *Config) Whitelist() domain.Whitelist {
	if c.Sites != nil && len(c.Sites.Warnings) > 0 {
		return domain.NewWhitelist(c.Sites.Warnings)
	}
	return domain.DefaultWhitelist()
}
