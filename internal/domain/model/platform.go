package model

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"stock-metadata-generator/internal/domain"
)

type Platform string

const (
	PlatformAdobe        Platform = "adobe"
	PlatformShutterstock Platform = "shutterstock"
	PlatformFreepik      Platform = "freepik"
)

// ParsePlatform normalizes user input into a Platform identifier.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformAdobe, PlatformShutterstock, PlatformFreepik:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, s)
}

// PlatformConfig holds the hard bounds and prompt template for a marketplace.
type PlatformConfig struct {
	ID          Platform `yaml:"id"`
	Name        string   `yaml:"name"`
	TitleMin    int      `yaml:"title_min"`
	TitleMax    int      `yaml:"title_max"`
	DescMax     int      `yaml:"desc_max"`
	KeywordsMin int      `yaml:"keywords_min"`
	KeywordsMax int      `yaml:"keywords_max"`
	Prompt      string   `yaml:"prompt"`
}

//go:embed platforms.yaml
var defaultCatalog []byte

// Catalog is the immutable set of platform configs loaded at startup.
type Catalog struct {
	order   []Platform
	configs map[Platform]PlatformConfig
}

// DefaultCatalog parses the embedded platform definitions.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// MustDefaultCatalog panics if the embedded catalog is broken.
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

func ParseCatalog(b []byte) (*Catalog, error) {
	var doc struct {
		Platforms []PlatformConfig `yaml:"platforms"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse platform catalog: %w", err)
	}
	c := &Catalog{configs: make(map[Platform]PlatformConfig, len(doc.Platforms))}
	for _, pc := range doc.Platforms {
		if _, err := ParsePlatform(string(pc.ID)); err != nil {
			return nil, err
		}
		if pc.TitleMax <= 0 || pc.DescMax <= 0 {
			return nil, fmt.Errorf("%w: platform %s needs title_max and desc_max", domain.ErrInvalidArgument, pc.ID)
		}
		if _, dup := c.configs[pc.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate platform %s", domain.ErrInvalidArgument, pc.ID)
		}
		c.order = append(c.order, pc.ID)
		c.configs[pc.ID] = pc
	}
	return c, nil
}

// Get returns the config for p.
func (c *Catalog) Get(p Platform) (PlatformConfig, bool) {
	pc, ok := c.configs[p]
	return pc, ok
}

// Platforms lists the known platforms in catalog order.
func (c *Catalog) Platforms() []Platform {
	return append([]Platform(nil), c.order...)
}
