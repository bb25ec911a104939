package seed

import (
	_ "embed"
	"fmt"

	"yatube/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed groups.yml
var builtInGroupsYAML []byte

// GroupFixture describes a group created by the seeder.
type GroupFixture struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

type groupFile struct {
	Groups []GroupFixture `yaml:"groups"`
}

// BuiltInGroups returns the embedded group fixtures.
func BuiltInGroups() ([]GroupFixture, error) {
	return ParseGroups(builtInGroupsYAML)
}

// ParseGroups decodes and validates a YAML group fixture document.
func ParseGroups(data []byte) ([]GroupFixture, error) {
	var file groupFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse group fixtures: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Groups))
	for i, g := range file.Groups {
		if err := validation.ValidateGroupSlug(g.Slug); err != nil {
			return nil, fmt.Errorf("group fixture %d: %w", i, err)
		}
		if err := validation.ValidateGroupTitle(g.Title); err != nil {
			return nil, fmt.Errorf("group fixture %s: %w", g.Slug, err)
		}
		if _, dup := seen[g.Slug]; dup {
			return nil, fmt.Errorf("group fixture %s: duplicate slug", g.Slug)
		}
		seen[g.Slug] = struct{}{}
	}
	return file.Groups, nil
}
