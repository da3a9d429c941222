package core

import (
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed seed/default_categories.yaml
var defaultCategoriesYAML []byte

// CategorySeed is one entry of a category seed file.
type CategorySeed struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
	Icon  string `yaml:"icon"`
	Kind  Kind   `yaml:"kind"`
}

type categorySeedFile struct {
	Categories []CategorySeed `yaml:"categories"`
}

var (
	defaultSeedOnce sync.Once
	defaultSeed     []CategorySeed
	defaultSeedErr  error
)

// LoadCategorySeeds decodes a YAML seed file and validates every entry.
func LoadCategorySeeds(r io.Reader) ([]CategorySeed, error) {
	var f categorySeedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode category seed: %w", err)
	}
	for i, s := range f.Categories {
		c := Category{Name: s.Name, Color: s.Color, Kind: s.Kind, OwnerID: "seed"}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("category seed %d (%q): %w", i, s.Name, err)
		}
	}
	return f.Categories, nil
}

// DefaultCategorySeeds returns the built-in seed set.
func DefaultCategorySeeds() []CategorySeed {
	defaultSeedOnce.Do(func() {
		var f categorySeedFile
		if err := yaml.Unmarshal(defaultCategoriesYAML, &f); err != nil {
			defaultSeedErr = err
			return
		}
		defaultSeed = f.Categories
	})
	if defaultSeedErr != nil {
		// The file is embedded at build time; a decode failure is a build defect.
		panic(fmt.Sprintf("decode embedded category seed: %v", defaultSeedErr))
	}
	return append([]CategorySeed(nil), defaultSeed...)
}

// DefaultCategories builds the default categories of ownerID. IDs are left
// empty for the caller to assign.
func DefaultCategories(ownerID string) []Category {
	seeds := DefaultCategorySeeds()
	out := make([]Category, len(seeds))
	for i, s := range seeds {
		out[i] = Category{
			Name:      s.Name,
			Color:     s.Color,
			Icon:      s.Icon,
			Kind:      s.Kind,
			IsDefault: true,
			OwnerID:   ownerID,
		}
	}
	return out
}
