// Package persona holds the profile the content prompts are written for.
package persona

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type Owner struct {
	Name  string   `yaml:"name"`
	Bio   string   `yaml:"bio"`
	Tools []string `yaml:"tools"`
}

type Persona struct {
	Role            string   `yaml:"role"`
	Goal            string   `yaml:"goal"`
	Owner           Owner    `yaml:"owner"`
	Audience        string   `yaml:"audience"`
	SearchQueries   []string `yaml:"search_queries"`
	Guidelines      []string `yaml:"guidelines"`
	ImageGuidelines []string `yaml:"image_guidelines"`
}

// Default returns the embedded persona.
func Default() (*Persona, error) {
	return Parse(defaultYAML)
}

// Load reads a persona file; an empty path yields the embedded default.
func Load(path string) (*Persona, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("persona: parse: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Persona) validate() error {
	if strings.TrimSpace(p.Role) == "" {
		return fmt.Errorf("persona: role is required")
	}
	if len(p.SearchQueries) == 0 {
		return fmt.Errorf("persona: at least one search query is required")
	}
	return nil
}
