// Package catalog holds the weighted skill categories used for composite scoring.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog errors.
var (
	ErrEmptyCatalog   = errors.New("skill catalog is empty")
	ErrInvalidWeight  = errors.New("skill weight must be positive")
	ErrDuplicateSkill = errors.New("duplicate skill name")
	ErrUnnamedSkill   = errors.New("skill name is empty")
)

// Themes group skills for display. Scoring treats the catalog as flat.
const (
	ThemeCoreReasoning       = "core-reasoning"
	ThemeInformationLiteracy = "information-literacy"
	ThemeArgumentation       = "argumentation"
	ThemeDecisionMaking      = "decision-making"
)

// SkillCategory is one weighted skill.
type SkillCategory struct {
	Name        string  `yaml:"name" json:"name"`
	Category    string  `yaml:"category" json:"category"`
	Weight      float64 `yaml:"weight" json:"weight"`
	Description string  `yaml:"description" json:"description"`
}

// Catalog is an immutable, ordered set of skill categories.
type Catalog struct {
	skills  []SkillCategory
	weights map[string]float64
}

// New builds a catalog, rejecting empty names, non-positive weights and duplicates.
func New(skills []SkillCategory) (*Catalog, error) {
	if len(skills) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		skills:  make([]SkillCategory, 0, len(skills)),
		weights: make(map[string]float64, len(skills)),
	}
	for _, s := range skills {
		if s.Name == "" {
			return nil, ErrUnnamedSkill
		}
		if !(s.Weight > 0) {
			return nil, fmt.Errorf("%w: %q has weight %v", ErrInvalidWeight, s.Name, s.Weight)
		}
		if _, dup := c.weights[s.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSkill, s.Name)
		}
		c.weights[s.Name] = s.Weight
		c.skills = append(c.skills, s)
	}
	return c, nil
}

// Weight returns the weight for name and whether it is a known skill.
// Unknown skills weigh zero.
func (c *Catalog) Weight(name string) (float64, bool) {
	w, ok := c.weights[name]
	return w, ok
}

// Skills returns a copy of the categories in catalog order.
func (c *Catalog) Skills() []SkillCategory {
	return append([]SkillCategory(nil), c.skills...)
}

// Len returns the number of categories.
func (c *Catalog) Len() int { return len(c.skills) }

type fileFormat struct {
	Skills []SkillCategory `yaml:"skills"`
}

// LoadFile reads a YAML catalog of the form `skills: [{name, category, weight, description}]`.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill catalog: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse skill catalog %s: %w", path, err)
	}
	return New(f.Skills)
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultSkills())
	if err != nil {
		panic(err) // static table
	}
	return c
}

func defaultSkills() []SkillCategory {
	return []SkillCategory{
		{Name: "Logical Reasoning", Category: ThemeCoreReasoning, Weight: 1.2, Description: "Drawing valid conclusions from premises"},
		{Name: "Deductive Reasoning", Category: ThemeCoreReasoning, Weight: 1.1, Description: "Moving from general rules to specific cases"},
		{Name: "Inductive Reasoning", Category: ThemeCoreReasoning, Weight: 1.0, Description: "Forming general rules from observations"},
		{Name: "Pattern Recognition", Category: ThemeCoreReasoning, Weight: 0.9, Description: "Spotting regularities and anomalies"},

		{Name: "Evidence Evaluation", Category: ThemeInformationLiteracy, Weight: 1.1, Description: "Weighing how strongly evidence supports a claim"},
		{Name: "Source Credibility", Category: ThemeInformationLiteracy, Weight: 1.0, Description: "Judging whether a source can be trusted"},
		{Name: "Bias Detection", Category: ThemeInformationLiteracy, Weight: 1.0, Description: "Noticing slanted or one-sided information"},
		{Name: "Fact Checking", Category: ThemeInformationLiteracy, Weight: 1.0, Description: "Verifying claims against reliable information"},

		{Name: "Argument Construction", Category: ThemeArgumentation, Weight: 1.0, Description: "Building a clear case with reasons"},
		{Name: "Counterargument Analysis", Category: ThemeArgumentation, Weight: 1.0, Description: "Understanding and answering the other side"},
		{Name: "Perspective Taking", Category: ThemeArgumentation, Weight: 0.9, Description: "Seeing an issue from other viewpoints"},

		{Name: "Consequence Analysis", Category: ThemeDecisionMaking, Weight: 1.0, Description: "Thinking through what a choice leads to"},
		{Name: "Ethical Reasoning", Category: ThemeDecisionMaking, Weight: 0.9, Description: "Weighing right and wrong in a decision"},
		{Name: "Problem Solving", Category: ThemeDecisionMaking, Weight: 1.1, Description: "Breaking a problem into steps and solving it"},
	}
}
