// Package analyzer classifies diff hunks into change categories and scores
// how likely each one is to leave documentation stale.
package analyzer

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Category is the kind of change a hunk represents.
type Category string

const (
	CategoryAPIChange       Category = "api_change"
	CategoryConfigChange    Category = "config_change"
	CategorySignatureChange Category = "function_signature_change"
	CategoryBehaviorChange  Category = "behavior_change"
	CategoryRemoval         Category = "removal"
	CategoryCosmetic        Category = "cosmetic"
)

var categoryWeights = map[Category]float64{
	CategoryCosmetic:        0.05,
	CategoryBehaviorChange:  0.57,
	CategoryConfigChange:    0.6,
	CategorySignatureChange: 0.75,
	CategoryAPIChange:       0.9,
	CategoryRemoval:         0.9,
}

var categoryPhrases = map[Category]string{
	CategoryCosmetic:        "Cosmetic change",
	CategoryBehaviorChange:  "Behavior change",
	CategoryConfigChange:    "Configuration change",
	CategorySignatureChange: "Function signature change",
	CategoryAPIChange:       "API change",
	CategoryRemoval:         "Removal",
}

// Weight is the category's share of the significance score.
func (c Category) Weight() float64 {
	return categoryWeights[c]
}

// Phrase is the category as it appears in summaries.
func (c Category) Phrase() string {
	if p, ok := categoryPhrases[c]; ok {
		return p
	}
	return string(c)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryWeights[c]
	return ok
}

// HighRisk reports whether a change of this category makes undated
// documentation suspect.
func (c Category) HighRisk() bool {
	return c == CategoryAPIChange || c == CategoryRemoval || c == CategorySignatureChange
}

// UnmarshalYAML rejects unknown categories in rule files.
func (c *Category) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	cat := Category(s)
	if !cat.Valid() {
		return fmt.Errorf("line %d: unknown category %q", node.Line, s)
	}
	*c = cat
	return nil
}
