package analyzer

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"docdrift/internal/apperrors"
	"docdrift/internal/gitdiff"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Rule is one entry of the ordered classification table. Every condition
// that is set must hold for the rule to match.
type Rule struct {
	Name        string               `yaml:"name"`
	Category    Category             `yaml:"category"`
	Paths       []string             `yaml:"paths,omitempty"`
	ChangeTypes []gitdiff.ChangeType `yaml:"change_types,omitempty"`
	Lines       []string             `yaml:"lines,omitempty"`
	AllLines    []string             `yaml:"all_lines,omitempty"`
	Predicate   string               `yaml:"predicate,omitempty"`
}

// RuleSet is the rule table plus the paths that never produce signals.
type RuleSet struct {
	Ignore []string `yaml:"ignore"`
	Rules  []Rule   `yaml:"rules"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() *RuleSet {
	rs, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in rules: %v", err))
	}
	return rs
}

// LoadRules reads a rule table from a YAML file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	rs, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rs, nil
}

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, apperrors.Invalid("rules", "%v", err)
	}
	if len(rs.Rules) == 0 {
		return nil, apperrors.Invalid("rules", "at least one rule is required")
	}
	if _, err := compileRules(&rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

type predicate func(h *gitdiff.Hunk) bool

var predicates = map[string]predicate{
	"whitespace_only": whitespaceOnly,
	"no_content":      func(h *gitdiff.Hunk) bool { return h.ChangedLines() == 0 },
	"pure_removal":    pureRemoval,
	"non_trivial":     func(h *gitdiff.Hunk) bool { return len(substantive(h.AddedLines))+len(substantive(h.RemovedLines)) > 0 },
}

type compiledRule struct {
	name        string
	category    Category
	paths       []*regexp.Regexp
	changeTypes map[gitdiff.ChangeType]bool
	lines       []*regexp.Regexp
	allLines    []*regexp.Regexp
	predicate   predicate
}

type compiledSet struct {
	ignore []*regexp.Regexp
	rules  []compiledRule
}

func compileRules(rs *RuleSet) (*compiledSet, error) {
	ignore, err := compileAll("ignore", rs.Ignore)
	if err != nil {
		return nil, err
	}
	out := &compiledSet{ignore: ignore}

	for i, r := range rs.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if r.Name != "" {
			field = fmt.Sprintf("rules[%s]", r.Name)
		}
		if !r.Category.Valid() {
			return nil, apperrors.Invalid(field, "unknown category %q", r.Category)
		}

		cr := compiledRule{name: r.Name, category: r.Category}
		if cr.paths, err = compileAll(field+".paths", r.Paths); err != nil {
			return nil, err
		}
		if cr.lines, err = compileAll(field+".lines", r.Lines); err != nil {
			return nil, err
		}
		if cr.allLines, err = compileAll(field+".all_lines", r.AllLines); err != nil {
			return nil, err
		}
		if len(r.ChangeTypes) > 0 {
			cr.changeTypes = make(map[gitdiff.ChangeType]bool, len(r.ChangeTypes))
			for _, ct := range r.ChangeTypes {
				cr.changeTypes[ct] = true
			}
		}
		if r.Predicate != "" {
			p, ok := predicates[r.Predicate]
			if !ok {
				return nil, apperrors.Invalid(field+".predicate", "unknown predicate %q", r.Predicate)
			}
			cr.predicate = p
		}
		out.rules = append(out.rules, cr)
	}
	return out, nil
}

func compileAll(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, apperrors.Invalid(field, "bad pattern %q: %v", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (r *compiledRule) matches(h *gitdiff.Hunk) bool {
	if len(r.paths) > 0 && !anyMatch(r.paths, h.FilePath) {
		return false
	}
	if r.changeTypes != nil && !r.changeTypes[h.ChangeType] {
		return false
	}
	if len(r.lines) > 0 && !anyLineMatches(r.lines, h) {
		return false
	}
	if len(r.allLines) > 0 && !allLinesMatch(r.allLines, h) {
		return false
	}
	if r.predicate != nil && !r.predicate(h) {
		return false
	}
	return true
}

func (s *compiledSet) ignored(path string) bool {
	return anyMatch(s.ignore, path)
}

// classify returns the first matching rule's category and name.
func (s *compiledSet) classify(h *gitdiff.Hunk) (Category, string) {
	for i := range s.rules {
		if s.rules[i].matches(h) {
			return s.rules[i].category, s.rules[i].name
		}
	}
	return CategoryCosmetic, ""
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func anyLineMatches(res []*regexp.Regexp, h *gitdiff.Hunk) bool {
	for _, lines := range [][]string{h.AddedLines, h.RemovedLines} {
		for _, l := range lines {
			if anyMatch(res, l) {
				return true
			}
		}
	}
	return false
}

// allLinesMatch is false for a hunk without changed lines.
func allLinesMatch(res []*regexp.Regexp, h *gitdiff.Hunk) bool {
	if h.ChangedLines() == 0 {
		return false
	}
	for _, lines := range [][]string{h.AddedLines, h.RemovedLines} {
		for _, l := range lines {
			if !anyMatch(res, l) {
				return false
			}
		}
	}
	return true
}

// whitespaceOnly reports whether the added and removed lines differ only in
// whitespace and line wrapping.
func whitespaceOnly(h *gitdiff.Hunk) bool {
	if h.ChangedLines() == 0 {
		return false
	}
	squash := func(lines []string) string {
		var b strings.Builder
		for _, l := range lines {
			for _, r := range l {
				if r != ' ' && r != '\t' && r != '\r' {
					b.WriteRune(r)
				}
			}
		}
		return b.String()
	}
	return squash(h.AddedLines) == squash(h.RemovedLines)
}

// pureRemoval reports a hunk that deletes a declaration and adds nothing
// substantive in its place.
func pureRemoval(h *gitdiff.Hunk) bool {
	if len(substantive(h.AddedLines)) > 0 {
		return false
	}
	for _, l := range h.RemovedLines {
		if declPattern.MatchString(l) {
			return true
		}
	}
	return false
}

// substantive drops blank and comment-only lines.
func substantive(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" || commentPattern.MatchString(l) {
			continue
		}
		out = append(out, l)
	}
	return out
}
