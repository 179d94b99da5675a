package analyzer

import (
	"path"
	"regexp"
	"strings"

	"docdrift/internal/gitdiff"
)

const maxTerms = 10

var (
	commentPattern = regexp.MustCompile(`^\s*(//|#|--|/\*|\*|\*/|<!--)`)

	// declPattern captures the declared name in its only capturing group
	// of whichever alternative matched.
	declPattern = regexp.MustCompile(`^\s*(?:` +
		`func\s+(?:\([^)]*\)\s*)?(\w+)` +
		`|type\s+(\w+)\s+(?:struct|interface)` +
		`|(?:export\s+)?(?:default\s+)?(?:async\s+)?(?:def|function\*?|class|interface|fn|pub\s+fn|pub\s+async\s+fn)\s+(\w+)` +
		`|(?:export\s+)?(?:abstract\s+)?class\s+(\w+)` +
		`|(?:export\s+)?(?:const|let)\s+(\w+)\s*=\s*(?:async\s*)?\([^)]*\)\s*=>` +
		`|(?:public|protected|private|internal)\s+(?:static\s+)?[\w<>\[\],.?\s]+?\s+(\w+)\s*\(` +
		`)`)

	assignPattern = regexp.MustCompile(`^\s*(?:(?:var|const|let)\s+)?([A-Za-z_][\w.\-]*)\s*(?::=|=|:)\s*\S`)
	routePattern  = regexp.MustCompile("[\"'`](/[\\w\\-./{}:]*)[\"'`]")
	importPattern = regexp.MustCompile(`^\s*(?:import|from|require|use)\s*\(?\s*(?:\w+\s+)?["']?([\w./@\-]+)`)
	identPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// declaredName returns the name declared on line, if any.
func declaredName(line string) string {
	m := declPattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	for _, name := range m[1:] {
		if name != "" {
			return name
		}
	}
	return ""
}

// ExtractTerms returns up to ten distinct search terms for a hunk: declared
// names, assigned keys, route paths, imported modules, then the file stem and
// path components.
func ExtractTerms(h *gitdiff.Hunk) []string {
	lines := append(append([]string{}, h.AddedLines...), h.RemovedLines...)

	var decls, keys, routes, imports []string
	for _, l := range lines {
		if name := declaredName(l); name != "" {
			decls = append(decls, name)
		}
		if m := assignPattern.FindStringSubmatch(l); m != nil {
			keys = append(keys, m[1])
		}
		for _, m := range routePattern.FindAllStringSubmatch(l, -1) {
			if len(m[1]) > 1 {
				routes = append(routes, m[1])
			}
		}
		if m := importPattern.FindStringSubmatch(l); m != nil {
			imports = append(imports, path.Base(m[1]))
		}
	}

	p := h.FilePath
	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	parts := strings.Split(path.Dir(p), "/")

	var out []string
	seen := make(map[string]bool)
	add := func(term string, route bool) {
		if len(out) >= maxTerms {
			return
		}
		t := strings.ToLower(strings.TrimSpace(term))
		if len(t) <= 2 || seen[t] {
			return
		}
		if !route && !identPattern.MatchString(t) {
			return
		}
		seen[t] = true
		out = append(out, t)
	}

	for _, t := range decls {
		add(t, false)
	}
	for _, t := range keys {
		add(t, false)
	}
	for _, t := range routes {
		add(t, true)
	}
	for _, t := range imports {
		add(t, false)
	}
	add(stem, false)
	for _, t := range parts {
		add(t, false)
	}
	return out
}

// excerpt returns up to three substantive changed lines, preferring added
// ones, joined and cut to maxLen runes.
func excerpt(h *gitdiff.Hunk, maxLen int) string {
	lines := substantive(h.AddedLines)
	if len(lines) == 0 {
		lines = substantive(h.RemovedLines)
	}
	if len(lines) > 3 {
		lines = lines[:3]
	}
	for i := range lines {
		lines[i] = strings.Join(strings.Fields(lines[i]), " ")
	}
	return truncate(strings.Join(lines, "; "), maxLen)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
