package analyzer

import (
	"regexp"
	"strings"
	"unicode"

	"docdrift/internal/gitdiff"
)

var (
	privatePathPattern = regexp.MustCompile(`(^|/)(internal|private|testdata|tests?|__tests__|spec|mocks?|fixtures|examples?)/|(_test\.go|\.test\.[jt]sx?|\.spec\.[jt]sx?|_test\.py)$|(^|/)test_[^/]*\.py$`)
	publicPathPattern  = regexp.MustCompile(`(^|/)(api|apis|pkg|public|sdk|routes?|handlers?|controllers?|cmd|proto)/|(^|/)(openapi|swagger)[^/]*\.(ya?ml|json)$|\.(proto|graphql)$`)
	exportPattern      = regexp.MustCompile(`^\s*(export\s|public\s|pub(\([^)]*\))?\s|module\.exports|exports\.)`)
)

// isPublicSurface reports whether a hunk touches something callers outside
// the project can see: a path in a public location, or an exported
// declaration in a file that is not test or internal code.
func isPublicSurface(h *gitdiff.Hunk) bool {
	p := h.FilePath
	if privatePathPattern.MatchString(p) {
		return false
	}
	if publicPathPattern.MatchString(p) {
		return true
	}
	for _, lines := range [][]string{h.AddedLines, h.RemovedLines} {
		for _, l := range lines {
			if exportPattern.MatchString(l) {
				return true
			}
			if name := declaredName(l); name != "" && exportedName(p, name) {
				return true
			}
		}
	}
	return false
}

// exportedName applies the naming convention of the file's language.
func exportedName(path, name string) bool {
	switch {
	case strings.HasSuffix(path, ".go"):
		r := []rune(name)
		return len(r) > 0 && unicode.IsUpper(r[0])
	case strings.HasSuffix(path, ".py"):
		return !strings.HasPrefix(name, "_")
	default:
		return false
	}
}
