package indexer

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"docdrift/internal/apperrors"
)

// Span is a contiguous slice of a document. Start and End are character
// (rune) offsets into the original text; End is exclusive.
type Span struct {
	Index       int
	Start       int
	End         int
	Text        string
	HeadingPath string
}

// GoldmarkChunker splits markdown into overlapping spans, preferring to cut
// where goldmark reports a block (heading, paragraph, list, code block) starts.
type GoldmarkChunker struct {
	parser goldmark.Markdown
}

// NewGoldmarkChunker creates a new goldmark chunker.
func NewGoldmarkChunker() *GoldmarkChunker {
	return &GoldmarkChunker{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Chunk splits content into spans of at most maxChars characters. Consecutive
// spans share exactly overlapChars characters, except that the last span ends
// at the end of the input. Every character is covered by at least one span.
// Offsets count runes, so content should be valid UTF-8; each invalid byte
// becomes one U+FFFD in the span text.
func (c *GoldmarkChunker) Chunk(content string, maxChars, overlapChars int) ([]Span, error) {
	if maxChars <= 0 {
		return nil, apperrors.Invalid("max_chars", "must be positive, got %d", maxChars)
	}
	if overlapChars < 0 || overlapChars >= maxChars {
		return nil, apperrors.Invalid("overlap_chars", "must be in [0, %d), got %d", maxChars, overlapChars)
	}
	if content == "" {
		return nil, nil
	}

	runes := []rune(content)
	n := len(runes)
	b := c.boundaries(content, runes)

	var spans []Span
	start := 0
	for {
		end := start + maxChars
		if end >= n {
			end = n
		} else {
			end = b.cut(start+overlapChars, end)
		}

		spans = append(spans, Span{
			Index:       len(spans),
			Start:       start,
			End:         end,
			Text:        string(runes[start:end]),
			HeadingPath: b.headingPathAt(start),
		})

		if end >= n {
			return spans, nil
		}
		start = end - overlapChars
	}
}

// Title returns the first level-1 heading, else the first level-2 heading,
// else a title derived from the filename.
func (c *GoldmarkChunker) Title(content []byte, filename string) string {
	doc := c.parser.Parser().Parse(text.NewReader(content))

	var firstH1, firstH2 string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			headingText := extractTextFromNode(heading, content)
			if heading.Level == 1 && firstH1 == "" {
				firstH1 = headingText
				return ast.WalkStop, nil
			}
			if heading.Level == 2 && firstH2 == "" {
				firstH2 = headingText
			}
		}
		return ast.WalkContinue, nil
	})

	if firstH1 != "" {
		return firstH1
	}
	if firstH2 != "" {
		return firstH2
	}
	return extractTitleFromFilename(filename)
}

// cutPoints holds candidate cut offsets by preference tier, each sorted ascending.
type cutPoints struct {
	blocks    []int
	blanks    []int
	newlines  []int
	sentences []int
	headings  []headingMark
}

type headingMark struct {
	offset int
	level  int
	text   string
}

// cut returns the best cut offset in (lo, hi], falling back to hi.
func (b *cutPoints) cut(lo, hi int) int {
	for _, tier := range [][]int{b.blocks, b.blanks, b.newlines, b.sentences} {
		i := sort.SearchInts(tier, hi+1) - 1
		if i >= 0 && tier[i] > lo {
			return tier[i]
		}
	}
	return hi
}

func (b *cutPoints) headingPathAt(offset int) string {
	var stack []headingInfo
	for _, h := range b.headings {
		if h.offset > offset {
			break
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, headingInfo{level: h.level, text: h.text})
	}
	return buildHeadingPath(stack)
}

func (c *GoldmarkChunker) boundaries(content string, runes []rune) *cutPoints {
	src := []byte(content)

	// byte offset -> rune offset, valid at rune starts
	runeAt := make([]int, len(src)+1)
	r := 0
	for i := range content {
		runeAt[i] = r
		r++
	}
	runeAt[len(src)] = r

	b := &cutPoints{}

	doc := c.parser.Parser().Parse(text.NewReader(src))
	blockSet := make(map[int]struct{})
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		lines := n.Lines()
		if lines == nil || lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		off := lineStart(src, lines.At(0).Start)
		if _, fenced := n.(*ast.FencedCodeBlock); fenced && off > 0 {
			off = lineStart(src, off-1)
		}
		blockSet[runeAt[off]] = struct{}{}

		if heading, ok := n.(*ast.Heading); ok {
			b.headings = append(b.headings, headingMark{
				offset: runeAt[off],
				level:  heading.Level,
				text:   extractTextFromNode(heading, src),
			})
		}
		return ast.WalkContinue, nil
	})
	for off := range blockSet {
		b.blocks = append(b.blocks, off)
	}
	sort.Ints(b.blocks)
	sort.Slice(b.headings, func(i, j int) bool { return b.headings[i].offset < b.headings[j].offset })

	for i, ch := range runes {
		switch {
		case ch == '\n':
			b.newlines = append(b.newlines, i+1)
			if i > 0 && runes[i-1] == '\n' {
				b.blanks = append(b.blanks, i+1)
			}
		case (ch == '.' || ch == '?' || ch == '!') && i+1 < len(runes) && runes[i+1] == ' ':
			b.sentences = append(b.sentences, i+2)
		}
	}

	return b
}

// lineStart moves a byte offset back to the start of its line.
func lineStart(src []byte, off int) int {
	if off > len(src) {
		off = len(src)
	}
	for off > 0 && src[off-1] != '\n' {
		off--
	}
	return off
}

type headingInfo struct {
	level int
	text  string
}

// buildHeadingPath builds a heading path string from the heading stack.
// Format: "# Heading1 > ## Heading2 > ### Heading3"
func buildHeadingPath(stack []headingInfo) string {
	if len(stack) == 0 {
		return ""
	}

	parts := make([]string, len(stack))
	for i, h := range stack {
		parts[i] = fmt.Sprintf("%s %s", strings.Repeat("#", h.level), h.text)
	}
	return strings.Join(parts, " > ")
}

// extractTextFromNode extracts text content from a node and its children.
func extractTextFromNode(n ast.Node, content []byte) string {
	var textBuilder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			textBuilder.Write(v.Segment.Value(content))
		case *ast.String:
			textBuilder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(textBuilder.String())
}

// extractTitleFromFilename removes the extension and capitalizes each word.
func extractTitleFromFilename(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)

	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
