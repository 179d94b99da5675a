package gitdiff

import (
	"strconv"
	"strings"

	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
)

const (
	contextLines = 3
	// Changed runs separated by more than this many unchanged lines form
	// separate hunks.
	maxHunkGap = 2 * contextLines
)

type lineOp struct {
	op   fdiff.Operation
	text string
}

type hunkLines struct {
	added   []string
	removed []string
	text    string
}

// flattenChunks expands go-git's multi-line chunks into one op per line.
func flattenChunks(chunks []fdiff.Chunk) []lineOp {
	var ops []lineOp
	for _, c := range chunks {
		content := c.Content()
		if content == "" {
			continue
		}
		content = strings.TrimSuffix(content, "\n")
		for _, line := range strings.Split(content, "\n") {
			ops = append(ops, lineOp{op: c.Type(), text: line})
		}
	}
	return ops
}

// splitHunks groups changed lines into hunks the way git does.
func splitHunks(ops []lineOp) []hunkLines {
	var changed []int
	for i, l := range ops {
		if l.op != fdiff.Equal {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	var out []hunkLines
	first, last := changed[0], changed[0]
	flush := func() {
		lo := max(0, first-contextLines)
		hi := min(len(ops), last+contextLines+1)
		out = append(out, renderHunk(ops[lo:hi]))
	}
	for _, idx := range changed[1:] {
		if idx-last-1 > maxHunkGap {
			flush()
			first = idx
		}
		last = idx
	}
	flush()
	return out
}

func renderHunk(ops []lineOp) hunkLines {
	var h hunkLines
	var b strings.Builder
	for _, l := range ops {
		switch l.op {
		case fdiff.Add:
			h.added = append(h.added, l.text)
			b.WriteString("+")
		case fdiff.Delete:
			h.removed = append(h.removed, l.text)
			b.WriteString("-")
		default:
			b.WriteString(" ")
		}
		b.WriteString(l.text)
		b.WriteString("\n")
	}
	h.text = b.String()
	return h
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
