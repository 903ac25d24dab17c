package parser

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

// fragment is the retained part of one physical line inside a logical line.
type fragment struct {
	line   int    // physical line index
	column int    // column of text within the physical line
	text   string // retained text, marker and stripped whitespace removed
	offset int    // start offset of text within the joined line
}

// ContinuedLines accumulates physical lines ending in "..." into one logical
// line and maps offsets in the logical line back to physical positions.
type ContinuedLines struct {
	raw      []string
	indices  []int
	frags    []fragment
	joined   string
	complete bool
}

// NewContinuedLines creates an empty accumulator.
func NewContinuedLines() *ContinuedLines {
	return &ContinuedLines{}
}

// AddLine adds one physical line. A line without the continuation marker ends
// the group and finishes the logical line.
func (c *ContinuedLines) AddLine(text string, physicalIndex int) {
	if c.complete {
		return
	}

	c.raw = append(c.raw, text)
	c.indices = append(c.indices, physicalIndex)

	if !IsContinued(text) {
		c.FinishLine()
	}
}

// IsComplete reports whether the last added line ended the group.
func (c *ContinuedLines) IsComplete() bool {
	return c.complete
}

// IsEmpty reports whether no lines have been added.
func (c *ContinuedLines) IsEmpty() bool {
	return len(c.raw) == 0
}

// FinishLine joins the accumulated fragments. The first fragment keeps its
// leading indent and loses trailing whitespace; later fragments are trimmed on
// both sides. Fragments are joined with single spaces.
func (c *ContinuedLines) FinishLine() {
	var sb strings.Builder

	c.frags = c.frags[:0]

	for i, raw := range c.raw {
		body := strings.TrimRight(raw, " \t")
		body = strings.TrimSuffix(body, ContinuationMarker)

		column := 0
		if i == 0 {
			body = strings.TrimRight(body, " \t")
		} else {
			trimmedLeft := strings.TrimLeft(body, " \t")
			column = len(body) - len(trimmedLeft)
			body = strings.TrimRight(trimmedLeft, " \t")
		}

		if body == "" && i > 0 {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}

		c.frags = append(c.frags, fragment{
			line:   c.indices[i],
			column: column,
			text:   body,
			offset: sb.Len(),
		})

		sb.WriteString(body)
	}

	c.joined = sb.String()
	c.complete = true
}

// Line returns the joined logical line.
func (c *ContinuedLines) Line() string {
	return c.joined
}

// StartLine returns the physical index of the first line, or -1 when empty.
func (c *ContinuedLines) StartLine() int {
	if len(c.indices) == 0 {
		return -1
	}

	return c.indices[0]
}

// LineCount returns the number of physical lines in the group.
func (c *ContinuedLines) LineCount() int {
	return len(c.raw)
}

// OffsetIntoLineForPosition maps a physical position to an offset in the
// joined line. It returns -1 when the position is not on one of the lines.
func (c *ContinuedLines) OffsetIntoLineForPosition(pos position.Position) int {
	for _, frag := range c.frags {
		if frag.line != pos.Line {
			continue
		}

		col := pos.Character - frag.column
		col = max(0, min(col, len(frag.text)))

		return frag.offset + col
	}

	return -1
}

// PositionForOffset maps an offset in the joined line to a physical position.
// An offset inside a joining space maps to the end of the preceding fragment.
func (c *ContinuedLines) PositionForOffset(offset int) (position.Position, bool) {
	if offset < 0 {
		return position.Invalid, false
	}

	for _, frag := range c.frags {
		if offset >= frag.offset && offset <= frag.offset+len(frag.text) {
			return position.New(frag.line, frag.column+offset-frag.offset), true
		}
	}

	return position.Invalid, false
}

// LocateSymbol finds name at or after offset in the joined line and returns
// its physical position. A symbol never spans a line break. When the offset
// runs past the last fragment, or the name is not found, it returns
// position.Invalid and false.
func (c *ContinuedLines) LocateSymbol(name string, offset int) (position.Position, bool) {
	if name == "" || offset < 0 {
		return position.Invalid, false
	}

	start := -1

	for i, frag := range c.frags {
		if offset >= frag.offset && offset <= frag.offset+len(frag.text) {
			start = i
			break
		}
	}

	if start == -1 {
		return position.Invalid, false
	}

	for i := start; i < len(c.frags); i++ {
		frag := c.frags[i]

		from := 0
		if i == start {
			from = offset - frag.offset
		}

		if idx := strings.Index(frag.text[from:], name); idx != -1 {
			return position.New(frag.line, frag.column+from+idx), true
		}
	}

	return position.Invalid, false
}

// Reset clears the accumulator for reuse.
func (c *ContinuedLines) Reset() {
	c.raw = c.raw[:0]
	c.indices = c.indices[:0]
	c.frags = c.frags[:0]
	c.joined = ""
	c.complete = false
}
