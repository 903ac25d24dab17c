// Package position provides zero-based source positions and ranges.
//
// These are plain values so that the analysis packages stay independent of any
// editor protocol library; the lsp package converts them at the boundary.
package position

import "fmt"

// Position is a zero-based (line, character) pair.
type Position struct {
	Line      int
	Character int
}

// Invalid is returned when a position cannot be located.
var Invalid = Position{Line: -1, Character: -1}

// New creates a Position.
func New(line, character int) Position {
	return Position{Line: line, Character: character}
}

// IsValid reports whether both coordinates are non-negative.
func (p Position) IsValid() bool {
	return p.Line >= 0 && p.Character >= 0
}

// Compare returns -1, 0 or +1 ordering p against other by line then character.
func (p Position) Compare(other Position) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Character < other.Character:
		return -1
	case p.Character > other.Character:
		return 1
	}

	return 0
}

// Before reports whether p sorts strictly before other.
func (p Position) Before(other Position) bool {
	return p.Compare(other) < 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range is a half-open [Start, End) span.
type Range struct {
	Start Position
	End   Position
}

// NewRange creates a range on a single line.
func NewRange(line, character, length int) Range {
	return Range{
		Start: Position{Line: line, Character: character},
		End:   Position{Line: line, Character: character + length},
	}
}

// Contains reports whether pos lies inside r. The end character is inclusive so
// that a cursor placed right after an identifier still selects it.
func (r Range) Contains(pos Position) bool {
	if pos.Before(r.Start) {
		return false
	}

	return pos.Compare(r.End) <= 0
}

// IsEmpty reports whether the range covers no characters.
func (r Range) IsEmpty() bool {
	return r.Start.Compare(r.End) == 0
}

func (r Range) String() string {
	return fmt.Sprintf("[%s-%s]", r.Start, r.End)
}
