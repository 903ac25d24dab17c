package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

func TestMachine_Sections(t *testing.T) {
	tests := []struct {
		line      string
		codeState State
		after     State
		section   bool
	}{
		{"CON", StateCon, StateCon, true},
		{"  X = 1 { note }", StateCon, StateCon, false},
		{"PUB go()", StatePub, StatePub, true},
		{"  org", StateInlinePasm, StateInlinePasm, false},
		{"    mov pa, #1", StateInlinePasm, StateInlinePasm, false},
		{"  end", StateInlinePasm, StatePub, false},
		{"PRI helper", StatePri, StatePri, true},
		{"DAT", StateDat, StateDat, true},
		{"        orgh", StateDatPasm, StateDatPasm, false},
		{"        fit", StateDatPasm, StateDat, false},
		{"DAT org 0", StateDat, StateDatPasm, true},
		{"VAR long x", StateVar, StateVar, true},
		{"OBJ", StateObj, StateObj, true},
	}

	m := NewMachine()

	for _, tt := range tests {
		tr := m.Step(tt.line)

		assert.Equal(t, tt.codeState, tr.CodeState, "code state of %q", tt.line)
		assert.Equal(t, tt.after, m.State(), "state after %q", tt.line)
		assert.Equal(t, tt.section, tr.SectionStarted, "section start on %q", tt.line)
	}
}

func TestMachine_BlockCommentSpansLines(t *testing.T) {
	m := NewMachine()

	tr := m.Step("  X = 1 { start")
	assert.True(t, tr.CommentOpened)
	assert.Equal(t, "  X = 1", tr.Code)
	assert.Equal(t, StateBlockComment, m.State())

	tr = m.Step("PUB notcode()")
	assert.Empty(t, tr.Code)
	assert.False(t, tr.SectionStarted)

	tr = m.Step("} Y = 2")
	assert.True(t, tr.CommentClosed)
	assert.Equal(t, "  Y = 2", tr.Code)
	assert.Equal(t, StateCon, m.State())
}

func TestMachine_NestedOpenerIsNotStacked(t *testing.T) {
	m := NewMachine()

	m.Step("{")
	assert.Equal(t, StateBlockComment, m.State())

	// a second unpaired opener inside the comment does not add a level
	m.Step("  {")
	assert.Equal(t, StateBlockComment, m.State())

	tr := m.Step("}")
	assert.True(t, tr.CommentClosed)
	assert.Equal(t, StateCon, m.State())

	// balanced braces on a comment line are skipped when looking for the close
	m.Step("{")
	m.Step("  { inner } still comment")
	assert.Equal(t, StateBlockComment, m.State())
	m.Step("}")
	assert.Equal(t, StateCon, m.State())
}

func TestMachine_DocComments(t *testing.T) {
	m := NewMachine()

	tr := m.Step("'' returns the count")
	assert.True(t, tr.DocComment)
	assert.Equal(t, "returns the count", tr.CommentText)
	assert.Empty(t, tr.Code)

	tr = m.Step("{{")
	assert.True(t, tr.CommentOpened)
	assert.Equal(t, StateDocComment, m.State())

	tr = m.Step("  usage notes")
	assert.True(t, tr.DocComment)
	assert.Equal(t, "usage notes", tr.CommentText)

	tr = m.Step("}}")
	assert.True(t, tr.CommentClosed)
	assert.Equal(t, StateCon, m.State())
}

func TestMachine_CommentReturnsToMethod(t *testing.T) {
	m := NewMachine()
	m.Step("PRI work()")
	m.Step("{ disabled")
	m.Step("  repeat")
	m.Step("}")

	assert.Equal(t, StatePri, m.State())
}

func TestSectionHeader(t *testing.T) {
	tests := []struct {
		line string
		kind findings.BlockKind
		ok   bool
	}{
		{"CON", findings.BlockCon, true},
		{"dat", findings.BlockDat, true},
		{"  dat", 0, false},
		{"\tPUB start()", 0, false},
		{"PUB start()", findings.BlockPub, true},
		{"pri\thelper", findings.BlockPri, true},
		{"OBJ' objects", findings.BlockObj, true},
		{"VAR{ vars }", findings.BlockVar, true},
		{"pub_count := 1", 0, false},
		{"CONSTANT", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		kind, ok := SectionHeader(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)

		if tt.ok {
			assert.Equal(t, tt.kind, kind, tt.line)
		}
	}
}

func TestMachine_IndentedKeywordStaysInSection(t *testing.T) {
	m := NewMachine()

	m.Step("PUB main() | x")
	tr := m.Step("  pub := 1")

	assert.False(t, tr.SectionStarted)
	assert.Equal(t, StatePub, m.State())

	tr = m.Step("{ note } DAT")
	assert.False(t, tr.SectionStarted)
	assert.Equal(t, StatePub, m.State())

	tr = m.Step("DAT")
	assert.True(t, tr.SectionStarted)
	assert.Equal(t, StateDat, m.State())
}

func TestNonCommentRemainder(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		offset int
		want   string
	}{
		{"plain", "  x := 1", 0, "  x := 1"},
		{"tick comment", "  x := 1 ' set x", 0, "  x := 1"},
		{"tick in string", `  s := string("it's")`, 0, `  s := string("it's")`},
		{"paired brace", "  x {note} := 1", 0, "  x        := 1"},
		{"unpaired brace", "  x := 1 { open", 0, "  x := 1"},
		{"comment only", "' nothing", 0, ""},
		{"offset", "} y := 2", 1, "  y := 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NonCommentRemainder(tt.offset, tt.line))
		})
	}
}
