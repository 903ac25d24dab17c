package parser

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// State is the section the scanner is in.
type State int

const (
	StateUnknown State = iota
	StateCon
	StateDat
	StateObj
	StatePub
	StatePri
	StateVar
	StateInlinePasm
	StateDatPasm
	StateBlockComment
	StateDocComment
	StateNothing
)

var stateNames = [...]string{
	"unknown", "CON", "DAT", "OBJ", "PUB", "PRI", "VAR",
	"inline-PASM", "DAT-PASM", "block-comment", "doc-comment", "nothing",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return "unknown"
}

// IsComment reports whether s is one of the multi-line comment states.
func (s State) IsComment() bool {
	return s == StateBlockComment || s == StateDocComment
}

// IsMethod reports whether s is a PUB or PRI body.
func (s State) IsMethod() bool {
	return s == StatePub || s == StatePri
}

func stateForBlock(kind findings.BlockKind) State {
	switch kind {
	case findings.BlockCon:
		return StateCon
	case findings.BlockVar:
		return StateVar
	case findings.BlockObj:
		return StateObj
	case findings.BlockPub:
		return StatePub
	case findings.BlockPri:
		return StatePri
	case findings.BlockDat:
		return StateDat
	}

	return StateUnknown
}

// Transition describes the effect of one line on the machine.
type Transition struct {
	// State is the state after the line.
	State State
	// CodeState is the state the code on this line belongs to.
	CodeState State
	// Code is the line with comments blanked, or "" when there is no code.
	Code string

	SectionStarted bool
	Section        findings.BlockKind

	CommentOpened bool
	CommentClosed bool
	// DocComment is set when the comment on this line is a '' or {{ }} doc comment.
	DocComment bool
	// CommentText is the text of a comment-only line, markers removed.
	CommentText string
}

// Machine tracks the section and comment state across lines.
//
// Comment nesting is one level deep: opening a brace comment remembers the
// state it was opened from and closing it returns there. A second opener inside
// an open comment is not stacked.
type Machine struct {
	state State
	prior State
	// methodState is the PUB/PRI state to return to after inline PASM.
	methodState State
}

// NewMachine creates a machine in the CON state, the implicit section at the
// top of every file.
func NewMachine() *Machine {
	return &Machine{state: StateCon, prior: StateCon}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Step consumes one physical line and returns the transition it caused.
func (m *Machine) Step(line string) Transition {
	switch m.state {
	case StateBlockComment:
		return m.stepInComment(line, "}")
	case StateDocComment:
		return m.stepInComment(line, "}}")
	}

	return m.stepCode(line, 0)
}

func (m *Machine) stepInComment(line, closer string) Transition {
	end := findCommentClose(line, closer)
	if end == -1 {
		return Transition{
			State:       m.state,
			CodeState:   m.state,
			DocComment:  m.state == StateDocComment,
			CommentText: strings.TrimSpace(line),
		}
	}

	wasDoc := m.state == StateDocComment
	m.state = m.prior

	tr := m.stepCode(line, end+len(closer))
	tr.CommentClosed = true
	tr.DocComment = wasDoc

	if tr.Code == "" && tr.CommentText == "" {
		tr.CommentText = strings.TrimSpace(line[:end])
	}

	return tr
}

// findCommentClose finds the closer ending an open brace comment. Balanced
// {...} pairs on the same line are skipped.
func findCommentClose(line, closer string) int {
	depth := 0

	for i := 0; i < len(line); i++ {
		if closer == "}}" && strings.HasPrefix(line[i:], "}}") && depth == 0 {
			return i
		}

		switch line[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
				continue
			}

			if closer == "}" {
				return i
			}
		}
	}

	return -1
}

func (m *Machine) stepCode(line string, offset int) Transition {
	tr := Transition{State: m.state, CodeState: m.state}

	rest := ""
	if offset < len(line) {
		rest = line[offset:]
	}

	trimmed := strings.TrimLeft(rest, " \t")
	if strings.HasPrefix(trimmed, "''") {
		tr.DocComment = true
		tr.CommentText = strings.TrimSpace(strings.TrimPrefix(trimmed, "''"))

		return tr
	}

	if strings.HasPrefix(trimmed, "'") {
		tr.CommentText = strings.TrimSpace(strings.TrimPrefix(trimmed, "'"))
		return tr
	}

	code := NonCommentRemainder(offset, line)
	opener, openerAt := unpairedOpener(line, offset)

	if code == "" && strings.HasPrefix(trimmed, "{{") && opener == "" {
		tr.DocComment = true
		tr.CommentText = strings.TrimSpace(strings.Trim(trimmed, "{} \t"))
	} else if code == "" && strings.HasPrefix(trimmed, "{") && opener == "" {
		tr.CommentText = strings.TrimSpace(strings.Trim(trimmed, "{} \t"))
	}

	if code != "" {
		m.applyCode(code, &tr)
	}

	tr.Code = code

	if opener != "" {
		m.prior = m.state
		if opener == "{{" {
			m.state = StateDocComment
			tr.DocComment = true
		} else {
			m.state = StateBlockComment
		}

		tr.CommentOpened = true
		tr.CommentText = strings.TrimSpace(line[openerAt+len(opener):])
	}

	tr.State = m.state

	return tr
}

// applyCode updates the section state for a line of code.
func (m *Machine) applyCode(code string, tr *Transition) {
	words := SplitNonWhite(code)

	if kind, ok := SectionHeader(code); ok {
		m.state = stateForBlock(kind)
		if m.state.IsMethod() {
			m.methodState = m.state
		}

		tr.SectionStarted = true
		tr.Section = kind
		tr.CodeState = m.state

		// "DAT org" on the header line enters DAT-PASM at once
		if kind == findings.BlockDat && len(words) > 1 && isOrgDirective(words[1]) {
			m.state = StateDatPasm
		}

		return
	}

	first := ""
	if len(words) > 0 {
		first = strings.ToLower(words[0])
	}

	second := ""
	if len(words) > 1 {
		second = strings.ToLower(words[1])
	}

	switch m.state {
	case StateDat:
		if isOrgDirective(first) || isOrgDirective(second) {
			m.state = StateDatPasm
			tr.CodeState = StateDatPasm
		}
	case StateDatPasm:
		if first == "fit" || second == "fit" {
			m.state = StateDat
		}
	case StatePub, StatePri:
		if first == "org" || first == "orgh" {
			m.methodState = m.state
			m.state = StateInlinePasm
			tr.CodeState = StateInlinePasm
		}
	case StateInlinePasm:
		if first == "end" {
			m.state = m.methodState
		}
	}
}

func isOrgDirective(word string) bool {
	switch strings.ToLower(word) {
	case "org", "orgh", "orgf":
		return true
	}

	return false
}

// unpairedOpener finds a { or {{ on the line (outside strings and before any '
// comment) that is not closed on the same line.
func unpairedOpener(line string, offset int) (string, int) {
	inString := false

	for i := offset; i < len(line); i++ {
		c := line[i]

		if inString {
			if c == '"' {
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '\'':
			return "", -1
		case '{':
			if strings.HasPrefix(line[i:], "{{") {
				end := strings.Index(line[i+2:], "}}")
				if end == -1 {
					return "{{", i
				}

				i += 2 + end + 1

				continue
			}

			end := strings.IndexByte(line[i+1:], '}')
			if end == -1 {
				return "{", i
			}

			i += 1 + end
		}
	}

	return "", -1
}
