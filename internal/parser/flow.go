package parser

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

type flowEntry struct {
	keyword string
	indent  int
	line    int
}

// FlowTracker pairs control statements in a method body with the last line of
// their indented block.
type FlowTracker struct {
	stack        []flowEntry
	spans        []findings.FoldSpan
	lastCodeLine int
}

// NewFlowTracker creates an empty tracker.
func NewFlowTracker() *FlowTracker {
	return &FlowTracker{lastCodeLine: -1}
}

// Add feeds one line of method code at its physical line index.
func (t *FlowTracker) Add(line int, code string) {
	indent := Indent(code)
	if indent < 0 {
		return
	}

	words := SplitNonWhite(RemoveQuotedStrings(code))
	if len(words) == 0 {
		return
	}

	keyword := strings.ToLower(strings.TrimRight(words[0], "(:"))
	if p := strings.IndexByte(keyword, '('); p > 0 {
		keyword = keyword[:p]
	}

	for len(t.stack) > 0 {
		top := t.stack[len(t.stack)-1]
		if top.indent < indent {
			break
		}

		if top.keyword == "repeat" && top.indent == indent && (keyword == "while" || keyword == "until") {
			t.closeTop(line)
			t.lastCodeLine = line

			return
		}

		t.closeTop(t.lastCodeLine)
	}

	switch {
	case flowOpeners[keyword]:
		t.stack = append(t.stack, flowEntry{keyword: keyword, indent: indent, line: line})
	case t.inCase() && isCaseMatch(code):
		t.stack = append(t.stack, flowEntry{keyword: "match", indent: indent, line: line})
	}

	t.lastCodeLine = line
}

// Close flushes every open statement at the end of the method.
func (t *FlowTracker) Close() {
	for len(t.stack) > 0 {
		t.closeTop(t.lastCodeLine)
	}
}

// Spans returns the completed spans.
func (t *FlowTracker) Spans() []findings.FoldSpan {
	return t.spans
}

// Reset clears the tracker for the next method.
func (t *FlowTracker) Reset() {
	t.stack = t.stack[:0]
	t.spans = nil
	t.lastCodeLine = -1
}

func (t *FlowTracker) closeTop(endLine int) {
	top := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]

	if endLine > top.line {
		t.spans = append(t.spans, findings.FoldSpan{
			Start: position.New(top.line, top.indent),
			End:   position.New(endLine, 0),
			Kind:  findings.FoldCode,
		})
	}
}

func (t *FlowTracker) inCase() bool {
	if len(t.stack) == 0 {
		return false
	}

	top := t.stack[len(t.stack)-1].keyword

	return top == "case" || top == "case_fast"
}

// isCaseMatch reports whether a line inside CASE is a match label such as
// "1..5:" or "OTHER:". A ':' that is part of ':=' does not count.
func isCaseMatch(code string) bool {
	line := RemoveQuotedStrings(code)
	depth := 0

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ':':
			if depth == 0 && (i+1 >= len(line) || line[i+1] != '=') {
				return true
			}
		}
	}

	return false
}
