package parser

import (
	"path/filepath"
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

// Options controls a parse.
type Options struct {
	// Path is the absolute path of the file being parsed.
	Path string
	// Version is stored on the findings, normally a content hash.
	Version uint64
	// Flexspin enables the #include and #define preprocessor directives.
	Flexspin bool
	// Includes maps lower-cased #include file names to the findings of the
	// included files. Their global declarations are merged into this file.
	Includes map[string]*findings.Findings
}

// logicalLine is one joined code line with the context it was found in.
type logicalLine struct {
	cont   *ContinuedLines
	text   string
	state  State
	header bool
	method string
}

type parser struct {
	opts  Options
	f     *findings.Findings
	lines []string

	logical []logicalLine

	method    string
	flow      *FlowTracker
	docLines  []string
	docTarget *findings.Declaration
}

// SplitLines splits text into physical lines, dropping carriage returns.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return lines
}

// Parse scans text and returns its frozen findings.
//
// The declarations pass runs the section machine over every physical line,
// joins continued lines and records declarations, imports, block spans and
// fold spans. The references pass then walks the joined code lines again and
// records every use of a known name. Lines that match no recognized shape are
// skipped without error.
func Parse(text string, opts Options) *findings.Findings {
	p := &parser{
		opts:  opts,
		f:     findings.New(opts.Path),
		lines: SplitLines(text),
		flow:  NewFlowTracker(),
	}
	p.f.Version = opts.Version

	p.scanDeclarations()
	p.scanReferences()

	return p.f.Freeze()
}

func (p *parser) scanDeclarations() {
	machine := NewMachine()
	p.f.RecordBlockStart(findings.BlockCon, 0, "")

	var (
		cont         *ContinuedLines
		contState    State
		contHeader   bool
		commentStart = -1
		runStart     = -1
		runEnd       = -1
	)

	flushRun := func() {
		if runStart >= 0 && runEnd > runStart {
			p.f.RecordFoldSpan(findings.FoldSpan{
				Start: position.New(runStart, 0),
				End:   position.New(runEnd, len(p.lines[runEnd])),
				Kind:  findings.FoldComment,
			})
		}

		runStart, runEnd = -1, -1
	}

	for i, line := range p.lines {
		wasComment := machine.State().IsComment()
		tr := machine.Step(line)

		if tr.CommentOpened {
			commentStart = i
		}

		if tr.CommentClosed && commentStart >= 0 {
			p.f.RecordFoldSpan(findings.FoldSpan{
				Start: position.New(commentStart, 0),
				End:   position.New(i, len(line)),
				Kind:  findings.FoldComment,
			})
			commentStart = -1
		}

		if tr.Code == "" {
			trimmed := strings.TrimLeft(line, " \t")
			if !wasComment && !tr.CommentOpened && strings.HasPrefix(trimmed, "'") {
				if runStart < 0 {
					runStart = i
				}

				runEnd = i
			} else {
				flushRun()
			}

			if tr.DocComment && tr.CommentText != "" {
				p.addDocLine(tr.CommentText)
			}

			continue
		}

		flushRun()

		if cont == nil && p.handleDirective(tr.Code, i) {
			continue
		}

		if tr.SectionStarted {
			p.endMethod()

			name := ""
			if tr.Section == findings.BlockPub || tr.Section == findings.BlockPri {
				name = methodNameFromHeader(tr.Code)
				p.method = name
			}

			p.f.RecordBlockStart(tr.Section, i, name)
		}

		if cont == nil {
			cont = NewContinuedLines()
			contState = tr.CodeState
			contHeader = tr.SectionStarted
		}

		cont.AddLine(tr.Code, i)
		if !cont.IsComplete() {
			continue
		}

		p.processLogical(logicalLine{
			cont:   cont,
			text:   cont.Line(),
			state:  contState,
			header: contHeader,
			method: p.methodFor(contState),
		})

		cont = nil
	}

	if cont != nil && !cont.IsEmpty() {
		cont.FinishLine()
		p.processLogical(logicalLine{
			cont:   cont,
			text:   cont.Line(),
			state:  contState,
			header: contHeader,
			method: p.methodFor(contState),
		})
	}

	flushRun()

	lastLine := max(0, len(p.lines)-1)
	if commentStart >= 0 {
		p.f.RecordFoldSpan(findings.FoldSpan{
			Start: position.New(commentStart, 0),
			End:   position.New(lastLine, 0),
			Kind:  findings.FoldComment,
		})
	}

	p.endMethod()
	p.f.FinishFinalBlock(lastLine)
	p.recordBlockFolds()
}

func (p *parser) methodFor(state State) string {
	if state.IsMethod() || state == StateInlinePasm {
		return p.method
	}

	return ""
}

func (p *parser) endMethod() {
	p.flow.Close()
	for _, span := range p.flow.Spans() {
		p.f.RecordFoldSpan(span)
	}

	p.flow.Reset()
	p.method = ""
}

// recordBlockFolds turns every section span into a code fold.
func (p *parser) recordBlockFolds() {
	for _, block := range p.f.Blocks() {
		end := block.EndLine
		for end > block.StartLine && strings.TrimSpace(p.lines[end]) == "" {
			end--
		}

		p.f.RecordFoldSpan(findings.FoldSpan{
			Start: position.New(block.StartLine, 0),
			End:   position.New(end, len(p.lines[end])),
			Kind:  findings.FoldCode,
		})
	}
}

func (p *parser) addDocLine(text string) {
	if p.docTarget != nil {
		p.docTarget.Doc = append(p.docTarget.Doc, text)
		return
	}

	p.docLines = append(p.docLines, text)
}

func (p *parser) processLogical(ll logicalLine) {
	p.logical = append(p.logical, ll)

	if ll.state.IsMethod() && !ll.header {
		p.flow.Add(ll.cont.StartLine(), ll.text)
	}

	p.docTarget = nil

	text := ll.text
	offset := 0

	if ll.header {
		offset = headerBodyOffset(text)
	}

	switch ll.state {
	case StateCon:
		p.parseCon(ll, offset)
	case StateVar:
		p.parseVar(ll, offset)
	case StateObj:
		p.parseObj(ll, offset)
	case StatePub, StatePri:
		if ll.header {
			p.parseSignature(ll, offset, ll.state == StatePri)
		}
	case StateDat:
		p.parseDat(ll, offset, "")
	case StateDatPasm:
		p.parseDat(ll, offset, "")
	case StateInlinePasm:
		p.parseDat(ll, offset, ll.method)
	}

	p.docLines = nil
}

// headerBodyOffset returns the offset just past the section keyword.
func headerBodyOffset(text string) int {
	start := SkipWhite(text, 0)
	return min(len(text), start+3)
}

// methodNameFromHeader extracts NAME from "PUB NAME(...)".
func methodNameFromHeader(code string) string {
	body := code[headerBodyOffset(code):]
	start := SkipWhite(body, 0)

	end := start
	for end < len(body) && isIdentChar(body[end]) {
		end++
	}

	return body[start:end]
}

// declare records a declaration whose name was found at offset in the joined line.
func (p *parser) declare(ll logicalLine, name string, offset int, decl findings.Declaration) *findings.Declaration {
	pos, ok := ll.cont.LocateSymbol(name, offset)
	if !ok {
		return nil
	}

	decl.Name = name
	decl.Range = position.NewRange(pos.Line, pos.Character, len(name))

	if !p.f.RecordDeclaration(decl) {
		return nil
	}

	var stored *findings.Declaration
	if decl.IsGlobal() {
		stored, _ = p.f.GlobalDeclaration(name)
	} else {
		stored, _ = p.f.LocalDeclaration(decl.Scope, name)
	}

	return stored
}

// rangeAt returns the physical range of length characters at offset.
func (p *parser) rangeAt(ll logicalLine, offset, length int) position.Range {
	pos, ok := ll.cont.PositionForOffset(offset)
	if !ok {
		return position.Range{Start: position.Invalid, End: position.Invalid}
	}

	return position.NewRange(pos.Line, pos.Character, length)
}

func (p *parser) includingFile() string {
	return filepath.Base(p.opts.Path)
}
