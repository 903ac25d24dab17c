// Package findings holds the per-file symbol table produced by the parser.
package findings

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

// Kind classifies a declaration.
type Kind int

const (
	KindUnknown Kind = iota
	KindConstant
	KindEnumMember
	KindVariable
	KindDatVariable
	KindLabel
	KindMethod
	KindObjectInstance
	KindStructure
	KindParameter
	KindReturnValue
	KindLocalVariable
	KindDefine
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindConstant:       "constant",
	KindEnumMember:     "enum member",
	KindVariable:       "variable",
	KindDatVariable:    "DAT variable",
	KindLabel:          "label",
	KindMethod:         "method",
	KindObjectInstance: "object instance",
	KindStructure:      "structure",
	KindParameter:      "parameter",
	KindReturnValue:    "return value",
	KindLocalVariable:  "local variable",
	KindDefine:         "preprocessor define",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// Declaration is a named symbol introduced by a file.
type Declaration struct {
	Name  string
	Kind  Kind
	Scope string // "" for file-global, otherwise the enclosing method name
	Range position.Range

	// TypeName is the storage type (BYTE/WORD/LONG) or structure type name.
	TypeName string
	Count    string

	Private    bool // PRI methods
	LocalLabel bool // .name / :name PASM labels

	Signature string
	Doc       []string

	// Origin is the path of the included file this declaration was merged from.
	Origin string
}

// IsGlobal reports whether the declaration is file-global.
func (d *Declaration) IsGlobal() bool {
	return d.Scope == ""
}

// IsPublic reports whether the declaration is visible through an object qualifier.
func (d *Declaration) IsPublic() bool {
	if !d.IsGlobal() || d.Private || d.LocalLabel {
		return false
	}

	switch d.Kind {
	case KindMethod, KindConstant, KindEnumMember, KindStructure:
		return true
	}

	return false
}

// Reference is one occurrence of a name.
type Reference struct {
	Range         position.Range
	Scope         string
	IsDeclaration bool

	// Qualifier is the object instance in front of the name (inst.name), if any.
	Qualifier string
}

// StructMember is one field of a structure.
type StructMember struct {
	Name     string
	Width    string // BYTE, WORD or LONG; empty when TypeName is set
	TypeName string // nested structure type, possibly "obj.type"
	Count    int
	Range    position.Range
}

// Structure is a user-defined aggregate type.
type Structure struct {
	Name    string
	Range   position.Range
	Members []StructMember
}

// Member looks up a member by name (case-insensitive).
func (s *Structure) Member(name string) (StructMember, bool) {
	for _, member := range s.Members {
		if strings.EqualFold(member.Name, name) {
			return member, true
		}
	}

	return StructMember{}, false
}

// Override is one `NAME = value` parameter override on an OBJ line.
type Override struct {
	Name  string
	Value string
}

// ObjectImport is an OBJ instantiation of another file.
type ObjectImport struct {
	InstanceName string
	FileName     string
	Count        string
	Overrides    []Override
	NameRange    position.Range
	FileRange    position.Range
}

// IncludeImport is a preprocessor #include of another file.
type IncludeImport struct {
	FileName      string
	IncludingFile string
	FileRange     position.Range
}

// BlockKind is the section kind of a block span.
type BlockKind int

const (
	BlockCon BlockKind = iota
	BlockVar
	BlockObj
	BlockPub
	BlockPri
	BlockDat
)

func (k BlockKind) String() string {
	switch k {
	case BlockCon:
		return "CON"
	case BlockVar:
		return "VAR"
	case BlockObj:
		return "OBJ"
	case BlockPub:
		return "PUB"
	case BlockPri:
		return "PRI"
	case BlockDat:
		return "DAT"
	}

	return "?"
}

// BlockSpan is one section region of the file.
type BlockSpan struct {
	Kind      BlockKind
	StartLine int
	EndLine   int
	Name      string // method name for PUB/PRI blocks
}

// FoldKind tells code folds from comment folds.
type FoldKind int

const (
	FoldCode FoldKind = iota
	FoldComment
)

// FoldSpan is a foldable region.
type FoldSpan struct {
	Start position.Position
	End   position.Position
	Kind  FoldKind
}

// Severity of a Problem.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
)

// Problem is a finding-level diagnostic produced while scanning.
type Problem struct {
	Range    position.Range
	Message  string
	Severity Severity
}

// DocumentLink points from a quoted filename to the file it names.
type DocumentLink struct {
	Range    position.Range
	FileName string
}
