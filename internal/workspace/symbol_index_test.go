package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

const (
	testURI1 = "file:///work/main.spin2"
	testURI2 = "file:///work/driver.spin2"
)

var testRange = protocol.Range{
	Start: protocol.Position{Line: 0, Character: 4},
	End:   protocol.Position{Line: 0, Character: 10},
}

func TestSymbolIndex_NewSymbolIndex(t *testing.T) {
	index := NewSymbolIndex()

	if index.GetFileCount() != 0 {
		t.Errorf("Expected 0 files, got %d", index.GetFileCount())
	}

	if index.GetSymbolCount() != 0 {
		t.Errorf("Expected 0 symbols, got %d", index.GetSymbolCount())
	}
}

func TestSymbolIndex_FindSymbol_CaseInsensitive(t *testing.T) {
	index := NewSymbolIndex()
	index.AddSymbol("StartMotor", protocol.SymbolKindMethod, testURI1, testRange, "main.spin2", "PUB StartMotor(speed)")

	locations := index.FindSymbol("startmotor")
	require.Len(t, locations, 1)
	assert.Equal(t, "StartMotor", locations[0].Name)
	assert.Equal(t, protocol.SymbolKindMethod, locations[0].Kind)
	assert.Equal(t, testURI1, locations[0].Location.URI)

	assert.Empty(t, index.FindSymbol("missing"))
}

func TestSymbolIndex_RemoveFile_KeepsOtherFiles(t *testing.T) {
	index := NewSymbolIndex()
	index.AddSymbol("start", protocol.SymbolKindMethod, testURI1, testRange, "", "")
	index.AddSymbol("start", protocol.SymbolKindMethod, testURI2, testRange, "", "")
	index.AddSymbol("stop", protocol.SymbolKindMethod, testURI1, testRange, "", "")

	index.RemoveFile(testURI1)

	assert.Equal(t, 1, index.GetFileCount())
	assert.Equal(t, 1, index.GetSymbolCount())

	locations := index.FindSymbol("start")
	require.Len(t, locations, 1)
	assert.Equal(t, testURI2, locations[0].Location.URI)
	assert.Empty(t, index.FindSymbol("stop"))
}

func declaredFindings(path string, version uint64, decls ...findings.Declaration) *findings.Findings {
	f := findings.New(path)
	f.Version = version

	for _, decl := range decls {
		f.RecordDeclaration(decl)
	}

	return f.Freeze()
}

func TestSymbolIndex_UpdateFile(t *testing.T) {
	index := NewSymbolIndex()

	f := declaredFindings("/work/main.spin2", 1,
		findings.Declaration{Name: "MAX_SPEED", Kind: findings.KindConstant, Range: position.NewRange(1, 2, 9)},
		findings.Declaration{Name: "run", Kind: findings.KindMethod, Range: position.NewRange(4, 4, 3), Signature: "PUB run()"},
		findings.Declaration{Name: "count", Kind: findings.KindLocalVariable, Scope: "run", Range: position.NewRange(4, 12, 5)},
		findings.Declaration{Name: "LIB_CONST", Kind: findings.KindConstant, Origin: "/work/lib.spin2"},
	)

	index.UpdateFile(testURI1, f)

	assert.Equal(t, 2, index.GetTotalLocationCount())

	run := index.FindSymbol("RUN")
	require.Len(t, run, 1)
	assert.Equal(t, "main.spin2", run[0].ContainerName)
	assert.Equal(t, "PUB run()", run[0].Detail)
	assert.Equal(t, protocol.UInteger(4), run[0].Location.Range.Start.Line)

	assert.Empty(t, index.FindSymbol("count"), "locals are not indexed")
	assert.Empty(t, index.FindSymbol("LIB_CONST"), "merged include declarations belong to their own file")

	// a new version replaces the old symbols
	updated := declaredFindings("/work/main.spin2", 2,
		findings.Declaration{Name: "stop", Kind: findings.KindMethod},
	)
	index.UpdateFile(testURI1, updated)

	assert.Empty(t, index.FindSymbol("run"))
	assert.Len(t, index.FindSymbol("stop"), 1)
	assert.Len(t, index.FindSymbolsInFile(testURI1), 1)
}

func TestSymbolIndex_UpdateFile_SameVersionIsNoop(t *testing.T) {
	index := NewSymbolIndex()

	index.UpdateFile(testURI1, declaredFindings("/work/main.spin2", 7,
		findings.Declaration{Name: "run", Kind: findings.KindMethod}))
	index.UpdateFile(testURI1, declaredFindings("/work/main.spin2", 7,
		findings.Declaration{Name: "other", Kind: findings.KindMethod}))

	assert.Len(t, index.FindSymbol("run"), 1)
	assert.Empty(t, index.FindSymbol("other"))
}

func TestSymbolIndex_Search(t *testing.T) {
	index := NewSymbolIndex()

	for _, name := range []string{"aBlinkHelper", "blinkFast", "blink", "BlinkLed", "helper"} {
		index.AddSymbol(name, protocol.SymbolKindMethod, testURI1, testRange, "", "")
	}

	names := func(results []SymbolLocation) []string {
		out := make([]string, len(results))
		for i, r := range results {
			out[i] = r.Name
		}

		return out
	}

	tests := []struct {
		name     string
		query    string
		max      int
		expected []string
	}{
		{"exact then prefix then substring", "blink", 0, []string{"blink", "blinkFast", "BlinkLed", "aBlinkHelper"}},
		{"case insensitive", "HELPER", 0, []string{"helper", "aBlinkHelper"}},
		{"no match", "xyz", 0, []string{}},
		{"empty query lists everything by name", "", 0, []string{"aBlinkHelper", "blink", "blinkFast", "BlinkLed", "helper"}},
		{"max results", "blink", 2, []string{"blink", "blinkFast"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, names(index.Search(tt.query, tt.max)))
		})
	}

	t.Run("fuzzy match", func(t *testing.T) {
		results := names(index.Search("blinkld", 0))
		require.NotEmpty(t, results)
		assert.Equal(t, "BlinkLed", results[0])
		assert.NotContains(t, results, "helper")
	})
}

func TestSymbolIndex_Clear(t *testing.T) {
	index := NewSymbolIndex()
	index.AddSymbol("run", protocol.SymbolKindMethod, testURI1, testRange, "", "")

	index.Clear()

	assert.Equal(t, 0, index.GetFileCount())
	assert.Equal(t, 0, index.GetSymbolCount())
}

func TestSymbolIndex_ThreadSafety(t *testing.T) {
	index := NewSymbolIndex()
	done := make(chan bool)

	go func() {
		for range 50 {
			index.AddSymbol("run", protocol.SymbolKindMethod, testURI1, testRange, "", "")
		}

		done <- true
	}()

	go func() {
		for range 50 {
			index.Search("ru", 10)
		}

		done <- true
	}()

	<-done
	<-done

	assert.Len(t, index.FindSymbol("run"), 50)
}

func TestSymbolKindFor(t *testing.T) {
	assert.Equal(t, protocol.SymbolKindMethod, SymbolKindFor(findings.KindMethod))
	assert.Equal(t, protocol.SymbolKindConstant, SymbolKindFor(findings.KindConstant))
	assert.Equal(t, protocol.SymbolKindEnumMember, SymbolKindFor(findings.KindEnumMember))
	assert.Equal(t, protocol.SymbolKindStruct, SymbolKindFor(findings.KindStructure))
	assert.Equal(t, protocol.SymbolKindModule, SymbolKindFor(findings.KindObjectInstance))
}
