package document

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const testMethods = "PUB main()\n  led.on()\n  waitms(100)"

func change(startLine, startChar, endLine, endChar int, text string) protocol.TextDocumentContentChangeEvent {
	return protocol.TextDocumentContentChangeEvent{
		Range: &protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(startLine), Character: protocol.UInteger(startChar)},
			End:   protocol.Position{Line: protocol.UInteger(endLine), Character: protocol.UInteger(endChar)},
		},
		Text: text,
	}
}

func TestApplyContentChange(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		change   protocol.TextDocumentContentChangeEvent
		expected string
	}{
		{"full sync", testMethods, protocol.TextDocumentContentChangeEvent{Text: "CON X = 1"}, "CON X = 1"},
		{"single line replacement", testMethods, change(1, 6, 1, 8, "off"), "PUB main()\n  led.off()\n  waitms(100)"},
		{"multi line deletion", testMethods, change(0, 10, 1, 11, ""), "PUB main()\n  waitms(100)"},
		{"insertion", testMethods, change(2, 12, 2, 12, "_0"), "PUB main()\n  led.on()\n  waitms(100_0)"},
		{"insertion at start of line", testMethods, change(1, 0, 1, 0, "'"), "PUB main()\n'  led.on()\n  waitms(100)"},
		{"append at end", testMethods, change(2, 13, 2, 13, "\n"), testMethods + "\n"},
		{"crlf line endings", "PUB a()\r\n  x := 1\r\n", change(1, 7, 1, 8, "2"), "PUB a()\r\n  x := 2\r\n"},
		{"utf16 surrogate pair", "' \U0001F600 ok", change(0, 2, 0, 4, "x"), "' x ok"},
		{"character past line end clamps", "ab\ncd", change(0, 9, 0, 9, "!"), "ab!\ncd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ApplyContentChange(tt.text, tt.change)
			if err != nil {
				t.Fatalf("ApplyContentChange returned error: %v", err)
			}

			if result != tt.expected {
				t.Errorf("Result = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestApplyContentChange_InvalidRange(t *testing.T) {
	if _, err := ApplyContentChange(testMethods, change(5, 0, 5, 1, "x")); err == nil {
		t.Error("Expected error for start line out of range")
	}

	if _, err := ApplyContentChange(testMethods, change(0, 0, 7, 0, "x")); err == nil {
		t.Error("Expected error for end line out of range")
	}

	if _, err := ApplyContentChange(testMethods, change(1, 4, 0, 2, "x")); err == nil {
		t.Error("Expected error for start after end")
	}
}

func TestApplyContentChanges(t *testing.T) {
	changes := []any{
		change(0, 4, 0, 8, "start"),
		protocol.TextDocumentContentChangeEventWhole{Text: "PUB go()\n"},
		change(0, 4, 0, 6, "run"),
	}

	result, err := ApplyContentChanges(testMethods, changes)
	if err != nil {
		t.Fatalf("ApplyContentChanges returned error: %v", err)
	}

	if result != "PUB run()\n" {
		t.Errorf("Result = %q, want %q", result, "PUB run()\n")
	}

	result, err = ApplyContentChanges("abc", []any{change(9, 0, 9, 0, "x"), change(0, 0, 0, 0, ">")})
	if err == nil {
		t.Error("Expected error for the failed change")
	}

	if result != ">abc" {
		t.Errorf("Result = %q, want the valid change applied", result)
	}
}

func TestPositionToOffset(t *testing.T) {
	tests := []struct {
		line, character int
		expected        int
	}{
		{0, 0, 0},
		{0, 4, 4},
		{1, 2, 13},
		{2, 0, 22},
	}

	for _, tt := range tests {
		offset, err := PositionToOffset(testMethods, tt.line, tt.character)
		if err != nil {
			t.Fatalf("PositionToOffset(%d, %d) returned error: %v", tt.line, tt.character, err)
		}

		if offset != tt.expected {
			t.Errorf("PositionToOffset(%d, %d) = %d, want %d", tt.line, tt.character, offset, tt.expected)
		}
	}
}

func TestOffsetToPosition(t *testing.T) {
	text := "a\n\U0001F600b\nc"

	tests := []struct {
		offset          int
		line, character int
	}{
		{0, 0, 0},
		{2, 1, 0},
		{6, 1, 2},
		{7, 1, 3},
		{9, 2, 1},
	}

	for _, tt := range tests {
		line, character, err := OffsetToPosition(text, tt.offset)
		if err != nil {
			t.Fatalf("OffsetToPosition(%d) returned error: %v", tt.offset, err)
		}

		if line != tt.line || character != tt.character {
			t.Errorf("OffsetToPosition(%d) = %d:%d, want %d:%d", tt.offset, line, character, tt.line, tt.character)
		}
	}

	if _, _, err := OffsetToPosition(text, len(text)+1); err == nil {
		t.Error("Expected error for offset past the end")
	}
}

func TestColumnRoundTrip(t *testing.T) {
	lines := []string{
		"PUB main()",
		"' Héllo Wörld",
		"' \U0001F600 x",
	}

	for _, line := range lines {
		for byteCol := 0; byteCol <= len(line); byteCol++ {
			// only rune boundaries round-trip
			if byteCol < len(line) && line[byteCol]&0xC0 == 0x80 {
				continue
			}

			units := UTF16Column(line, byteCol)
			if got := ByteColumn(line, units); got != byteCol {
				t.Errorf("%q: byte %d -> utf16 %d -> byte %d", line, byteCol, units, got)
			}
		}
	}
}
