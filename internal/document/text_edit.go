// Package document applies editor changes to document text and converts
// between protocol positions (UTF-16 code units) and byte columns.
package document

import (
	"fmt"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ApplyContentChanges applies the content changes of one didChange
// notification in order. Both incremental and whole-document events are
// accepted; an event that cannot be applied is skipped and reported in the
// returned error, the remaining events are still applied.
func ApplyContentChanges(text string, changes []any) (string, error) {
	var failed []string

	for i, change := range changes {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			updated, err := ApplyContentChange(text, c)
			if err != nil {
				failed = append(failed, fmt.Sprintf("change %d: %v", i, err))
				continue
			}

			text = updated
		default:
			failed = append(failed, fmt.Sprintf("change %d: unsupported type %T", i, change))
		}
	}

	if len(failed) > 0 {
		return text, fmt.Errorf("applying content changes: %s", strings.Join(failed, "; "))
	}

	return text, nil
}

// ApplyContentChange applies one incremental change. A change without a range
// replaces the whole text.
func ApplyContentChange(text string, change protocol.TextDocumentContentChangeEvent) (string, error) {
	if change.Range == nil {
		return change.Text, nil
	}

	start, err := PositionToOffset(text, int(change.Range.Start.Line), int(change.Range.Start.Character))
	if err != nil {
		return "", fmt.Errorf("invalid start position: %w", err)
	}

	end, err := PositionToOffset(text, int(change.Range.End.Line), int(change.Range.End.Character))
	if err != nil {
		return "", fmt.Errorf("invalid end position: %w", err)
	}

	if start > end {
		return "", fmt.Errorf("start offset %d after end offset %d", start, end)
	}

	return text[:start] + change.Text + text[end:], nil
}

// PositionToOffset converts a line and UTF-16 character position to a byte
// offset in text. A character past the end of its line clamps to the line end.
func PositionToOffset(text string, line, character int) (int, error) {
	if line < 0 || character < 0 {
		return 0, fmt.Errorf("negative position %d:%d", line, character)
	}

	offset := 0

	for i := 0; i < line; i++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next == -1 {
			return 0, fmt.Errorf("line %d out of range (0-%d)", line, i)
		}

		offset += next + 1
	}

	lineText := text[offset:]
	if next := strings.IndexByte(lineText, '\n'); next != -1 {
		lineText = lineText[:next]
	}

	lineText = strings.TrimSuffix(lineText, "\r")

	return offset + ByteColumn(lineText, character), nil
}

// OffsetToPosition converts a byte offset in text to a line and UTF-16
// character position.
func OffsetToPosition(text string, offset int) (line, character int, err error) {
	if offset < 0 || offset > len(text) {
		return 0, 0, fmt.Errorf("offset %d out of range (0-%d)", offset, len(text))
	}

	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	line = strings.Count(text[:lineStart], "\n")

	return line, UTF16Column(text[lineStart:], offset-lineStart), nil
}
