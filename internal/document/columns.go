package document

import "unicode/utf8"

// UTF16Column converts a byte column in line to UTF-16 code units.
func UTF16Column(line string, byteCol int) int {
	if byteCol > len(line) {
		byteCol = len(line)
	}

	units := 0

	for i, r := range line {
		if i >= byteCol {
			break
		}

		units += utf16Len(r)
	}

	return units
}

// ByteColumn converts a UTF-16 column in line to a byte column. Columns past
// the end of the line clamp to its length.
func ByteColumn(line string, utf16Col int) int {
	units := 0

	for i, r := range line {
		if units >= utf16Col {
			return i
		}

		units += utf16Len(r)
	}

	return len(line)
}

func utf16Len(r rune) int {
	if r > 0xFFFF && r <= utf8.MaxRune {
		return 2
	}

	return 1
}
