package document

// Word is an identifier found at a cursor.
type Word struct {
	Text      string
	Qualifier string // object instance in front of the word, as in inst.name or inst[i].name
	Start     int    // byte column of the first character
	End       int    // byte column after the last character
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// WordAtPosition returns the identifier under byte column col of line. A
// cursor right after the last character still selects the word. A leading
// '.' or ':' belongs to the word when it starts a PASM local label.
func WordAtPosition(line string, col int) (Word, bool) {
	if col < 0 || col > len(line) {
		return Word{}, false
	}

	start := col
	if start == len(line) || !isWordChar(line[start]) {
		if start == 0 || !isWordChar(line[start-1]) {
			if start < len(line) && (line[start] == '.' || line[start] == ':') && start+1 < len(line) && isWordChar(line[start+1]) {
				start++
			} else {
				return Word{}, false
			}
		}
	}

	for start > 0 && isWordChar(line[start-1]) {
		start--
	}

	end := start
	for end < len(line) && isWordChar(line[end]) {
		end++
	}

	if end == start || (line[start] >= '0' && line[start] <= '9') {
		return Word{}, false
	}

	word := Word{Start: start, End: end}

	if start > 0 && (line[start-1] == '.' || line[start-1] == ':') {
		before := start - 1
		if before > 0 && (isWordChar(line[before-1]) || line[before-1] == ']' || line[before-1] == ')') {
			if line[start-1] == '.' {
				word.Qualifier = qualifierBefore(line, before)
			}
		} else {
			word.Start = before
		}
	}

	word.Text = line[word.Start:end]

	return word, true
}

// qualifierBefore returns the instance name that ends right before the '.' at
// dot, skipping one [index] group.
func qualifierBefore(line string, dot int) string {
	end := dot

	if end > 0 && line[end-1] == ']' {
		depth := 0

		for i := end - 1; i >= 0; i-- {
			switch line[i] {
			case ']':
				depth++
			case '[':
				depth--
			}

			if depth == 0 {
				end = i
				break
			}
		}

		if depth != 0 {
			return ""
		}
	}

	start := end
	for start > 0 && isWordChar(line[start-1]) {
		start--
	}

	if start == end {
		return ""
	}

	return line[start:end]
}
