package workspace

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LoadFile reads a file from disk and decodes it to a string.
func LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	return DecodeText(data), nil
}

// DecodeText turns raw file content into text. Content with a UTF-16 byte
// order mark, or with NUL bytes, is decoded as UTF-16; without a mark the
// position of the first NUL picks the byte order.
func DecodeText(data []byte) string {
	var endian unicode.Endianness

	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		endian = unicode.LittleEndian
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		endian = unicode.BigEndian
	case bytes.IndexByte(data, 0) >= 0:
		endian = unicode.LittleEndian
		if len(data) > 1 && data[0] == 0 && data[1] != 0 {
			endian = unicode.BigEndian
		}
	default:
		return string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	}

	decoder := unicode.UTF16(endian, unicode.ExpectBOM).NewDecoder()
	if !bytes.HasPrefix(data, []byte{0xFF, 0xFE}) && !bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		decoder = unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder()
	}

	text, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}

	return string(text)
}
