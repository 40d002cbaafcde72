// Package encoding provides text encoding utilities for Ultima IX file formats.
package encoding

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Windows1252ToUTF8 converts Windows-1252 encoded bytes to a UTF-8 string.
// Returns the original bytes as a string if conversion fails.
func Windows1252ToUTF8(data []byte) string {
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// FixedStringToUTF8 converts a fixed-size, null-terminated Windows-1252 field to UTF-8.
func FixedStringToUTF8(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return Windows1252ToUTF8(data)
}

// UTF8ToFixedString encodes s into a null-padded Windows-1252 field of the given size.
// Characters outside the code page are replaced by the encoder; overlong input is cut.
func UTF8ToFixedString(s string, size int) []byte {
	encoded, _, err := transform.Bytes(charmap.Windows1252.NewEncoder(), []byte(s))
	if err != nil {
		encoded = []byte(s)
	}
	result := make([]byte, size)
	copy(result, encoded)
	return result
}
