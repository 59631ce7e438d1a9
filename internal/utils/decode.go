package utils

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeText converts raw file bytes into text without failing on malformed input.
// A UTF-8 or UTF-16 byte order mark selects the source encoding and is removed;
// otherwise the data is read as UTF-8 and invalid sequences become U+FFFD.
func DecodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return EmptyString, nil
	}
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, decodeError := transform.Bytes(decoder, data)
	if decodeError != nil {
		return EmptyString, fmt.Errorf("decode text: %w", decodeError)
	}
	return string(decoded), nil
}
