package utils

import (
	"bytes"
)

// sniffLength defines the maximum number of bytes inspected when detecting binary content.
const sniffLength = 8000

// IsBinary reports whether the provided byte slice appears to contain binary data.
// Only NUL bytes within the first sniffLength bytes mark content as binary; invalid
// UTF-8 is left to the lenient decoder.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	window := data
	if len(window) > sniffLength {
		window = window[:sniffLength]
	}
	return bytes.IndexByte(window, 0) >= 0
}
