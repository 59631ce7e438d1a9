package utils

import (
	"fmt"
	"strings"
)

var fileSizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatFileSize converts a byte length into a human-readable string such as "512 B" or "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	value := float64(bytes)
	unitIndex := 0
	for value >= 1024 && unitIndex < len(fileSizeUnits)-1 {
		value /= 1024
		unitIndex++
	}
	if unitIndex == 0 {
		return fmt.Sprintf("%d %s", bytes, fileSizeUnits[0])
	}
	if value < 10 {
		formatted := strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0")
		return formatted + " " + fileSizeUnits[unitIndex]
	}
	return fmt.Sprintf("%.0f %s", value, fileSizeUnits[unitIndex])
}
