package utils

import (
	"time"
)

const (
	timestampLayout         = "2006-01-02 15:04:05"
	fileNameTimestampLayout = "20060102_150405"
)

// FormatTimestamp returns the provided time formatted using the local time zone
// for artifact headers.
func FormatTimestamp(value time.Time) string {
	if value.IsZero() {
		return EmptyString
	}
	return value.In(time.Local).Format(timestampLayout)
}

// FormatFileNameTimestamp returns the compact timestamp embedded in artifact file names.
func FormatFileNameTimestamp(value time.Time) string {
	if value.IsZero() {
		return EmptyString
	}
	return value.In(time.Local).Format(fileNameTimestampLayout)
}
