package api

import "time"

// FormatDuration exposes formatDuration for tests.
func FormatDuration(d time.Duration) string {
	return formatDuration(d)
}
