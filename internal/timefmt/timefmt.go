// Package timefmt converts absolute timestamps into relative-age labels.
package timefmt

import (
	"fmt"
	"time"
)

// Ago renders the age of t relative to now, matching the feed UI's labels:
// seconds under a minute, then minutes, hours, and days.
func Ago(t, now time.Time) string {
	seconds := int(now.Sub(t).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds ago", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}

	return fmt.Sprintf("%dd ago", hours/24)
}

// AgoNow is Ago against the wall clock.
func AgoNow(t time.Time) string {
	return Ago(t, time.Now())
}
