package content

import (
	"fmt"
	"math"
	"time"
)

// TimeAgo renders the age of t relative to now as "N minutes ago" under an
// hour, "N hours ago" under a day and "N days ago" otherwise.
func TimeAgo(t, now time.Time) string {
	mins, hours, days := age(t, now)
	switch {
	case hours < 1:
		return fmt.Sprintf("%d minutes ago", mins)
	case hours < 24:
		return fmt.Sprintf("%d hours ago", hours)
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

// TimeAgoShort is TimeAgo with unit suffixes: "5m ago", "3h ago", "2d ago".
func TimeAgoShort(t, now time.Time) string {
	mins, hours, days := age(t, now)
	switch {
	case hours < 1:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	default:
		return fmt.Sprintf("%dd ago", days)
	}
}

func age(t, now time.Time) (mins, hours, days int) {
	d := now.Sub(t)
	hours = int(math.Floor(d.Hours()))
	mins = int(math.Floor(d.Minutes()))
	days = int(math.Floor(float64(hours) / 24))
	return mins, hours, days
}
