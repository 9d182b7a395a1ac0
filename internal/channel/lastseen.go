package channel

import (
	"fmt"
	"time"
)

// Duration buckets for humanizing a last-seen timestamp. The month and year
// widths follow the mean Gregorian calendar.
const (
	month = time.Duration(2629746) * time.Second
	year  = time.Duration(31556952) * time.Second
	week  = 7 * 24 * time.Hour
	day   = 24 * time.Hour
)

// HumanizeLastSeen renders how long ago an offline friend was last seen.
func HumanizeLastSeen(since time.Duration) string {
	switch {
	case since < time.Minute:
		return "Just now"
	case since < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(since/time.Minute))
	case since < day:
		return fmt.Sprintf("%d hours ago", int(since/time.Hour))
	case since < week:
		return fmt.Sprintf("%d days ago", int(since/day))
	case since < month:
		return fmt.Sprintf("%d weeks ago", int(since/week))
	case since < year:
		return fmt.Sprintf("%d months ago", int(since/month))
	default:
		return fmt.Sprintf("%d years ago", int(since/year))
	}
}
