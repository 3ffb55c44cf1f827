// Package timeutil formats times and durations for CLI output.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// LocalTimeFormat renders timestamps the way `zkauth whoami` shows the last
// login, in the reader's local zone.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatUptime rewrites a Go duration string ("147h12m3s") as day-granular
// text ("6d 3h 12m 3s"). Unparseable input comes back unchanged so the raw
// value from the server is still visible.
func FormatUptime(uptime string) string {
	d, err := time.ParseDuration(uptime)
	if err != nil {
		return uptime
	}

	total := int(d.Seconds())
	parts := []struct {
		unit string
		size int
	}{
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
		{"s", 1},
	}

	var b strings.Builder
	for _, p := range parts {
		n := total / p.size
		total %= p.size
		if n == 0 && b.Len() == 0 && p.unit != "s" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d%s", n, p.unit)
	}
	return b.String()
}
