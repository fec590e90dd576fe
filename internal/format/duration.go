package format

import (
	"fmt"
	"strings"
)

// Minutes renders a minute count as a compact human-readable duration,
// e.g. 0 -> "0m", 45 -> "45m", 125 -> "2h 5m", 1500 -> "1d 1h".
func Minutes(total int) string {
	if total <= 0 {
		return "0m"
	}
	days := total / (24 * 60)
	hours := (total % (24 * 60)) / 60
	mins := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 && days == 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	return strings.Join(parts, " ")
}

// Hours renders a minute count as fractional hours, e.g. 90 -> "1.5h".
func Hours(totalMinutes int) string {
	return fmt.Sprintf("%.1fh", float64(totalMinutes)/60)
}
