// Package calc provides progress normalization helpers.
package calc

import "fmt"

const fullPercent = 100.0

// Percent returns the completion percentage clamped to [0, 100].
// It returns nil when total is unknown (<= 0): a percent is never
// fabricated for indeterminate transfers.
func Percent(downloaded, total int64) *float64 {
	if total <= 0 {
		return nil
	}

	p := float64(downloaded) / float64(total) * fullPercent
	if p < 0 {
		p = 0
	}
	if p > fullPercent {
		p = fullPercent
	}

	return &p
}

// ETA returns the estimated remaining seconds given the current speed in
// bytes per second. It returns 0 when the total or speed is unknown.
func ETA(downloaded, total int64, speed float64) int64 {
	if total <= 0 || speed <= 0 || downloaded >= total {
		return 0
	}

	return int64(float64(total-downloaded) / speed)
}

// HumanBytes formats a byte count into a human-readable string.
func HumanBytes(n int64) string {
	if n < 1 {
		return "0 B"
	}

	val := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if val < 1024.0 {
			return fmt.Sprintf("%.2f %s", val, unit)
		}
		val /= 1024.0
	}

	return fmt.Sprintf("%.2f TB", val)
}
