package scan

import "fmt"

const (
	KB uint64 = 1024
	MB        = KB * 1024
	GB        = MB * 1024
)

// FormatSize renders bytes with binary units and two decimals. Values at
// a unit boundary use the larger unit, so 1024 is "1.00 KB".
func FormatSize(bytes uint64) string {
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
