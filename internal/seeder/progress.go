package seeder

import (
	"fmt"
	"io"
	"time"
)

// Progress tracks seeding progress.
type Progress struct {
	Phase          string
	RecordsRead    int64
	ObjectsWritten int64
	ObjectsTotal   int64
	BytesWritten   int64
	StartTime      time.Time
	Error          error
}

// ProgressFunc is called periodically with progress updates.
type ProgressFunc func(Progress)

// FormatBytes formats bytes as human-readable string.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration formats duration as human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// NewPrinter returns a ProgressFunc that prints one updating line per phase
// to w.
func NewPrinter(w io.Writer) ProgressFunc {
	return func(p Progress) {
		switch p.Phase {
		case "read":
			fmt.Fprintf(w, "\r[Read] %d records", p.RecordsRead)
		case "write":
			fmt.Fprintf(w, "\r[Write] %d / %d objects, %s",
				p.ObjectsWritten, p.ObjectsTotal, FormatBytes(p.BytesWritten))
		case "upload":
			fmt.Fprintf(w, "\r[Upload] %d / %d objects", p.ObjectsWritten, p.ObjectsTotal)
		case "done":
			elapsed := time.Since(p.StartTime)
			fmt.Fprintf(w, "\n[Done] %d objects, %s (%s)\n",
				p.ObjectsWritten, FormatBytes(p.BytesWritten), FormatDuration(elapsed))
		case "error":
			fmt.Fprintf(w, "\n[Error] %v\n", p.Error)
		}
	}
}
