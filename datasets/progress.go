package datasets

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// NewProgress returns an iteration counter for a directory walk of n items.
// When enabled is false the bar is silent.
func NewProgress(n int, description string, enabled bool) *progressbar.ProgressBar {
	if !enabled {
		return progressbar.DefaultSilent(int64(n), description)
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = os.Stderr.WriteString("\n") }),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
	)
}
