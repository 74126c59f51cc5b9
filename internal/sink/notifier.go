package sink

import (
	"io"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/pterm/pterm"
)

// Notifier prints progress and summary messages to a terminal.
// A nil *Notifier is valid and discards everything.
type Notifier struct {
	info    *pterm.PrefixPrinter
	success *pterm.PrefixPrinter
	warning *pterm.PrefixPrinter
}

// NewNotifier creates a Notifier writing to w, normally os.Stderr so that
// report output on stdout stays clean.
func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{
		info:    pterm.Info.WithWriter(w),
		success: pterm.Success.WithWriter(w),
		warning: pterm.Warning.WithWriter(w),
	}
}

// NotifyProgress prints a single progress line.
func (n *Notifier) NotifyProgress(msg string) {
	if n == nil {
		return
	}
	n.info.Println(msg)
}

// NotifySummary prints the end-of-run summary.
func (n *Notifier) NotifySummary(summary domain.Summary) {
	if n == nil {
		return
	}
	n.success.Printf("✅ Updated %d repositories for %s\n", summary.Repositories, summary.Account)
	n.info.Printf("   ├─ ⭐ Stars: %d total | median %.1f\n", summary.TotalStars, summary.MedianStars)
	n.info.Printf("   └─ 💾 Size: %.2f MB total | mean %.2f MB\n", summary.TotalSizeMB, summary.MeanSizeMB)
	if summary.Degraded > 0 {
		n.warning.Printf("⚠ %d repositories could not be enriched; their Open PRs column shows %q\n", summary.Degraded, domain.UnavailableText)
	}
	if summary.Partial {
		n.warning.Println("⚠ Repository enumeration stopped early; the report is partial")
	}
	if summary.ExpectedRepositories > summary.Repositories {
		n.warning.Printf("⚠ The account reports %d public repositories\n", summary.ExpectedRepositories)
	}
}
