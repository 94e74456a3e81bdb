// Package output renders benchmark progress and finished reports to
// terminals and byte-oriented sinks.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/querybench/querybench/internal/metrics"
	"github.com/querybench/querybench/internal/report"
)

const (
	clearToEnd = "\033[K"
	ruleWidth  = 56

	ruleChar  = "━"
	barFilled = "█"
	barEmpty  = "░"
	barWidth  = 30
)

// Console renders run lifecycle events as human-readable terminal
// output. On a TTY the progress line is rewritten in place; otherwise
// each progress tick prints its own line. Safe for concurrent runs.
type Console struct {
	w       io.Writer
	scheme  *ColorScheme
	noColor bool
	tty     bool
	quiet   bool
	verbose bool

	mu      sync.Mutex
	pending bool
}

// ConsoleOption adjusts a Console at construction.
type ConsoleOption func(*Console)

// WithQuiet suppresses everything except the final footer counts.
func WithQuiet(quiet bool) ConsoleOption {
	return func(c *Console) { c.quiet = quiet }
}

// WithNoColor disables ANSI colors regardless of terminal detection.
func WithNoColor(noColor bool) ConsoleOption {
	return func(c *Console) {
		if noColor {
			c.noColor = true
			c.scheme = NoColorScheme()
		}
	}
}

// WithVerbose adds the bucket distribution bars to each run summary.
func WithVerbose(verbose bool) ConsoleOption {
	return func(c *Console) { c.verbose = verbose }
}

// NewConsole creates a console renderer writing to w (stdout when nil).
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	if w == nil {
		w = os.Stdout
	}
	c := &Console{
		w:      w,
		scheme: DefaultColorScheme(),
		tty:    isTerminal(w),
	}
	if !c.tty {
		c.noColor = true
		c.scheme = NoColorScheme()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// RunStarted announces a run.
func (c *Console) RunStarted(benchmark, tool string) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closePending()
	c.writeln(fmt.Sprintf("▶ %s %s running",
		c.scheme.RunName.Sprint(benchmark),
		c.scheme.Tool.Sprintf("[%s]", tool)))
}

// RunProgress updates the sample counter for an in-flight run.
func (c *Console) RunProgress(benchmark, tool string, samples int64) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	line := fmt.Sprintf("  %s [%s] %s samples",
		benchmark, tool, c.scheme.Value.Sprint(formatNumber(samples)))
	if c.tty {
		fmt.Fprint(c.w, "\r"+clearToEnd+line)
		c.pending = true
		return
	}
	c.writeln(line)
}

// RunFinished renders the summary block for a finished run.
func (c *Console) RunFinished(doc *report.BenchmarkMetrics) {
	if c.quiet || doc == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closePending()

	rule := c.scheme.Rule.Sprint(strings.Repeat(ruleChar, ruleWidth))
	c.writeln("")
	c.writeln(rule)
	c.writeln(fmt.Sprintf("%s %s %s",
		c.scheme.RunName.Sprint(doc.Name),
		c.scheme.Tool.Sprintf("[%s]", doc.Tool),
		c.statusText(doc)))
	c.writeln(rule)

	if doc.Error != "" {
		c.writeln(fmt.Sprintf("  %s %s",
			c.scheme.Label.Sprint("Error:"),
			c.scheme.StatusError.Sprint(doc.Error)))
	}

	window := doc.Time.End.Sub(doc.Time.Start)
	c.writeln(fmt.Sprintf("  %s %s in %s (%s req/s)",
		c.scheme.Label.Sprint("Requests:"),
		c.scheme.Value.Sprint(formatNumber(doc.Requests.Count)),
		formatDuration(window),
		c.scheme.Value.Sprintf("%.1f", doc.Requests.Average)))

	failColor := c.scheme.StatusOK
	if doc.Requests.Failed > 0 || doc.Requests.Errors > 0 {
		failColor = c.scheme.StatusWarn
	}
	c.writeln(fmt.Sprintf("  %s %s failed responses, %s transport errors",
		c.scheme.Label.Sprint("Failures:"),
		failColor.Sprint(formatNumber(doc.Requests.Failed)),
		failColor.Sprint(formatNumber(doc.Requests.Errors))))

	if doc.Response.TotalBytes > 0 {
		c.writeln(fmt.Sprintf("  %s %s (%s/s)",
			c.scheme.Label.Sprint("Transfer:"),
			formatBytes(doc.Response.TotalBytes),
			formatBytes(int64(doc.Response.BytesPerSecond))))
	}

	if doc.Histogram.Summary.TotalCount > 0 {
		s := doc.Histogram.Summary
		c.writeln(fmt.Sprintf("  %s", c.scheme.Label.Sprint("Latency:")))
		c.writeln(fmt.Sprintf("    Min:  %s", formatMillis(s.Min)))
		c.writeln(fmt.Sprintf("    P50:  %s", formatMillis(s.P50)))
		c.writeln(fmt.Sprintf("    P90:  %s", formatMillis(s.P90)))
		c.writeln(fmt.Sprintf("    P95:  %s", formatMillis(s.P95)))
		c.writeln(fmt.Sprintf("    P99:  %s", formatMillis(s.P99)))
		c.writeln(fmt.Sprintf("    Max:  %s", formatMillis(s.Max)))
	}

	if c.verbose && doc.BasicHistogram != nil && len(doc.BasicHistogram.Buckets) > 0 {
		c.renderBuckets(doc.BasicHistogram.Buckets)
		if doc.BasicHistogram.OutliersRemoved > 0 {
			c.writeln(fmt.Sprintf("    outliers removed: %s",
				formatNumber(doc.BasicHistogram.OutliersRemoved)))
		}
	}

	if doc.HasuraChecks != nil {
		c.writeln(fmt.Sprintf("  %s allocated %s, live %s, in use %s",
			c.scheme.Label.Sprint("Memory:"),
			formatBytesDelta(doc.HasuraChecks.AllocatedBytesDelta),
			formatBytesDelta(doc.HasuraChecks.LiveBytesDelta),
			formatBytesDelta(doc.HasuraChecks.MemInUseBytesDelta)))
	}
}

// Footer prints the closing summary after the whole matrix finished.
func (c *Console) Footer(docs []*report.BenchmarkMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closePending()

	passed, failed, interrupted := 0, 0, 0
	for _, doc := range docs {
		switch {
		case doc.Error != "":
			failed++
		case doc.Interrupted:
			interrupted++
		default:
			passed++
		}
	}

	counts := fmt.Sprintf("%d runs: %s passed, %s failed",
		len(docs),
		c.scheme.StatusOK.Sprint(formatNumber(int64(passed))),
		c.scheme.StatusError.Sprint(formatNumber(int64(failed))))
	if interrupted > 0 {
		counts += fmt.Sprintf(", %s interrupted",
			c.scheme.StatusWarn.Sprint(formatNumber(int64(interrupted))))
	}

	if c.quiet {
		c.writeln(counts)
		return
	}

	c.writeln("")
	c.writeln(c.scheme.Rule.Sprint(strings.Repeat(ruleChar, ruleWidth)))
	c.writeln(counts)
	for _, doc := range docs {
		c.writeln("  " + c.runLine(doc))
	}
}

func (c *Console) runLine(doc *report.BenchmarkMetrics) string {
	name := fmt.Sprintf("%s [%s]", doc.Name, doc.Tool)
	switch {
	case doc.Error != "":
		return fmt.Sprintf("%s %-32s %s", ErrorIcon(c.noColor), name, doc.Error)
	case doc.Interrupted:
		return fmt.Sprintf("%s %-32s interrupted after %s reqs",
			WarningIcon(c.noColor), name, formatNumber(doc.Requests.Count))
	default:
		p50 := ""
		if doc.Histogram.Summary.TotalCount > 0 {
			p50 = ", p50 " + formatMillis(doc.Histogram.Summary.P50)
		}
		return fmt.Sprintf("%s %-32s %s reqs%s",
			SuccessIcon(c.noColor), name, formatNumber(doc.Requests.Count), p50)
	}
}

func (c *Console) statusText(doc *report.BenchmarkMetrics) string {
	switch {
	case doc.Error != "":
		return c.scheme.StatusError.Sprint("Failed ✗")
	case doc.Interrupted:
		return c.scheme.StatusWarn.Sprint("Interrupted ⚠")
	default:
		return c.scheme.StatusOK.Sprint("Completed ✓")
	}
}

// renderBuckets draws one bar per bucket, scaled to the largest count.
func (c *Console) renderBuckets(buckets []metrics.HistBucket) {
	var max int64
	for _, b := range buckets {
		if b.Count > max {
			max = b.Count
		}
	}
	if max == 0 {
		return
	}
	c.writeln(fmt.Sprintf("  %s", c.scheme.Label.Sprint("Distribution:")))
	for _, b := range buckets {
		filled := int(float64(barWidth) * float64(b.Count) / float64(max))
		bar := c.scheme.Bar.Sprint(strings.Repeat(barFilled, filled)) +
			c.scheme.Dim.Sprint(strings.Repeat(barEmpty, barWidth-filled))
		c.writeln(fmt.Sprintf("    %9s %s %s",
			formatMillis(b.Gte), bar, formatNumber(b.Count)))
	}
}

func (c *Console) closePending() {
	if c.pending {
		fmt.Fprint(c.w, "\n")
		c.pending = false
	}
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.w, s)
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// formatMillis renders a millisecond quantity from the summary.
func formatMillis(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	return fmt.Sprintf("%.2fms", ms)
}

// formatBytes renders a byte count with decimal units.
func formatBytes(n int64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "kMGT"[exp])
}

func formatBytesDelta(n int64) string {
	if n < 0 {
		return "-" + formatBytes(-n)
	}
	return "+" + formatBytes(n)
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	neg := false
	if strings.HasPrefix(str, "-") {
		neg = true
		str = str[1:]
	}
	if len(str) > 3 {
		var b strings.Builder
		offset := len(str) % 3
		if offset > 0 {
			b.WriteString(str[:offset])
		}
		for i := offset; i < len(str); i += 3 {
			if b.Len() > 0 {
				b.WriteString(",")
			}
			b.WriteString(str[i : i+3])
		}
		str = b.String()
	}
	if neg {
		return "-" + str
	}
	return str
}
