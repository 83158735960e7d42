package report

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
)

// Pretty renders reports for a terminal. Paths are shown relative to the
// search root.
type Pretty struct {
	NoColor bool
}

func (p *Pretty) Write(w io.Writer, report *Report) error {
	var (
		bw       = bufio.NewWriter(w)
		bold     = p.color(color.Bold)
		kept     = p.color(color.FgGreen)
		selected = p.color(color.FgRed)
		warn     = p.color(color.FgYellow)
	)

	if len(report.Groups) < 1 {
		fmt.Fprintln(bw, NoDuplicates)
	}

	for i, group := range report.Groups {
		page := Page{Index: i, Total: len(report.Groups)}
		bold.Fprintf(
			bw,
			"[%s] %d files @ %s each (%s)\n",
			page.Label(),
			len(group.Files),
			human(group.Size),
			group.Digest,
		)
		for _, file := range group.Files {
			path := relative(report.Root, file.Path)
			if file.Selected {
				selected.Fprintf(bw, "  [x] %s\n", path)
			} else {
				kept.Fprintf(bw, "  [ ] %s\n", path)
			}
		}
		fmt.Fprintln(bw)
	}

	if len(report.Skipped) > 0 {
		warn.Fprintf(bw, "skipped %d unreadable files:\n", len(report.Skipped))
		for _, skip := range report.Skipped {
			fmt.Fprintf(
				bw,
				"  %s (%s): %s\n",
				relative(report.Root, skip.Path),
				skip.Stage,
				skip.Error,
			)
		}
		fmt.Fprintln(bw)
	}

	if len(report.Groups) > 0 {
		bold.Fprintf(
			bw,
			"%d groups, %d duplicate files, %s reclaimable\n",
			report.Summary.Groups,
			report.Summary.Duplicates,
			human(report.Summary.Wasted),
		)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func (p *Pretty) color(attributes ...color.Attribute) *color.Color {
	c := color.New(attributes...)
	if p.NoColor {
		c.DisableColor()
	}
	return c
}

func relative(root, path string) string {
	if root == "" {
		return path
	}
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}

func human(n uint64) string {
	// Metric suffixes
	const (
		K = 1_000
		M = 1_000_000
		G = 1_000_000_000
		T = 1_000_000_000_000
		P = 1_000_000_000_000_000
		E = 1_000_000_000_000_000_000
	)

	switch {
	case n >= E:
		return fmt.Sprintf("%.1fE", float64(n)/E)
	case n >= P:
		return fmt.Sprintf("%.1fP", float64(n)/P)
	case n >= T:
		return fmt.Sprintf("%.1fT", float64(n)/T)
	case n >= G:
		return fmt.Sprintf("%.1fG", float64(n)/G)
	case n >= M:
		return fmt.Sprintf("%.1fM", float64(n)/M)
	case n >= K:
		return fmt.Sprintf("%.1fK", float64(n)/K)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
