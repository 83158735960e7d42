package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/weberc2/dupes/pkg/dupes"
	"github.com/weberc2/dupes/pkg/trash"
)

// Notifier narrates a search on a console.
type Notifier struct {
	w io.Writer
}

func NewNotifier(w io.Writer) (n Notifier) {
	n.w = w
	return
}

var bold = color.New(color.Bold)

func (n Notifier) Searching(root string) {
	fmt.Fprintf(n.w, "%s searching directory: %s\n", nowStr(), root)
}

// Progress redraws the progress line in place.
func (n Notifier) Progress(percent int) {
	fmt.Fprintf(n.w, "\r%s hashing files: %3d%%", nowStr(), percent)
}

func (n Notifier) Finished(outcome *dupes.Outcome) {
	// terminate the progress line
	fmt.Fprintln(n.w)
	switch outcome.State {
	case dupes.StateCompleted:
		summary := outcome.Groups.Summary()
		bold.Fprintf(
			n.w,
			"%s search completed: %d groups (%s reclaimable)\n",
			nowStr(),
			summary.Groups,
			human(summary.Wasted),
		)
	case dupes.StateAborted:
		color.New(color.FgYellow).Fprintf(
			n.w,
			"%s search aborted\n",
			nowStr(),
		)
	default:
		color.New(color.FgRed).Fprintf(
			n.w,
			"%s search failed: %v\n",
			nowStr(),
			outcome.Err,
		)
	}
}

func (n Notifier) Trashed(size uint64, entry *trash.Entry) {
	color.New(color.FgGreen).Fprintf(
		n.w,
		"%s    trashed duplicate file (size: %s) [%s] as `%s`\n",
		nowStr(),
		human(size),
		entry.OriginalPath,
		entry.Name,
	)
}

func (n Notifier) TrashFailed(path string, err error) {
	color.New(color.FgRed).Fprintf(
		n.w,
		"%s    failed to trash file [%s]: %v\n",
		nowStr(),
		path,
		err,
	)
}

func (n Notifier) Exported(bucket, key string) {
	fmt.Fprintf(n.w, "%s exported report to %s/%s\n", nowStr(), bucket, key)
}

func nowStr() string {
	return time.Now().Format("2006-01-02 15:04:05")
}
