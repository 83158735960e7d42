// Package report presents the results of duplicate searches.
package report

import (
	"fmt"

	"github.com/weberc2/dupes/pkg/dupes"
)

// NoDuplicates is shown in place of a page when a search found nothing.
const NoDuplicates = "No duplicates found"

// Report is the presentable form of a search outcome. Each file carries its
// default selection: the first file of a group is kept and the rest are
// selected for removal.
type Report struct {
	ID      string          `json:"id,omitempty" yaml:"id,omitempty"`
	Root    string          `json:"root" yaml:"root"`
	Summary dupes.Summary   `json:"summary" yaml:"summary"`
	Groups  []GroupReport   `json:"groups" yaml:"groups"`
	Skipped []dupes.Skipped `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

type GroupReport struct {
	Digest string       `json:"digest" yaml:"digest"`
	Size   uint64       `json:"size" yaml:"size"`
	Files  []FileReport `json:"files" yaml:"files"`
}

type FileReport struct {
	Path     string `json:"path" yaml:"path"`
	Selected bool   `json:"selected" yaml:"selected"`
}

// New builds a report for the search of `root`. `set` may be nil, in which
// case the report has no groups.
func New(root string, set *dupes.GroupSet, skipped []dupes.Skipped) Report {
	report := Report{Root: root, Groups: []GroupReport{}, Skipped: skipped}
	if set == nil {
		return report
	}

	report.Summary = set.Summary()
	for i := range set.Groups {
		report.Groups = append(report.Groups, newGroupReport(&set.Groups[i]))
	}
	return report
}

func newGroupReport(group *dupes.Group) GroupReport {
	selection := group.DefaultSelection()
	files := make([]FileReport, len(group.Paths))
	for i, path := range group.Paths {
		files[i] = FileReport{Path: path, Selected: selection[i]}
	}
	return GroupReport{
		Digest: group.Digest.String(),
		Size:   group.Size,
		Files:  files,
	}
}

// Selected returns the paths selected for removal.
func (report *Report) Selected() []string {
	var paths []string
	for _, group := range report.Groups {
		for _, file := range group.Files {
			if file.Selected {
				paths = append(paths, file.Path)
			}
		}
	}
	return paths
}

// Page is a single group of a search result, paged one group at a time.
type Page struct {
	Index int         `json:"index"`
	Total int         `json:"total"`
	Group GroupReport `json:"group"`
}

// Label renders the page's position as `page/total`, counting from one.
func (page *Page) Label() string {
	return fmt.Sprintf("%d/%d", page.Index+1, page.Total)
}

// GetPage returns the `index`th (zero-based) group of `set`.
func GetPage(set *dupes.GroupSet, index int) (Page, error) {
	if set == nil || index < 0 || index >= set.Len() {
		total := 0
		if set != nil {
			total = set.Len()
		}
		return Page{}, &PageNotFoundErr{Index: index, Total: total}
	}
	return Page{
		Index: index,
		Total: set.Len(),
		Group: newGroupReport(&set.Groups[index]),
	}, nil
}

type PageNotFoundErr struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

func (err *PageNotFoundErr) Error() string {
	if err.Total < 1 {
		return NoDuplicates
	}
	return fmt.Sprintf(
		"page %d not found: %d pages available",
		err.Index+1,
		err.Total,
	)
}
