package report

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/weberc2/dupes/pkg/dupes"
	"github.com/weberc2/dupes/pkg/testsupport"
	"gopkg.in/yaml.v2"
)

func groupSet() *dupes.GroupSet {
	return &dupes.GroupSet{Groups: []dupes.Group{
		{
			Digest: "\xab",
			Size:   5,
			Paths:  []string{"/r/a", "/r/sub/b"},
		},
		{
			Digest: "\xcd",
			Size:   2000,
			Paths:  []string{"/r/c", "/r/d", "/r/e"},
		},
	}}
}

func TestNew(t *testing.T) {
	report := New("/r", groupSet(), nil)

	wantedSummary := dupes.Summary{
		Groups:     2,
		Files:      5,
		Duplicates: 3,
		Wasted:     4005,
	}
	if report.Summary != wantedSummary {
		t.Fatalf(
			"Report.Summary: wanted `%+v`; found `%+v`",
			wantedSummary,
			report.Summary,
		)
	}

	wantedSelected := []string{"/r/sub/b", "/r/d", "/r/e"}
	if selected := report.Selected(); !reflect.DeepEqual(
		wantedSelected,
		selected,
	) {
		t.Fatalf(
			"Report.Selected(): wanted `%v`; found `%v`",
			wantedSelected,
			selected,
		)
	}

	if report.Groups[1].Digest != "cd" {
		t.Fatalf(
			"Report.Groups[1].Digest: wanted `cd`; found `%s`",
			report.Groups[1].Digest,
		)
	}
}

func TestNew_NilSet(t *testing.T) {
	report := New("/r", nil, nil)
	if report.Groups == nil || len(report.Groups) != 0 {
		t.Fatalf("Report.Groups: wanted empty; found `%v`", report.Groups)
	}
}

func TestGetPage(t *testing.T) {
	for _, testCase := range []struct {
		name        string
		set         *dupes.GroupSet
		index       int
		wantedLabel string
		wantedFiles []FileReport
		wantedErr   string
	}{
		{
			name:        "first",
			set:         groupSet(),
			index:       0,
			wantedLabel: "1/2",
			wantedFiles: []FileReport{
				{Path: "/r/a", Selected: false},
				{Path: "/r/sub/b", Selected: true},
			},
		},
		{
			name:        "last",
			set:         groupSet(),
			index:       1,
			wantedLabel: "2/2",
			wantedFiles: []FileReport{
				{Path: "/r/c", Selected: false},
				{Path: "/r/d", Selected: true},
				{Path: "/r/e", Selected: true},
			},
		},
		{
			name:      "out-of-range",
			set:       groupSet(),
			index:     2,
			wantedErr: "page 3 not found: 2 pages available",
		},
		{
			name:      "empty",
			set:       &dupes.GroupSet{},
			index:     0,
			wantedErr: NoDuplicates,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			page, err := GetPage(testCase.set, testCase.index)
			if testCase.wantedErr != "" {
				if err == nil || err.Error() != testCase.wantedErr {
					t.Fatalf(
						"GetPage(): wanted err `%s`; found `%v`",
						testCase.wantedErr,
						err,
					)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetPage(): unexpected err: %v", err)
			}
			if label := page.Label(); label != testCase.wantedLabel {
				t.Fatalf(
					"Page.Label(): wanted `%s`; found `%s`",
					testCase.wantedLabel,
					label,
				)
			}
			if !reflect.DeepEqual(testCase.wantedFiles, page.Group.Files) {
				t.Fatalf(
					"Page.Group.Files: wanted `%v`; found `%v`",
					testCase.wantedFiles,
					page.Group.Files,
				)
			}
		})
	}
}

func TestPretty(t *testing.T) {
	for _, testCase := range []struct {
		name   string
		report Report
		wanted string
	}{
		{
			name: "groups",
			report: New("/r", &dupes.GroupSet{Groups: []dupes.Group{{
				Digest: "\xab",
				Size:   5,
				Paths:  []string{"/r/a", "/r/sub/b"},
			}}}, []dupes.Skipped{{
				Path:  "/r/locked",
				Stage: dupes.StageHash,
				Error: "permission denied",
			}}),
			wanted: "[1/1] 2 files @ 5B each (ab)\n" +
				"  [ ] a\n" +
				"  [x] sub/b\n" +
				"\n" +
				"skipped 1 unreadable files:\n" +
				"  locked (HASH): permission denied\n" +
				"\n" +
				"1 groups, 1 duplicate files, 5B reclaimable\n",
		},
		{
			name:   "empty",
			report: New("/r", &dupes.GroupSet{}, nil),
			wanted: NoDuplicates + "\n",
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			var b strings.Builder
			if err := (&Pretty{NoColor: true}).Write(
				&b,
				&testCase.report,
			); err != nil {
				t.Fatalf("Pretty.Write(): unexpected err: %v", err)
			}
			if found := b.String(); found != testCase.wanted {
				t.Fatalf(
					"Pretty.Write(): wanted:\n%s\nfound:\n%s",
					testCase.wanted,
					found,
				)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	report := New("/r", groupSet(), nil)

	var b bytes.Buffer
	if err := Write(&b, FormatJSON, &report); err != nil {
		t.Fatalf("Write(json): unexpected err: %v", err)
	}
	var fromJSON Report
	if err := json.Unmarshal(b.Bytes(), &fromJSON); err != nil {
		t.Fatalf("decoding json report: %v", err)
	}
	if !reflect.DeepEqual(report, fromJSON) {
		t.Fatalf("json report: wanted `%+v`; found `%+v`", report, fromJSON)
	}

	b.Reset()
	if err := Write(&b, FormatYAML, &report); err != nil {
		t.Fatalf("Write(yaml): unexpected err: %v", err)
	}
	var fromYAML Report
	if err := yaml.Unmarshal(b.Bytes(), &fromYAML); err != nil {
		t.Fatalf("decoding yaml report: %v", err)
	}
	if !reflect.DeepEqual(report, fromYAML) {
		t.Fatalf("yaml report: wanted `%+v`; found `%+v`", report, fromYAML)
	}

	if err := Write(&b, Format("xml"), &report); err == nil {
		t.Fatal("Write(xml): wanted error")
	}
}

func TestParseFormat(t *testing.T) {
	for input, wanted := range map[string]Format{
		"":       FormatPretty,
		"pretty": FormatPretty,
		"json":   FormatJSON,
		"yaml":   FormatYAML,
	} {
		found, err := ParseFormat(input)
		if err != nil {
			t.Fatalf("ParseFormat(`%s`): unexpected err: %v", input, err)
		}
		if found != wanted {
			t.Fatalf(
				"ParseFormat(`%s`): wanted `%s`; found `%s`",
				input,
				wanted,
				found,
			)
		}
	}
	if _, err := ParseFormat("toml"); err == nil {
		t.Fatal("ParseFormat(`toml`): wanted error")
	}
}

func TestExport(t *testing.T) {
	store := testsupport.ObjectStoreFake{}
	report := New("/home/User/Photos", groupSet(), nil)
	report.ID = "1234"

	key, err := Export(store, "reports", "dupes/", &report)
	if err != nil {
		t.Fatalf("Export(): unexpected err: %v", err)
	}
	if wanted := "dupes/home-user-photos/1234.json"; key != wanted {
		t.Fatalf("Export(): wanted key `%s`; found `%s`", wanted, key)
	}

	// the stored object is compressed
	raw := store[[2]string{"reports", key}]
	if len(raw) < 2 || raw[0] != 0x1f || raw[1] != 0x8b {
		t.Fatalf("stored object: wanted gzip data; found `%x`", raw)
	}

	imported, err := Import(store, "reports", key)
	if err != nil {
		t.Fatalf("Import(): unexpected err: %v", err)
	}
	if !reflect.DeepEqual(report, imported) {
		t.Fatalf("Import(): wanted `%+v`; found `%+v`", report, imported)
	}
}
