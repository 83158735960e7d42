package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v2"
)

type Format string

const (
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
)

var Formats = []Format{FormatPretty, FormatJSON, FormatYAML}

// ParseFormat parses a format name. The empty string selects
// `FormatPretty`.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatPretty, nil
	}
	for _, format := range Formats {
		if string(format) == s {
			return format, nil
		}
	}
	return "", &UnknownFormatErr{Format: s}
}

type UnknownFormatErr struct {
	Format string
}

func (err *UnknownFormatErr) Error() string {
	return fmt.Sprintf("unknown report format: `%s`", err.Format)
}

// Write renders `report` to `w` in `format`.
func Write(w io.Writer, format Format, report *Report) error {
	switch format {
	case FormatPretty, "":
		return (&Pretty{}).Write(w, report)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("writing json report: %w", err)
		}
		return nil
	case FormatYAML:
		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshaling yaml report: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing yaml report: %w", err)
		}
		return nil
	default:
		return &UnknownFormatErr{Format: string(format)}
	}
}
