package command

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/momeni/sqlmig/pkg/core/model"
	"gopkg.in/yaml.v3"
)

// printValue writes v in the json or yaml output format. It returns
// false for the text output format, so the caller may print v itself.
func printValue(w io.Writer, v any) (bool, error) {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	case "text":
		return false, nil
	default:
		return true, fmt.Errorf("unsupported --output: %q", output)
	}
}

// printInfos writes the summaries as an aligned table.
func printInfos(w io.Writer, sums []model.InfoSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Category\tVersion\tDescription\tType\tInstalled On\tState")
	for _, s := range sums {
		on := ""
		if s.InstalledOn != nil {
			on = s.InstalledOn.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Category, s.Version, model.AbbreviateDescription(s.Description),
			s.Type, on, s.State,
		)
	}
	return tw.Flush()
}

func checksum(c *int32) string {
	if c == nil {
		return ""
	}
	return strconv.FormatInt(int64(*c), 10)
}
