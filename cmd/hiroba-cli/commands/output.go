package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"hiroba-client/lib/scrapers/hiroba/core"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// render writes value as json or yaml, or as the table fill builds.
func render(out io.Writer, value any, fill func(t table.Writer)) error {
	switch format := viper.GetString("output"); format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(value)
	case "table", "":
		t := table.NewWriter()
		t.SetOutputMirror(out)
		fill(t)
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// difficultyRow is one cell per difficulty in level order, "-" where cell has no entry.
func difficultyRow(cell func(d core.Difficulty) (string, bool)) table.Row {
	row := table.Row{}
	for _, d := range core.Difficulties {
		text, ok := cell(d)
		if !ok {
			text = "-"
		}
		row = append(row, text)
	}
	return row
}

func difficultyHeader(leading ...any) table.Row {
	row := table.Row(leading)
	for _, d := range core.Difficulties {
		row = append(row, d)
	}
	return row
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
