package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-query-cache/querycache"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func writeRows(w io.Writer, format string, columns []string, rows []querycache.Row) error {
	normalized := make([]map[string]any, len(rows))
	for i, row := range rows {
		out := make(map[string]any, len(row))
		for k, v := range row {
			out[k] = normalize(v)
		}
		normalized[i] = out
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(normalized)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(normalized)
	case formatTable, "":
		return writeTable(w, header(columns, rows), normalized)
	default:
		return fmt.Errorf("unknown format %q: expected table, json or yaml", format)
	}
}

func writeTable(w io.Writer, header []string, rows []map[string]any) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, row := range rows {
		line := make([]string, len(header))
		for i, column := range header {
			line[i] = formatValue(row[column])
		}
		table.Append(line)
	}
	table.Render()
	return nil
}

// header uses the selected columns when they are plain names, and the sorted
// union of row keys otherwise.
func header(columns []string, rows []querycache.Row) []string {
	if len(columns) > 0 && !slices.ContainsFunc(columns, func(c string) bool {
		return c == "*" || strings.ContainsAny(c, ". (")
	}) {
		return columns
	}

	seen := map[string]struct{}{}
	var keys []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return keys
}

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case decimal.Decimal:
		return x.String()
	default:
		return x
	}
}

func formatValue(v any) string {
	switch x := normalize(v).(type) {
	case nil:
		return "NULL"
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatBindings(bindings []any) string {
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		if s, ok := b.(string); ok {
			parts[i] = fmt.Sprintf("%q", s)
			continue
		}
		parts[i] = formatValue(b)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
