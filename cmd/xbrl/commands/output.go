package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

const defaultJSONIndent = "  "

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", defaultJSONIndent)

	return encoder.Encode(v)
}

func writeYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()

	return encoder.Encode(v)
}

// writeDocument prints a raw JSON document in the requested format. Table
// output falls back to indented JSON.
func writeDocument(w io.Writer, format string, raw []byte) error {
	if format == constants.FormatYAML {
		var doc interface{}

		err := json.Unmarshal(raw, &doc)
		if err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return writeYAML(w, doc)
	}

	var buf bytes.Buffer

	err := json.Indent(&buf, raw, "", defaultJSONIndent)
	if err != nil {
		_, err = fmt.Fprintln(w, string(raw))

		return err
	}

	_, err = fmt.Fprintln(w, buf.String())

	return err
}

// writeResult prints an assembled call result.
func writeResult(w io.Writer, format string, res *xbrl.Result) error {
	if format != outputTable || !res.IsPaginated() {
		raw, err := res.JSON()
		if err != nil {
			return err
		}

		return writeDocument(w, format, raw)
	}

	var records []map[string]interface{}

	err := res.DecodeRecords(&records)
	if err != nil {
		return err
	}

	columns := recordColumns(records)
	if len(columns) == 0 {
		_, err = fmt.Fprintln(w, "No records found")

		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header(toCells(columns)...)

	for _, record := range records {
		row := make([]interface{}, len(columns))
		for i, column := range columns {
			row[i] = cellValue(record[column])
		}

		_ = table.Append(row...)
	}

	err = table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, err = fmt.Fprintf(w, "%d records (limit %d)\n", res.Paging.Count, res.Paging.Limit)

	return err
}

// rawView is the json/yaml rendering of a raw response.
type rawView struct {
	StatusCode int                 `json:"status_code" yaml:"status_code"`
	Headers    map[string][]string `json:"headers"     yaml:"headers"`
	Body       interface{}         `json:"body"        yaml:"body"`
}

// writeRaw prints a raw response with its headers.
func writeRaw(w io.Writer, format string, resp *xbrl.RawResponse) error {
	if format == outputTable {
		table := tablewriter.NewWriter(w)
		table.Header("Header", "Value")
		_ = table.Append("Status", cast.ToString(resp.StatusCode))

		for _, key := range sortedHeaderKeys(resp.Header) {
			for _, value := range resp.Header.Values(key) {
				_ = table.Append(key, value)
			}
		}

		err := table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return writeDocument(w, constants.FormatJSON, resp.Body)
	}

	view := rawView{StatusCode: resp.StatusCode, Headers: resp.Header, Body: string(resp.Body)}

	var body interface{}
	if json.Unmarshal(resp.Body, &body) == nil {
		view.Body = body
	}

	if format == constants.FormatYAML {
		return writeYAML(w, view)
	}

	return writeJSON(w, view)
}

func sortedHeaderKeys(header http.Header) []string {
	keys := make([]string, 0, len(header))
	for key := range header {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// recordColumns is the sorted union of the record keys.
func recordColumns(records []map[string]interface{}) []string {
	seen := make(map[string]struct{})

	var columns []string

	for _, record := range records {
		for key := range record {
			if _, ok := seen[key]; ok {
				continue
			}

			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}

	sort.Strings(columns)

	return columns
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, value := range values {
		cells[i] = value
	}

	return cells
}

// cellValue renders scalars as text and anything else as compact JSON.
func cellValue(value interface{}) string {
	if value == nil {
		return ""
	}

	text, err := cast.ToStringE(value)
	if err == nil {
		return text
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}

	return string(raw)
}
