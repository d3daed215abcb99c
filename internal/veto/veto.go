// Package veto parses veto-definer documents (LIGO_LW XML tables) into
// data-quality flag dictionaries.
package veto

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/pkg/httputil"
)

// Row is one entry of a veto-definer table.
type Row struct {
	IFO      string
	Name     string
	Version  int
	Category int
	StartPad segments.Time
	EndPad   segments.Time
	Start    segments.Time
	End      segments.Time
	Comment  string
}

// FlagName builds the full "ifo:name:version" identifier for the row.
func (r Row) FlagName() string {
	return fmt.Sprintf("%s:%s:%d", r.IFO, r.Name, r.Version)
}

// ligolw mirrors the subset of the LIGO_LW container we need: tables with
// declared columns and a delimited text stream of rows.
type ligolw struct {
	Tables []struct {
		Name    string `xml:"Name,attr"`
		Columns []struct {
			Name string `xml:"Name,attr"`
		} `xml:"Column"`
		Stream struct {
			Delimiter string `xml:"Delimiter,attr"`
			Text      string `xml:",chardata"`
		} `xml:"Stream"`
	} `xml:"Table"`
}

// Parse reads a veto-definer document into its rows.
func Parse(r io.Reader) ([]Row, error) {
	var doc ligolw
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse veto definer XML: %w", err)
	}

	for _, table := range doc.Tables {
		if !strings.Contains(strings.ToLower(table.Name), "veto_definer") {
			continue
		}

		cols := make([]string, 0, len(table.Columns))
		for _, c := range table.Columns {
			// column names arrive qualified, e.g. "veto_definer:ifo"
			name := c.Name
			if i := strings.LastIndex(name, ":"); i >= 0 {
				name = name[i+1:]
			}
			cols = append(cols, name)
		}

		delim := table.Stream.Delimiter
		if delim == "" {
			delim = ","
		}
		return parseRows(table.Stream.Text, cols, delim)
	}

	return nil, fmt.Errorf("no veto_definer table in document")
}

// parseRows splits the delimited stream into rows of len(cols) cells.
func parseRows(stream string, cols []string, delim string) ([]Row, error) {
	cells := splitStream(stream, delim)
	if len(cols) == 0 {
		return nil, fmt.Errorf("veto_definer table declares no columns")
	}
	if len(cells)%len(cols) != 0 {
		return nil, fmt.Errorf("veto_definer stream has %d cells, not a multiple of %d columns",
			len(cells), len(cols))
	}

	var rows []Row
	for i := 0; i < len(cells); i += len(cols) {
		var row Row
		for j, col := range cols {
			if err := setField(&row, col, cells[i+j]); err != nil {
				return nil, err
			}
		}
		// an end time of zero means "until further notice"
		if row.End == 0 {
			row.End = segments.Infinity
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func setField(row *Row, col, value string) error {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, `"`)

	switch col {
	case "ifo":
		row.IFO = value
	case "name":
		row.Name = value
	case "comment":
		row.Comment = value
	case "version", "category":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("veto definer column %s: %w", col, err)
		}
		if col == "version" {
			row.Version = n
		} else {
			row.Category = n
		}
	case "start_pad", "end_pad", "start_time", "end_time":
		t, err := segments.ParseTime(value)
		if err != nil {
			return fmt.Errorf("veto definer column %s: %w", col, err)
		}
		switch col {
		case "start_pad":
			row.StartPad = t
		case "end_pad":
			row.EndPad = t
		case "start_time":
			row.Start = t
		case "end_time":
			row.End = t
		}
	}
	// unknown columns are ignored
	return nil
}

// splitStream cuts the stream text into cells, preserving empty cells so
// a blank field cannot shift later columns. Only the trailing row
// delimiter is discarded.
func splitStream(stream, delim string) []string {
	stream = strings.TrimSpace(stream)
	if stream == "" {
		return nil
	}
	stream = strings.TrimSuffix(stream, delim)

	cells := strings.Split(stream, delim)
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

// Load converts veto-definer rows into a flag dict. Rows naming the same
// flag merge their known spans; the first row wins for metadata.
func Load(r io.Reader) (flags.Dict, error) {
	rows, err := Parse(r)
	if err != nil {
		return nil, err
	}

	dict := make(flags.Dict)
	for _, row := range rows {
		name := row.FlagName()
		f, ok := dict[name]
		if !ok {
			f = flags.New(name, nil, nil)
			f.Category = row.Category
			f.Padding = flags.Padding{Pre: row.StartPad, Post: row.EndPad}
			f.Description = row.Comment
			dict[name] = f
		}
		f.Known = append(f.Known, segments.NewSegment(row.Start, row.End))
	}

	for _, f := range dict {
		f.Known.Coalesce()
	}
	return dict, nil
}

// LoadFile loads a veto-definer document from disk.
func LoadFile(path string) (flags.Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open veto definer: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Fetch downloads and loads a veto-definer document.
func Fetch(ctx context.Context, client *httputil.Client, url string) (flags.Dict, error) {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch veto definer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("failed to fetch veto definer: status %d", resp.StatusCode)
	}
	return Load(resp.Body)
}
