package segio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dqtools/segments/internal/segments"
)

// writeSegwizard renders a list in the classic four-column segwizard text
// format: index, start, end, duration.
func writeSegwizard(w io.Writer, l segments.List) error {
	bw := bufio.NewWriter(w)
	for i, s := range l {
		_, err := fmt.Fprintf(bw, "%d\t%s\t%s\t%s\n", i, s.Start(), s.End(), s.Length())
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// readSegwizard parses segwizard text. Two-column (start end) and
// four-column (index start end duration) layouts are both accepted;
// blank lines and '#' comments are skipped.
func readSegwizard(r io.Reader) (segments.List, error) {
	var l segments.List

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		var startField, endField string
		switch len(fields) {
		case 2:
			startField, endField = fields[0], fields[1]
		case 4:
			startField, endField = fields[1], fields[2]
		default:
			return nil, fmt.Errorf("segwizard line %d: expected 2 or 4 columns, got %d",
				lineno, len(fields))
		}

		start, err := segments.ParseTime(startField)
		if err != nil {
			return nil, fmt.Errorf("segwizard line %d: %w", lineno, err)
		}
		end, err := segments.ParseTime(endField)
		if err != nil {
			return nil, fmt.Errorf("segwizard line %d: %w", lineno, err)
		}

		l = append(l, segments.NewSegment(start, end))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("segwizard read failed: %w", err)
	}
	return l, nil
}
