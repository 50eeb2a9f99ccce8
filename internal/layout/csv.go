package layout

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseCSV reads a layout with a header row. "source" is required; x, y,
// width and height are optional and may appear in any order.
func ParseCSV(r io.Reader) (*Layout, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv layout: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("csv layout has no header")
	}
	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["source"]; !ok {
		return nil, fmt.Errorf("csv layout header lacks a source column")
	}

	get := func(row []string, name string) string {
		if idx, ok := cols[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}
	num := func(row []string, name string, line int) (int, error) {
		s := get(row, name)
		if s == "" || s == "-" {
			return 0, nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("line %d: %s: %w", line, name, err)
		}
		return v, nil
	}

	l := &Layout{}
	for i, row := range rows[1:] {
		line := i + 2
		src := get(row, "source")
		if src == "" {
			continue
		}
		e := Entry{Source: src}
		for name, dst := range map[string]*int{"x": &e.X, "y": &e.Y, "width": &e.Width, "height": &e.Height} {
			v, err := num(row, name, line)
			if err != nil {
				return nil, err
			}
			*dst = v
		}
		l.Images = append(l.Images, e)
	}
	if len(l.Images) == 0 {
		return nil, ErrEmptyLayout
	}
	return l, nil
}
