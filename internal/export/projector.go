// Package export flattens the storyboard into a row/column table and
// writes it out as an .xlsx workbook.
package export

import (
	"strconv"

	"github.com/unistory/storyboard-agent/internal/locale"
	"github.com/unistory/storyboard-agent/internal/storyboard"
)

// Exported screenshots render into a fixed box, in pixels.
const (
	ImageBoxWidth  = 200
	ImageBoxHeight = 150
)

// Table is the writer-agnostic projection of a storyboard: a header row
// followed by one row per frame, in frame-store order.
type Table struct {
	Headers []string
	Rows    []Row
}

// Row carries the three fixed leading columns plus one value per schema
// field, in schema order.
type Row struct {
	LensNumber string
	Timestamp  string
	Image      []byte
	Values     []string
}

// Project builds the export table. It is a pure transform with no failure
// modes: a frame missing a value for some schema key gets an empty cell.
func Project(frames []*storyboard.Frame, schema storyboard.Schema, labels locale.Labels) Table {
	headers := make([]string, 0, 3+len(schema))
	headers = append(headers, labels.LensNumber, labels.Time, labels.Screenshot)
	for _, def := range schema {
		headers = append(headers, def.Title)
	}

	rows := make([]Row, 0, len(frames))
	for _, frame := range frames {
		byKey := make(map[string]string, len(frame.Fields))
		for _, fv := range frame.Fields {
			byKey[fv.Key] = fv.Value
		}

		values := make([]string, len(schema))
		for i, def := range schema {
			values[i] = byKey[def.Key]
		}

		rows = append(rows, Row{
			LensNumber: strconv.Itoa(frame.LensNumber),
			Timestamp:  frame.Timestamp,
			Image:      frame.Image,
			Values:     values,
		})
	}

	return Table{Headers: headers, Rows: rows}
}
