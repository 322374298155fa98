package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/JonMunkholm/frameview/internal/frame"
)

func init() {
	Register(Format{
		Name:       "json",
		Label:      "JSON bundle",
		Extensions: []string{".json"},
		Decode:     decodeJSONBundle,
	})
}

// jsonFrame is one element of a JSON bundle, in the "split" layout:
//
//	{"attrs": {"name": "Sales"}, "columns": ["region", "total"], "data": [["EU", 10]]}
type jsonFrame struct {
	Attrs   map[string]string `json:"attrs"`
	Columns []string          `json:"columns"`
	Data    [][]any           `json:"data"`
}

// decodeJSONBundle decodes a JSON array of frames. A top-level value that is
// not an array, or an element that is not a frame object, is passed through
// untouched so the catalog can reject it with the right cause.
func decodeJSONBundle(ctx context.Context, r io.Reader, _ Options) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var top any
	if err := dec.Decode(&top); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	elems, ok := top.([]any)
	if !ok {
		return top, nil
	}

	out := make([]any, len(elems))
	for i, elem := range elems {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		obj, ok := elem.(map[string]any)
		if !ok || !isFrameObject(obj) {
			out[i] = elem
			continue
		}

		f, err := frameFromJSON(obj)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = f
	}

	return out, nil
}

// isFrameObject reports whether obj has the keys that give it a shape.
func isFrameObject(obj map[string]any) bool {
	_, hasCols := obj["columns"]
	_, hasData := obj["data"]
	return hasCols && hasData
}

// frameFromJSON converts a generic frame object. Cells keep their decoded
// form (json.Number, string, bool, nil, nested values).
func frameFromJSON(obj map[string]any) (*frame.Frame, error) {
	rawCols, ok := obj["columns"].([]any)
	if !ok {
		return nil, fmt.Errorf("invalid frame object: columns is %T", obj["columns"])
	}
	columns := make([]string, len(rawCols))
	for i, c := range rawCols {
		columns[i] = fmt.Sprint(c)
	}

	rawData, ok := obj["data"].([]any)
	if !ok && obj["data"] != nil {
		return nil, fmt.Errorf("invalid frame object: data is %T", obj["data"])
	}
	rows := make([][]any, len(rawData))
	for i, r := range rawData {
		row, ok := r.([]any)
		if !ok {
			return nil, fmt.Errorf("invalid frame object: row %d is %T", i, r)
		}
		rows[i] = row
	}

	var attrs map[string]string
	if rawAttrs, ok := obj["attrs"].(map[string]any); ok {
		attrs = make(map[string]string, len(rawAttrs))
		for k, v := range rawAttrs {
			if v != nil {
				attrs[k] = fmt.Sprint(v)
			}
		}
	}

	return frame.New(columns, rows, attrs)
}

// EncodeJSONBundle writes frames in the JSON bundle layout.
func EncodeJSONBundle(w io.Writer, frames []*frame.Frame) error {
	out := make([]jsonFrame, len(frames))
	for i, f := range frames {
		rows, cols := f.Shape()
		data := make([][]any, rows)
		for r := 0; r < rows; r++ {
			row := make([]any, cols)
			for c := 0; c < cols; c++ {
				row[c], _ = f.Cell(r, c)
			}
			data[r] = row
		}
		out[i] = jsonFrame{Attrs: f.Attrs(), Columns: f.ColumnNames(), Data: data}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
