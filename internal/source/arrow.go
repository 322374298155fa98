package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/JonMunkholm/frameview/internal/frame"
)

func init() {
	Register(Format{
		Name:       "arrow",
		Label:      "Arrow IPC bundle",
		Extensions: []string{".arrows", ".arrow"},
		Decode:     decodeArrowBundle,
	})
}

// decodeArrowBundle reads one or more Arrow IPC streams written back to back.
// Each stream is one table; its schema metadata supplies the attributes.
func decodeArrowBundle(ctx context.Context, r io.Reader, _ Options) (any, error) {
	br := bufio.NewReader(r)
	mem := memory.NewGoAllocator()

	var frames []*frame.Frame
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := br.Peek(1); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("read arrow bundle: %w", err)
		}

		f, err := readArrowStream(br, mem)
		if err != nil {
			return nil, fmt.Errorf("stream %d: %w", len(frames), err)
		}
		frames = append(frames, f)
	}

	if len(frames) == 0 {
		return nil, ErrEmptyFile
	}
	return frames, nil
}

func readArrowStream(r io.Reader, mem memory.Allocator) (*frame.Frame, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("open ipc stream: %w", err)
	}
	defer rdr.Release()

	schema := rdr.Schema()
	var rows [][]any
	for rdr.Next() {
		rows = appendRecordRows(rows, rdr.Record())
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("read ipc stream: %w", err)
	}

	return frame.New(fieldNames(schema), rows, metadataAttrs(schema.Metadata()))
}

// frameFromTable materializes an Arrow table. The caller keeps ownership.
func frameFromTable(tbl arrow.Table, attrs map[string]string) (*frame.Frame, error) {
	tr := array.NewTableReader(tbl, tbl.NumRows())
	defer tr.Release()

	var rows [][]any
	for tr.Next() {
		rows = appendRecordRows(rows, tr.Record())
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("error reading table: %w", err)
	}

	merged := metadataAttrs(tbl.Schema().Metadata())
	for k, v := range attrs {
		merged[k] = v
	}
	return frame.New(fieldNames(tbl.Schema()), rows, merged)
}

func fieldNames(schema *arrow.Schema) []string {
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}
	return names
}

func metadataAttrs(md arrow.Metadata) map[string]string {
	attrs := make(map[string]string, md.Len())
	keys, values := md.Keys(), md.Values()
	for i := range keys {
		attrs[keys[i]] = values[i]
	}
	return attrs
}

func appendRecordRows(rows [][]any, rec arrow.Record) [][]any {
	n := int(rec.NumRows())
	cols := rec.Columns()
	for r := 0; r < n; r++ {
		row := make([]any, len(cols))
		for c, col := range cols {
			row[c] = arrowCell(col, r)
		}
		rows = append(rows, row)
	}
	return rows
}

// arrowCell extracts a Go value from an Arrow array, nil for nulls.
func arrowCell(col arrow.Array, pos int) any {
	if col.IsNull(pos) {
		return nil
	}

	switch a := col.(type) {
	case *array.String:
		return a.Value(pos)
	case *array.LargeString:
		return a.Value(pos)
	case *array.Binary:
		return string(a.Value(pos))
	case *array.Boolean:
		return a.Value(pos)
	case *array.Int8:
		return int64(a.Value(pos))
	case *array.Int16:
		return int64(a.Value(pos))
	case *array.Int32:
		return int64(a.Value(pos))
	case *array.Int64:
		return a.Value(pos)
	case *array.Uint8:
		return uint64(a.Value(pos))
	case *array.Uint16:
		return uint64(a.Value(pos))
	case *array.Uint32:
		return uint64(a.Value(pos))
	case *array.Uint64:
		return a.Value(pos)
	case *array.Float32:
		return float64(a.Value(pos))
	case *array.Float64:
		return a.Value(pos)
	case *array.Date32:
		return a.Value(pos).ToTime()
	case *array.Date64:
		return a.Value(pos).ToTime()
	case *array.Timestamp:
		return a.Value(pos).ToTime(a.DataType().(*arrow.TimestampType).Unit)
	default:
		return col.ValueStr(pos)
	}
}

// WriteArrowBundle encodes frames as concatenated Arrow IPC streams, the
// layout decodeArrowBundle reads. Column types are inferred from the cells.
func WriteArrowBundle(w io.Writer, frames []*frame.Frame) error {
	mem := memory.NewGoAllocator()
	for i, f := range frames {
		if err := writeArrowStream(w, f, mem); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

func writeArrowStream(w io.Writer, f *frame.Frame, mem memory.Allocator) error {
	rows, cols := f.Shape()
	names := f.ColumnNames()

	fields := make([]arrow.Field, cols)
	for c := 0; c < cols; c++ {
		fields[c] = arrow.Field{Name: names[c], Type: inferArrowType(f, c), Nullable: true}
	}

	attrs := f.Attrs()
	keys := make([]string, 0, len(attrs))
	values := make([]string, 0, len(attrs))
	for k, v := range attrs {
		keys = append(keys, k)
		values = append(values, v)
	}
	md := arrow.NewMetadata(keys, values)
	schema := arrow.NewSchema(fields, &md)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v, _ := f.Cell(r, c)
			appendArrowValue(b.Field(c), v)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if rows > 0 {
		if err := wr.Write(rec); err != nil {
			wr.Close()
			return fmt.Errorf("write record: %w", err)
		}
	}
	return wr.Close()
}

type cellKind int

const (
	kindNone cellKind = iota
	kindInt
	kindUint
	kindFloat
	kindBool
	kindDate
	kindTime
	kindString
)

func kindOf(v any) cellKind {
	switch x := v.(type) {
	case nil:
		return kindNone
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return kindInt
	case uint:
		return uintKind(uint64(x))
	case uint64:
		return uintKind(x)
	case float32, float64:
		return kindFloat
	case bool:
		return kindBool
	case time.Time:
		if isMidnightUTC(x) {
			return kindDate
		}
		return kindTime
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return kindInt
		}
		if _, err := x.Float64(); err == nil {
			return kindFloat
		}
		return kindString
	default:
		return kindString
	}
}

// uintKind keeps unsigned values that fit in an int64 with the signed ints.
func uintKind(v uint64) cellKind {
	if v <= math.MaxInt64 {
		return kindInt
	}
	return kindUint
}

func isMidnightUTC(t time.Time) bool {
	u := t.UTC()
	return u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0
}

func isNumeric(k cellKind) bool {
	return k == kindInt || k == kindUint || k == kindFloat
}

// inferArrowType widens mixed numbers to float and mixed dates to
// timestamps; any other mix falls back to string.
func inferArrowType(f *frame.Frame, col int) arrow.DataType {
	rows, _ := f.Shape()
	kind := kindNone
	for r := 0; r < rows; r++ {
		v, _ := f.Cell(r, col)
		k := kindOf(v)
		switch {
		case k == kindNone || k == kind:
		case kind == kindNone:
			kind = k
		case isNumeric(kind) && isNumeric(k):
			kind = kindFloat
		case (kind == kindDate && k == kindTime) || (kind == kindTime && k == kindDate):
			kind = kindTime
		default:
			kind = kindString
		}
	}

	switch kind {
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindUint:
		return arrow.PrimitiveTypes.Uint64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindDate:
		return arrow.FixedWidthTypes.Date32
	case kindTime:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

func appendArrowValue(b array.Builder, v any) {
	if v == nil {
		b.AppendNull()
		return
	}

	switch bb := b.(type) {
	case *array.Int64Builder:
		bb.Append(toInt64(v))
	case *array.Uint64Builder:
		bb.Append(v.(uint64))
	case *array.Float64Builder:
		bb.Append(toFloat64(v))
	case *array.BooleanBuilder:
		bb.Append(v.(bool))
	case *array.Date32Builder:
		bb.Append(arrow.Date32FromTime(v.(time.Time).UTC()))
	case *array.TimestampBuilder:
		ts, err := arrow.TimestampFromTime(v.(time.Time), arrow.Microsecond)
		if err != nil {
			bb.AppendNull()
			return
		}
		bb.Append(ts)
	case *array.StringBuilder:
		bb.Append(frame.FormatCell(v))
	default:
		b.AppendNull()
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return int64(x)
	case uint64:
		return int64(x)
	case json.Number:
		n, _ := x.Int64()
		return n
	}
	return 0
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case json.Number:
		f, _ := x.Float64()
		return f
	}
	return float64(toInt64(v))
}
