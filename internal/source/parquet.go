package source

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/JonMunkholm/frameview/internal/frame"
)

func init() {
	Register(Format{
		Name:       "parquet",
		Label:      "Parquet file",
		Extensions: []string{".parquet"},
		Decode:     decodeParquet,
	})
}

// decodeParquet reads a single Parquet file as one table. The file's
// key-value metadata surfaces as attributes, so a "name" key names it.
func decodeParquet(ctx context.Context, r io.Reader, _ Options) (any, error) {
	// Parquet needs random access to read the footer first.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	mem := memory.NewGoAllocator()
	pf, err := file.NewParquetReader(bytes.NewReader(data), file.WithReadProps(parquet.NewReaderProperties(mem)))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	tbl, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	defer tbl.Release()

	f, err := frameFromTable(tbl, nil)
	if err != nil {
		return nil, err
	}
	return []*frame.Frame{f}, nil
}
