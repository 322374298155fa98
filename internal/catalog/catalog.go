package catalog

import (
	"fmt"
	"reflect"
	"strings"
)

// NameAttr is the attribute key read for a table's display name.
const NameAttr = "name"

// Table is the minimal contract a loaded tabular value must satisfy.
type Table interface {
	Shape() (rows, cols int)
}

// Attributed is implemented by tables carrying an attribute map.
type Attributed interface {
	Attrs() map[string]string
}

// Dataset is one named table plus its shape.
type Dataset struct {
	name     string
	rows     int
	columns  int
	contents Table
}

// Name returns the display name.
func (d Dataset) Name() string { return d.name }

// Rows returns the row count captured at load time.
func (d Dataset) Rows() int { return d.rows }

// Columns returns the column count captured at load time.
func (d Dataset) Columns() int { return d.columns }

// Contents returns the table payload, unmodified.
func (d Dataset) Contents() Table { return d.contents }

// ShapeSummary renders the shape as "<rows> rows × <columns> columns".
func (d Dataset) ShapeSummary() string {
	return fmt.Sprintf("%d rows × %d columns", d.rows, d.columns)
}

// Catalog is an ordered, immutable sequence of datasets.
type Catalog struct {
	datasets []Dataset
}

// Empty returns a catalog with no datasets.
func Empty() *Catalog {
	return &Catalog{datasets: []Dataset{}}
}

// Construct builds a Catalog from a loader's raw value. raw must be a slice
// or array whose elements implement Table. Nothing is returned on failure.
func Construct(raw any) (*Catalog, error) {
	if raw == nil {
		return nil, &LoadError{Index: -1, Cause: ErrNotCollection}
	}
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, &LoadError{Index: -1, Cause: fmt.Errorf("%w: got %T", ErrNotCollection, raw)}
	}

	datasets := make([]Dataset, v.Len())
	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i)
		if (elem.Kind() == reflect.Interface || elem.Kind() == reflect.Pointer) && elem.IsNil() {
			return nil, &LoadError{Index: i, Cause: fmt.Errorf("%w: nil element", ErrNoShape)}
		}

		t, ok := elem.Interface().(Table)
		if !ok {
			return nil, &LoadError{Index: i, Cause: fmt.Errorf("%w: %T", ErrNoShape, elem.Interface())}
		}

		rows, cols := t.Shape()
		if rows < 0 || cols < 0 {
			return nil, &LoadError{Index: i, Cause: fmt.Errorf("%w: shape (%d, %d)", ErrNoShape, rows, cols)}
		}

		datasets[i] = Dataset{
			name:     resolveName(t, i),
			rows:     rows,
			columns:  cols,
			contents: t,
		}
	}

	return &Catalog{datasets: datasets}, nil
}

// DefaultName is the fallback display name for position i (0-based).
func DefaultName(i int) string {
	return fmt.Sprintf("DataFrame_%d", i+1)
}

func resolveName(t Table, i int) string {
	if a, ok := t.(Attributed); ok {
		if name := a.Attrs()[NameAttr]; name != "" {
			return name
		}
	}
	return DefaultName(i)
}

// Len returns the number of datasets.
func (c *Catalog) Len() int {
	return len(c.datasets)
}

// Datasets returns a copy of all datasets in catalog order.
func (c *Catalog) Datasets() []Dataset {
	out := make([]Dataset, len(c.datasets))
	copy(out, c.datasets)
	return out
}

// Names returns the display names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.datasets))
	for i, d := range c.datasets {
		names[i] = d.name
	}
	return names
}

// Filter returns the datasets whose name contains query, ignoring case.
// An empty query matches everything. The result is never nil.
func (c *Catalog) Filter(query string) []Dataset {
	q := strings.ToLower(query)
	out := make([]Dataset, 0, len(c.datasets))
	for _, d := range c.datasets {
		if strings.Contains(strings.ToLower(d.name), q) {
			out = append(out, d)
		}
	}
	return out
}

// Lookup returns the first dataset whose name equals name exactly.
func (c *Catalog) Lookup(name string) (Dataset, error) {
	for _, d := range c.datasets {
		if d.name == name {
			return d, nil
		}
	}
	return Dataset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}
