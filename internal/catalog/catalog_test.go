package catalog

import (
	"errors"
	"reflect"
	"testing"
)

type stubTable struct {
	rows, cols int
	attrs      map[string]string
}

func (s stubTable) Shape() (int, int)        { return s.rows, s.cols }
func (s stubTable) Attrs() map[string]string { return s.attrs }

type bareTable struct{ rows, cols int }

func (b *bareTable) Shape() (int, int) { return b.rows, b.cols }

func named(name string, rows, cols int) stubTable {
	return stubTable{rows: rows, cols: cols, attrs: map[string]string{NameAttr: name}}
}

func names(ds []Dataset) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name()
	}
	return out
}

func TestConstruct_SalesScenario(t *testing.T) {
	raw := []Table{
		named("Sales", 3, 2),
		stubTable{rows: 10, cols: 5},
	}

	cat, err := Construct(raw)
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}

	if got, want := cat.Names(), []string{"Sales", "DataFrame_2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if got := names(cat.Filter("sal")); !reflect.DeepEqual(got, []string{"Sales"}) {
		t.Errorf("Filter(sal) = %v, want [Sales]", got)
	}
	if got := cat.Filter("x"); len(got) != 0 || got == nil {
		t.Errorf("Filter(x) = %#v, want empty non-nil slice", got)
	}

	d, err := cat.Lookup("DataFrame_2")
	if err != nil {
		t.Fatalf("Lookup(DataFrame_2) error = %v", err)
	}
	if d.Rows() != 10 || d.Columns() != 5 {
		t.Errorf("Lookup(DataFrame_2) shape = (%d, %d), want (10, 5)", d.Rows(), d.Columns())
	}
	if got, want := d.ShapeSummary(), "10 rows × 5 columns"; got != want {
		t.Errorf("ShapeSummary() = %q, want %q", got, want)
	}
}

func TestConstruct_PreservesLengthAndOrder(t *testing.T) {
	raw := []*bareTable{{1, 1}, {2, 2}, {3, 3}, {0, 0}}

	cat, err := Construct(raw)
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}
	if cat.Len() != len(raw) {
		t.Fatalf("Len() = %d, want %d", cat.Len(), len(raw))
	}
	for i, d := range cat.Datasets() {
		if d.Contents() != raw[i] {
			t.Errorf("dataset %d contents not the original element", i)
		}
		if d.Rows() != raw[i].rows {
			t.Errorf("dataset %d Rows() = %d, want %d", i, d.Rows(), raw[i].rows)
		}
	}
}

func TestConstruct_DefaultNames(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{
			name: "two unnamed tables are distinct",
			raw:  []Table{stubTable{}, stubTable{}},
			want: []string{"DataFrame_1", "DataFrame_2"},
		},
		{
			name: "empty name attribute falls back",
			raw:  []Table{named("", 1, 1), named("Orders", 1, 1)},
			want: []string{"DataFrame_1", "Orders"},
		},
		{
			name: "tables without attributes",
			raw:  []*bareTable{{1, 1}},
			want: []string{"DataFrame_1"},
		},
		{
			name: "array input",
			raw:  [2]stubTable{named("a", 1, 1), {}},
			want: []string{"a", "DataFrame_2"},
		},
		{
			name: "any slice of tables",
			raw:  []any{&bareTable{1, 1}, named("b", 2, 2)},
			want: []string{"DataFrame_1", "b"},
		},
		{
			name: "empty collection",
			raw:  []Table{},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := Construct(tt.raw)
			if err != nil {
				t.Fatalf("Construct() error = %v", err)
			}
			if got := cat.Names(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Names() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstruct_StableAcrossRepeats(t *testing.T) {
	raw := []Table{stubTable{}, named("x", 1, 1), stubTable{}}

	first, err := Construct(raw)
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}
	second, err := Construct(raw)
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}
	if !reflect.DeepEqual(first.Names(), second.Names()) {
		t.Errorf("names changed between loads: %v vs %v", first.Names(), second.Names())
	}
}

func TestConstruct_Errors(t *testing.T) {
	tests := []struct {
		name      string
		raw       any
		wantCause error
		wantIndex int
	}{
		{"nil", nil, ErrNotCollection, -1},
		{"scalar", 42, ErrNotCollection, -1},
		{"string", "not a table list", ErrNotCollection, -1},
		{"map", map[string]Table{"a": stubTable{}}, ErrNotCollection, -1},
		{"element without shape", []any{stubTable{}, "oops"}, ErrNoShape, 1},
		{"nil element", []Table{stubTable{}, nil}, ErrNoShape, 1},
		{"nil pointer element", []*bareTable{nil}, ErrNoShape, 0},
		{"negative shape", []Table{stubTable{rows: -1, cols: 2}}, ErrNoShape, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := Construct(tt.raw)
			if err == nil {
				t.Fatal("Construct() expected error")
			}
			if cat != nil {
				t.Error("Construct() returned a partial catalog")
			}

			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("error %v is not a *LoadError", err)
			}
			if !errors.Is(err, tt.wantCause) {
				t.Errorf("error %v does not wrap %v", err, tt.wantCause)
			}
			if le.Index != tt.wantIndex {
				t.Errorf("LoadError.Index = %d, want %d", le.Index, tt.wantIndex)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	cat, err := Construct([]Table{
		named("Sales 2023", 1, 1),
		named("salaries", 1, 1),
		named("Inventory", 1, 1),
		stubTable{},
	})
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Sales 2023", "salaries", "Inventory", "DataFrame_4"}},
		{"sal", []string{"Sales 2023", "salaries"}},
		{"SAL", []string{"Sales 2023", "salaries"}},
		{"dataframe", []string{"DataFrame_4"}},
		{"2023", []string{"Sales 2023"}},
		{"zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := names(cat.Filter(tt.query))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestFilter_Idempotent(t *testing.T) {
	cat, err := Construct([]Table{named("Alpha", 1, 1), named("beta", 1, 1), named("ALPHABET", 1, 1)})
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}

	for _, q := range []string{"", "alpha", "BET", "none"} {
		once := cat.Filter(q)
		again, err := Construct(tablesOf(once))
		if err != nil {
			t.Fatalf("Construct() error = %v", err)
		}
		if got, want := names(again.Filter(q)), names(once); !reflect.DeepEqual(got, want) {
			t.Errorf("Filter(%q) twice = %v, want %v", q, got, want)
		}
	}
}

func tablesOf(ds []Dataset) []Table {
	out := make([]Table, len(ds))
	for i, d := range ds {
		out[i] = d.Contents()
	}
	return out
}

func TestFilter_CaseInsensitiveEquivalence(t *testing.T) {
	cat, err := Construct([]Table{named("abc", 1, 1), named("xABCx", 1, 1), named("ab", 1, 1)})
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}
	if got, want := names(cat.Filter("ABC")), names(cat.Filter("abc")); !reflect.DeepEqual(got, want) {
		t.Errorf("Filter(ABC) = %v, Filter(abc) = %v", got, want)
	}
}

func TestLookup(t *testing.T) {
	cat, err := Construct([]Table{
		named("DataFrame_2", 1, 1),
		stubTable{rows: 7, cols: 7},
		named("Sales", 2, 2),
	})
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}

	// The explicit name shadows the later default at position 2.
	d, err := cat.Lookup("DataFrame_2")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if d.Rows() != 1 {
		t.Errorf("Lookup(DataFrame_2) returned rows=%d, want first match (1)", d.Rows())
	}

	if _, err := cat.Lookup("sales"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(sales) error = %v, want ErrNotFound", err)
	}
	if _, err := cat.Lookup("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEmpty(t *testing.T) {
	cat := Empty()
	if cat.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cat.Len())
	}
	if got := cat.Filter(""); len(got) != 0 {
		t.Errorf("Filter() = %v, want empty", got)
	}
	if _, err := cat.Lookup("DataFrame_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup() error = %v, want ErrNotFound", err)
	}
}

func TestLoadError_Wrapping(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := NewLoadError(cause)
	if !errors.Is(err, cause) {
		t.Error("NewLoadError does not wrap its cause")
	}
	if !IsLoadError(err) {
		t.Error("IsLoadError() = false, want true")
	}
	if IsLoadError(cause) {
		t.Error("IsLoadError(plain) = true, want false")
	}
}
