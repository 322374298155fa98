package core

import (
	"reflect"
	"testing"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/frame"
)

func mustFrame(t *testing.T, name string, rows, cols int) *frame.Frame {
	t.Helper()
	columns := make([]string, cols)
	for c := range columns {
		columns[c] = string(rune('a' + c))
	}
	data := make([][]any, rows)
	for r := range data {
		data[r] = make([]any, cols)
	}
	var attrs map[string]string
	if name != "" {
		attrs = map[string]string{catalog.NameAttr: name}
	}
	f, err := frame.New(columns, data, attrs)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func salesCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Construct([]*frame.Frame{
		mustFrame(t, "Sales", 3, 2),
		mustFrame(t, "", 10, 5),
		mustFrame(t, "sales_2023", 1, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

func TestBuildView(t *testing.T) {
	cat := salesCatalog(t)

	tests := []struct {
		name         string
		query        string
		selected     string
		wantNames    []string
		wantSelected string
		wantWarning  string
	}{
		{
			name:         "no query selects first",
			wantNames:    []string{"Sales", "DataFrame_2", "sales_2023"},
			wantSelected: "Sales",
		},
		{
			name:         "explicit selection",
			selected:     "DataFrame_2",
			wantNames:    []string{"Sales", "DataFrame_2", "sales_2023"},
			wantSelected: "DataFrame_2",
		},
		{
			name:         "case insensitive query",
			query:        "SALES",
			wantNames:    []string{"Sales", "sales_2023"},
			wantSelected: "Sales",
		},
		{
			name:         "query is trimmed",
			query:        "  2023 ",
			wantNames:    []string{"sales_2023"},
			wantSelected: "sales_2023",
		},
		{
			name:         "selection filtered out falls back",
			query:        "sales",
			selected:     "DataFrame_2",
			wantNames:    []string{"Sales", "sales_2023"},
			wantSelected: "Sales",
		},
		{
			name:         "stale selection falls back",
			selected:     "Gone",
			wantNames:    []string{"Sales", "DataFrame_2", "sales_2023"},
			wantSelected: "Sales",
		},
		{
			name:        "no match warns",
			query:       "inventory",
			wantNames:   []string{},
			wantWarning: NoMatchWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := BuildView(cat, tt.query, tt.selected)

			if got := v.Names(); !reflect.DeepEqual(got, tt.wantNames) {
				t.Errorf("Names() = %v, want %v", got, tt.wantNames)
			}
			if v.Warning != tt.wantWarning {
				t.Errorf("Warning = %q, want %q", v.Warning, tt.wantWarning)
			}
			if tt.wantSelected == "" {
				if v.HasSelection {
					t.Errorf("HasSelection = true, want false")
				}
				return
			}
			if !v.HasSelection || v.Selected.Name() != tt.wantSelected {
				t.Errorf("Selected = %q (%v), want %q", v.Selected.Name(), v.HasSelection, tt.wantSelected)
			}
		})
	}
}

func TestBuildView_EmptyCatalog(t *testing.T) {
	for _, cat := range []*catalog.Catalog{nil, catalog.Empty()} {
		v := BuildView(cat, "", "")
		if v.HasSelection {
			t.Error("HasSelection = true for empty catalog")
		}
		if v.Warning != NoMatchWarning {
			t.Errorf("Warning = %q, want %q", v.Warning, NoMatchWarning)
		}
	}
}

func TestBuildView_CollisionSelectsFirst(t *testing.T) {
	cat, err := catalog.Construct([]*frame.Frame{
		mustFrame(t, "DataFrame_2", 1, 1),
		mustFrame(t, "", 7, 3),
	})
	if err != nil {
		t.Fatal(err)
	}

	v := BuildView(cat, "", "DataFrame_2")
	if v.Selected.Rows() != 1 {
		t.Errorf("Selected.Rows() = %d, want 1 (first match)", v.Selected.Rows())
	}
}
