package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/frameview/internal/core"
	"github.com/JonMunkholm/frameview/internal/frame"
)

func render(t *testing.T, p ViewerParams) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Viewer(p).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestViewer_Selection(t *testing.T) {
	out := render(t, ViewerParams{
		SourceLabel:  "bundle.json",
		DatasetCount: 2,
		Datasets: []Link{
			{Label: "Sales", Href: "/?name=Sales", Selected: true},
			{Label: "DataFrame_2", Href: "/?name=DataFrame_2"},
		},
		HasSelection: true,
		Title:        "Sales",
		Shape:        "3 rows × 2 columns",
		Page: frame.Page{
			Columns:    []string{"region", "total"},
			Rows:       [][]string{{"EU", "10"}, {"US", "12"}, {"APAC", "3"}},
			Page:       1,
			TotalPages: 1,
		},
	})

	for _, want := range []string{
		"<title>Sales · frameview</title>",
		"Loaded 2 DataFrames",
		`class="selected" aria-current="true">Sales</a>`,
		"<h1>Sales</h1>",
		"3 rows × 2 columns",
		"<th>region</th>",
		"<td>APAC</td>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "pager") {
		t.Error("single page should not render a pager")
	}
}

func TestViewer_NoMatch(t *testing.T) {
	out := render(t, ViewerParams{Query: "inventory", Warning: core.NoMatchWarning})

	if !strings.Contains(out, "No matching DataFrames found.") {
		t.Error("warning not rendered")
	}
	if strings.Contains(out, "<table>") {
		t.Error("grid rendered without a selection")
	}
	if !strings.Contains(out, `value="inventory"`) {
		t.Error("query not kept in the search box")
	}
}

func TestViewer_LoadError(t *testing.T) {
	out := render(t, ViewerParams{
		SourceLabel: "broken.json",
		LoadError:   &core.UserMessage{Message: "The source does not hold a list of DataFrames", Code: "LOAD001"},
		Warning:     core.NoMatchWarning,
	})
	if !strings.Contains(out, "Code: LOAD001") {
		t.Error("load error code not rendered")
	}
	if strings.Contains(out, "Loaded 0 DataFrames") {
		t.Error("failed load should not claim success")
	}
}

func TestViewer_EscapesContent(t *testing.T) {
	out := render(t, ViewerParams{
		Datasets:     []Link{{Label: "<script>x</script>", Href: `/?name="><b>`}},
		HasSelection: true,
		Title:        "<script>x</script>",
		Page:         frame.Page{Columns: []string{"<c>"}, Rows: [][]string{{"a&b"}}, TotalPages: 1},
	})
	if strings.Contains(out, "<script>x</script>") || strings.Contains(out, `"><b>`) {
		t.Error("unescaped user content in output")
	}
	if !strings.Contains(out, "a&amp;b") {
		t.Error("cell not escaped")
	}
}

func TestViewer_Pager(t *testing.T) {
	out := render(t, ViewerParams{
		HasSelection: true,
		Title:        "Big",
		Page:         frame.Page{Columns: []string{"a"}, Page: 2, TotalPages: 3, FirstRow: 100},
		PrevHref:     "/?page=1",
		NextHref:     "/?page=3",
	})
	for _, want := range []string{"Page 2 of 3", `href="/?page=1"`, `href="/?page=3"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
