package web

// Shared helpers for the page and API handlers.

import (
	"encoding/csv"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/core"
)

var errNotExportable = errors.New("dataset not exportable")

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// datasetParam returns the decoded {name} path segment. chi routes on
// RawPath when it is set, and only then is the segment still escaped.
func datasetParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return raw
	}
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// viewerHref builds a viewer link. Empty values are omitted.
func viewerHref(session, query, name string, page int) string {
	v := url.Values{}
	if session != "" {
		v.Set("session", session)
	}
	if query != "" {
		v.Set("q", query)
	}
	if name != "" {
		v.Set("name", name)
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return "/"
	}
	return "/?" + v.Encode()
}

// exportHref builds the CSV export link for a dataset.
func exportHref(session, name string) string {
	href := "/datasets/" + url.PathEscape(name) + "/export"
	if session != "" {
		href += "?session=" + url.QueryEscape(session)
	}
	return href
}

// DatasetSummary is the API listing entry for one dataset.
type DatasetSummary struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Shape   string `json:"shape"`
}

func summarize(ds catalog.Dataset) DatasetSummary {
	return DatasetSummary{
		Name:    ds.Name(),
		Rows:    ds.Rows(),
		Columns: ds.Columns(),
		Shape:   ds.ShapeSummary(),
	}
}

// exportFilename turns a dataset name into a safe attachment filename.
func exportFilename(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	if clean == "" {
		clean = "dataset"
	}
	return clean + ".csv"
}

// handleExportDataset streams a dataset as CSV.
func (s *Server) handleExportDataset(w http.ResponseWriter, r *http.Request) {
	_, ds, err := s.service.Dataset(r.URL.Query().Get("session"), datasetParam(r))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	f, ok := core.FrameOf(ds)
	if !ok {
		respondError(w, r, errNotExportable, http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(ds.Name())+`"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(f.ColumnNames()); err != nil {
		return
	}
	rows, _ := f.Shape()
	for i := 0; i < rows; i++ {
		row, err := f.TextRow(i)
		if err != nil {
			break
		}
		if err := cw.Write(row); err != nil {
			return
		}
	}
	cw.Flush()
}
