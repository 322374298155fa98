package core

import (
	"strings"

	"github.com/JonMunkholm/frameview/internal/catalog"
)

// NoMatchWarning is shown when a search leaves no datasets to choose from.
const NoMatchWarning = "No matching DataFrames found."

// StaleSessionWarning is shown when a link names a session that is gone.
const StaleSessionWarning = "That viewing session has expired. Showing the default source."

// View is what the viewer shows for one request: the filtered list and at
// most one selected dataset.
type View struct {
	Query        string
	Filtered     []catalog.Dataset
	Selected     catalog.Dataset
	HasSelection bool
	Warning      string
}

// BuildView filters cat by query and resolves the selection. A selected name
// that is not in the filtered list, whether stale or filtered out, falls back
// to the first filtered dataset. An empty filter result has no selection and
// carries NoMatchWarning; it is not an error.
func BuildView(cat *catalog.Catalog, query, selected string) View {
	if cat == nil {
		cat = catalog.Empty()
	}

	v := View{Query: strings.TrimSpace(query)}
	v.Filtered = cat.Filter(v.Query)

	if len(v.Filtered) == 0 {
		v.Warning = NoMatchWarning
		return v
	}

	if selected != "" && containsName(v.Filtered, selected) {
		if ds, err := cat.Lookup(selected); err == nil {
			v.Selected, v.HasSelection = ds, true
			return v
		}
	}

	v.Selected, v.HasSelection = v.Filtered[0], true
	return v
}

func containsName(ds []catalog.Dataset, name string) bool {
	for _, d := range ds {
		if d.Name() == name {
			return true
		}
	}
	return false
}

// Names returns the names of the filtered datasets.
func (v View) Names() []string {
	names := make([]string, len(v.Filtered))
	for i, d := range v.Filtered {
		names[i] = d.Name()
	}
	return names
}
