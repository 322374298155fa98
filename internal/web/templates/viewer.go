package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/frameview/internal/core"
	"github.com/JonMunkholm/frameview/internal/frame"
)

// Link is a labelled href, optionally marked as the current item.
type Link struct {
	Label    string
	Href     string
	Selected bool
}

// ViewerParams is everything the viewer page renders.
type ViewerParams struct {
	SessionID    string
	Notice       string
	SourceLabel  string
	DatasetCount int
	LoadError    *core.UserMessage
	Sessions     []Link

	Query    string
	Datasets []Link
	Warning  string

	HasSelection bool
	Title        string
	Shape        string
	ExportHref   string
	Page         frame.Page
	PrevHref     string
	NextHref     string

	Accept      string
	MaxUploadMB int64
}

// Viewer renders the sidebar and the selected dataset's grid.
func Viewer(p ViewerParams) templ.Component {
	return Layout(pageTitle(p), templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.render(ctx, sidebar(p))
		h.raw(`<main>`)
		if p.Notice != "" {
			h.raw(`<p class="notice">`)
			h.text(p.Notice)
			h.raw(`</p>`)
		}
		if p.HasSelection {
			h.render(ctx, grid(p))
		} else if p.Warning != "" {
			h.raw(`<p class="warning">`)
			h.text(p.Warning)
			h.raw(`</p>`)
		}
		h.raw(`</main>`)
		return h.err
	}))
}

func pageTitle(p ViewerParams) string {
	if p.HasSelection {
		return p.Title + " · frameview"
	}
	return "frameview"
}

func sidebar(p ViewerParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<aside><h1>frameview</h1>`)

		h.raw(`<div class="status">`)
		h.text(p.SourceLabel)
		if p.LoadError != nil {
			h.raw(`</div>`)
			h.render(ctx, ErrorAlert(*p.LoadError))
		} else {
			h.raw(`<br>`)
			h.text(fmt.Sprintf("Loaded %d DataFrames", p.DatasetCount))
			h.raw(`</div>`)
		}

		if len(p.Sessions) > 1 {
			h.raw(`<h2>Sources</h2>`)
			linkList(h, p.Sessions)
		}

		h.raw(`<h2>Search</h2><form method="get" action="/">`)
		if p.SessionID != "" {
			h.raw(`<input type="hidden" name="session" value="`)
			h.text(p.SessionID)
			h.raw(`">`)
		}
		h.raw(`<input type="search" name="q" placeholder="Filter by name" value="`)
		h.text(p.Query)
		h.raw(`"></form>`)

		h.raw(`<h2>DataFrames</h2>`)
		linkList(h, p.Datasets)

		h.raw(`<h2>Load a bundle</h2>`)
		h.raw(`<form method="post" action="/upload" enctype="multipart/form-data">`)
		h.raw(`<input type="file" name="file" required accept="`)
		h.text(p.Accept)
		h.raw(`"><button type="submit">Load</button>`)
		if p.MaxUploadMB > 0 {
			h.raw(`<div><small>Up to `)
			h.text(strconv.FormatInt(p.MaxUploadMB, 10))
			h.raw(` MB</small></div>`)
		}
		h.raw(`</form></aside>`)
		return h.err
	})
}

func linkList(h *html, links []Link) {
	h.raw(`<ul>`)
	for _, l := range links {
		h.raw(`<li><a href="`)
		h.text(l.Href)
		h.raw(`"`)
		if l.Selected {
			h.raw(` class="selected" aria-current="true"`)
		}
		h.raw(`>`)
		h.text(l.Label)
		h.raw(`</a></li>`)
	}
	h.raw(`</ul>`)
}

func grid(p ViewerParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>`)
		h.text(p.Title)
		h.raw(`</h1><p>`)
		h.text(p.Shape)
		if p.ExportHref != "" {
			h.raw(` · <a href="`)
			h.text(p.ExportHref)
			h.raw(`">Export CSV</a>`)
		}
		h.raw(`</p>`)

		h.raw(`<table><thead><tr><th></th>`)
		for _, c := range p.Page.Columns {
			h.raw(`<th>`)
			h.text(c)
			h.raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)
		for i, row := range p.Page.Rows {
			h.raw(`<tr><td class="idx">`)
			h.raw(strconv.Itoa(p.Page.FirstRow + i))
			h.raw(`</td>`)
			for _, cell := range row {
				h.raw(`<td>`)
				h.text(cell)
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)

		if p.Page.TotalPages > 1 {
			h.raw(`<nav class="pager">`)
			if p.PrevHref != "" {
				h.raw(`<a href="`)
				h.text(p.PrevHref)
				h.raw(`">Previous</a>`)
			}
			h.raw(`<span>`)
			h.text(fmt.Sprintf("Page %d of %d", p.Page.Page, p.Page.TotalPages))
			h.raw(`</span>`)
			if p.NextHref != "" {
				h.raw(`<a href="`)
				h.text(p.NextHref)
				h.raw(`">Next</a>`)
			}
			h.raw(`</nav>`)
		}
		return h.err
	})
}
