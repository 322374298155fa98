// Package templates holds the viewer's HTML components.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/frameview/internal/core"
)

// html accumulates output and remembers the first write error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes s escaped for element content and attribute values.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

const styles = `
body{margin:0;font-family:system-ui,sans-serif;display:flex;min-height:100vh;color:#1f2937}
aside{width:18rem;background:#f3f4f6;padding:1rem;box-sizing:border-box}
main{flex:1;padding:1rem 1.5rem;overflow-x:auto}
aside h2{font-size:.8rem;text-transform:uppercase;color:#6b7280;margin:1.2rem 0 .4rem}
aside ul{list-style:none;padding:0;margin:0}
aside li a{display:block;padding:.25rem .5rem;border-radius:.25rem;color:inherit;text-decoration:none}
aside li a.selected{background:#2563eb;color:#fff}
table{border-collapse:collapse;font-size:.85rem}
th,td{border:1px solid #e5e7eb;padding:.25rem .5rem;text-align:left;white-space:nowrap}
th{background:#f9fafb;position:sticky;top:0}
td.idx{color:#9ca3af}
.status{font-size:.85rem}
.alert{background:#fef2f2;border:1px solid #fecaca;color:#991b1b;padding:.5rem;border-radius:.25rem;font-size:.85rem}
.warning{color:#92400e}
.notice{background:#fef3c7;padding:.4rem .6rem}
.pager a,.pager span{margin-right:.75rem}
`

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title><style>`)
		h.raw(styles)
		h.raw(`</style></head><body>`)
		h.render(ctx, body)
		h.raw(`</body></html>`)
		return h.err
	})
}

// ErrorAlert renders a user message with its support code.
func ErrorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(msg.Message)
		h.raw(`</strong>`)
		if msg.Action != "" {
			h.raw(`<div>`)
			h.text(msg.Action)
			h.raw(`</div>`)
		}
		h.raw(`<small>Code: `)
		h.text(msg.Code)
		h.raw(`</small></div>`)
		return h.err
	})
}
