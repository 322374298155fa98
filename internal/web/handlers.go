package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/frameview/internal/core"
	"github.com/JonMunkholm/frameview/internal/logging"
	"github.com/JonMunkholm/frameview/internal/source"
	"github.com/JonMunkholm/frameview/internal/web/templates"
)

// handleViewer renders the sidebar and the selected dataset.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session")

	var notice string
	sess, err := s.service.Resolve(sessionID)
	if errors.Is(err, core.ErrSessionNotFound) {
		logging.FromContext(r.Context()).Info("stale session, showing default", "session", sessionID)
		notice = core.StaleSessionWarning
		sessionID = ""
		sess, err = s.service.Resolve("")
	}
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	view := core.BuildView(sess.Catalog, q.Get("q"), q.Get("name"))

	p := templates.ViewerParams{
		SessionID:    sessionID,
		Notice:       notice,
		SourceLabel:  sess.Label,
		DatasetCount: sess.Catalog.Len(),
		Query:        view.Query,
		Warning:      view.Warning,
		Accept:       strings.Join(source.Extensions(), ","),
		MaxUploadMB:  s.cfg.Upload.MaxFileSize >> 20,
	}
	if !sess.OK() {
		msg := sess.Message()
		p.LoadError = &msg
	}

	for _, other := range s.service.Sessions() {
		id := other.ID.String()
		p.Sessions = append(p.Sessions, templates.Link{
			Label:    other.Label,
			Href:     viewerHref(id, "", "", 0),
			Selected: id == sessionID || (sessionID == "" && other.ID == sess.ID),
		})
	}

	for _, ds := range view.Filtered {
		p.Datasets = append(p.Datasets, templates.Link{
			Label:    ds.Name(),
			Href:     viewerHref(sessionID, view.Query, ds.Name(), 0),
			Selected: view.HasSelection && ds.Name() == view.Selected.Name(),
		})
	}

	if view.HasSelection {
		sel := view.Selected
		p.HasSelection = true
		p.Title = sel.Name()
		p.Shape = sel.ShapeSummary()

		if f, ok := core.FrameOf(sel); ok {
			p.ExportHref = exportHref(sessionID, sel.Name())
			p.Page = f.Page(parseIntParam(r, "page", 1), s.cfg.View.PageSize)
			if p.Page.Page > 1 {
				p.PrevHref = viewerHref(sessionID, view.Query, sel.Name(), p.Page.Page-1)
			}
			if p.Page.Page < p.Page.TotalPages {
				p.NextHref = viewerHref(sessionID, view.Query, sel.Name(), p.Page.Page+1)
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Viewer(p).Render(r.Context(), w); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
	}
}

// handleUploadForm loads a bundle posted from the sidebar form and
// redirects to its session.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	sess, err := s.receiveUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	http.Redirect(w, r, viewerHref(sess.ID.String(), "", "", 0), http.StatusSeeOther)
}

// receiveUpload reads the multipart "file" field and loads it.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (*core.Session, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, core.ErrFileTooLarge
		}
		return nil, core.ErrNoFile
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, core.ErrNoFile
	}
	defer file.Close()

	ctx := withRequestMetadata(r.Context(), r)
	return s.service.LoadUpload(ctx, header.Filename, file)
}
