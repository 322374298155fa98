package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/frameview/internal/core"
	"github.com/JonMunkholm/frameview/internal/frame"
)

// DatasetResponse is one dataset with a page of formatted rows.
type DatasetResponse struct {
	DatasetSummary
	Page *frame.Page `json:"page,omitempty"`
}

// UploadResponse is returned by the upload API.
type UploadResponse struct {
	Session string             `json:"session"`
	Status  core.SessionStatus `json:"status"`
}

// LoadStatusResponse reports load concurrency and cache use.
type LoadStatusResponse struct {
	core.LoadLimiterStatus
	CachedCatalogs int `json:"cached_catalogs"`
	Sessions       int `json:"sessions"`
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Resolve(r.URL.Query().Get("session"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	matches := sess.Catalog.Filter(r.URL.Query().Get("q"))
	out := make([]DatasetSummary, 0, len(matches))
	for _, ds := range matches {
		out = append(out, summarize(ds))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	_, ds, err := s.service.Dataset(r.URL.Query().Get("session"), datasetParam(r))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	resp := DatasetResponse{DatasetSummary: summarize(ds)}
	if f, ok := core.FrameOf(ds); ok {
		page := f.Page(parseIntParam(r, "page", 1), s.cfg.View.PageSize)
		resp.Page = &page
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.receiveUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	status := http.StatusCreated
	if !sess.OK() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, UploadResponse{Session: sess.ID.String(), Status: sess.Status()})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.service.Sessions()
	out := make([]core.SessionStatus, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Status())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, sess.Status())
}

func (s *Server) handleLoadStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LoadStatusResponse{
		LoadLimiterStatus: s.service.LimiterStatus(),
		CachedCatalogs:    s.service.CachedCatalogs(),
		Sessions:          len(s.service.Sessions()),
	})
}
