package web

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/core"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		wantLevel string
		wantLog   string
		wantBody  string
	}{
		{
			name:      "known error logs warning",
			err:       fmt.Errorf("%w: %q", catalog.ErrNotFound, "invalid json"),
			status:    http.StatusNotFound,
			wantLevel: "level=WARN",
			wantLog:   "code=DS001",
			wantBody:  "No DataFrame with that name (DS001)",
		},
		{
			name:      "unmapped error logs error",
			err:       errors.New("template exploded"),
			status:    http.StatusInternalServerError,
			wantLevel: "level=ERROR",
			wantLog:   `error="template exploded"`,
			wantBody:  "An unexpected error occurred (ERR000)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			prev := slog.Default()
			slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
			defer slog.SetDefault(prev)

			rec := httptest.NewRecorder()
			respondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, tt.status)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if out := buf.String(); !strings.Contains(out, tt.wantLevel) || !strings.Contains(out, tt.wantLog) {
				t.Errorf("log = %q, want %s and %s", out, tt.wantLevel, tt.wantLog)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: %q", catalog.ErrNotFound, "x"), http.StatusNotFound},
		{core.ErrSessionNotFound, http.StatusNotFound},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{core.ErrTooManyLoads, http.StatusServiceUnavailable},
		{core.ErrNoFile, http.StatusBadRequest},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
