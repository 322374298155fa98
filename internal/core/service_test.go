package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/source"
)

const salesBundle = `[
	{"attrs": {"name": "Sales"}, "columns": ["region", "total"], "data": [["EU", 10], ["US", 12], ["APAC", 3]]},
	{"columns": ["a", "b", "c", "d", "e"], "data": [[1,2,3,4,5],[1,2,3,4,5],[1,2,3,4,5],[1,2,3,4,5],[1,2,3,4,5],[1,2,3,4,5],[1,2,3,4,5],[1,2,3,4,5],[1,2,3,4,5],[1,2,3,4,5]]}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestService_LoadPath(t *testing.T) {
	svc := NewService(Config{}, nil)
	path := writeFile(t, t.TempDir(), "bundle.json", salesBundle)

	sess := svc.LoadPath(context.Background(), path)
	if !sess.OK() {
		t.Fatalf("LoadPath() err = %v", sess.Err)
	}
	if got, want := sess.Catalog.Names(), []string{"Sales", "DataFrame_2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if sess.Label != "bundle.json" || sess.Kind != SourceFile {
		t.Errorf("session = %q/%q, want bundle.json/file", sess.Label, sess.Kind)
	}

	second := svc.LoadPath(context.Background(), path)
	if !second.Cached {
		t.Error("second LoadPath() of unchanged file was not cached")
	}
	if second.Catalog != sess.Catalog {
		t.Error("cached load returned a different catalog")
	}
	if second.ID == sess.ID {
		t.Error("each load should get its own session ID")
	}
}

func TestService_LoadPathChangedFileReloads(t *testing.T) {
	svc := NewService(Config{}, nil)
	dir := t.TempDir()
	path := writeFile(t, dir, "bundle.json", salesBundle)

	first := svc.LoadPath(context.Background(), path)

	writeFile(t, dir, "bundle.json", `[{"attrs":{"name":"Other"},"columns":["x"],"data":[[1]]}]`)
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	second := svc.LoadPath(context.Background(), path)
	if second.Cached || second.Catalog == first.Catalog {
		t.Error("changed file was served from the cache")
	}
	if got := second.Catalog.Names(); !reflect.DeepEqual(got, []string{"Other"}) {
		t.Errorf("Names() = %v, want [Other]", got)
	}
}

func TestService_LoadFailureYieldsEmptyCatalog(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   string
		wantCause error
		wantCode  string
	}{
		{"not a collection", "x.json", `{"columns": [], "data": []}`, catalog.ErrNotCollection, "LOAD001"},
		{"element without shape", "x.json", `[{"columns":["a"],"data":[[1]]}, 5]`, catalog.ErrNoShape, "LOAD002"},
		{"unsupported", "x.joblib", `binary`, source.ErrUnsupportedFormat, "FILE006"},
		{"empty", "x.csv", ``, source.ErrEmptyFile, "FILE005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(Config{}, nil)
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			sess := svc.LoadPath(context.Background(), path)
			if sess.OK() {
				t.Fatal("LoadPath() succeeded, want failure")
			}
			if !catalog.IsLoadError(sess.Err) || !errors.Is(sess.Err, tt.wantCause) {
				t.Errorf("Err = %v, want LoadError wrapping %v", sess.Err, tt.wantCause)
			}
			if sess.Catalog == nil || sess.Catalog.Len() != 0 {
				t.Error("failed load should carry the empty catalog")
			}
			if got := sess.Message().Code; got != tt.wantCode {
				t.Errorf("Message().Code = %q, want %q", got, tt.wantCode)
			}
			if svc.CachedCatalogs() != 0 {
				t.Error("failed load was cached")
			}
		})
	}
}

func TestService_LoadPathMissing(t *testing.T) {
	svc := NewService(Config{}, nil)
	sess := svc.LoadPath(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	if !catalog.IsLoadError(sess.Err) || !errors.Is(sess.Err, os.ErrNotExist) {
		t.Errorf("Err = %v, want LoadError wrapping ErrNotExist", sess.Err)
	}
}

func TestService_LoadUpload(t *testing.T) {
	svc := NewService(Config{MaxUploadSize: 1 << 20}, nil)
	ctx := context.Background()

	sess, err := svc.LoadUpload(ctx, "sales.json", strings.NewReader(salesBundle))
	if err != nil {
		t.Fatalf("LoadUpload() error = %v", err)
	}
	if !sess.OK() || sess.Catalog.Len() != 2 {
		t.Fatalf("LoadUpload() session = %+v", sess.Status())
	}

	again, err := svc.LoadUpload(ctx, "renamed.json", strings.NewReader(salesBundle))
	if err != nil {
		t.Fatalf("LoadUpload() error = %v", err)
	}
	if !again.Cached {
		t.Error("identical upload content was not cached")
	}
	if again.Label != "renamed.json" {
		t.Errorf("Label = %q, want renamed.json", again.Label)
	}
}

func TestService_LoadUploadRejected(t *testing.T) {
	svc := NewService(Config{MaxUploadSize: 16}, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
		content  string
		want     error
	}{
		{"too large", "big.json", strings.Repeat("x", 17), ErrFileTooLarge},
		{"no name", "", "[]", ErrNoFile},
		{"no content", "a.json", "", ErrNoFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := svc.LoadUpload(ctx, tt.filename, strings.NewReader(tt.content))
			if !errors.Is(err, tt.want) {
				t.Errorf("LoadUpload() error = %v, want %v", err, tt.want)
			}
			if sess != nil {
				t.Error("rejected upload produced a session")
			}
		})
	}
	if n := len(svc.Sessions()); n != 0 {
		t.Errorf("Sessions() = %d, want 0", n)
	}
}

func TestService_DatabaseNotConfigured(t *testing.T) {
	svc := NewService(Config{}, nil)
	ctx := context.Background()

	for _, sess := range []*Session{
		svc.LoadPostgres(ctx, nil, "public"),
		svc.LoadMySQL(ctx, nil, ""),
	} {
		if !errors.Is(sess.Err, ErrNotConfigured) {
			t.Errorf("%s: Err = %v, want ErrNotConfigured", sess.Kind, sess.Err)
		}
		if got := sess.Message().Code; got != "SRC003" {
			t.Errorf("%s: code = %q, want SRC003", sess.Kind, got)
		}
	}
}

func TestService_AutoLoad(t *testing.T) {
	svc := NewService(Config{}, nil)
	ctx := context.Background()

	if _, ok := svc.DefaultSession(); ok {
		t.Fatal("DefaultSession() before any load")
	}

	empty := t.TempDir()
	sess, err := svc.AutoLoad(ctx, empty)
	if err != nil || sess != nil {
		t.Fatalf("AutoLoad(empty) = %v, %v; want nil, nil", sess, err)
	}

	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "a,b\n1,2\n")
	writeFile(t, dir, "a.json", salesBundle)

	sess, err = svc.AutoLoad(ctx, dir)
	if err != nil {
		t.Fatalf("AutoLoad() error = %v", err)
	}
	if sess.Label != "a.json" {
		t.Errorf("AutoLoad() picked %q, want a.json", sess.Label)
	}

	def, ok := svc.DefaultSession()
	if !ok || def.ID != sess.ID {
		t.Error("DefaultSession() is not the auto-loaded session")
	}

	resolved, err := svc.Resolve("")
	if err != nil || resolved.ID != sess.ID {
		t.Errorf("Resolve(\"\") = %v, %v; want default session", resolved, err)
	}
}

func TestService_SessionLookup(t *testing.T) {
	svc := NewService(Config{MaxSessions: 2}, nil)
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "bundle.json", salesBundle)

	first := svc.LoadPath(ctx, path)
	second := svc.LoadPath(ctx, path)
	third := svc.LoadPath(ctx, path)

	if _, err := svc.Session(first.ID.String()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("evicted Session() error = %v, want ErrSessionNotFound", err)
	}
	for _, s := range []*Session{second, third} {
		if got, err := svc.Session(s.ID.String()); err != nil || got != s {
			t.Errorf("Session(%s) = %v, %v", s.ID, got, err)
		}
	}
	if _, err := svc.Session("not-a-uuid"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Session(bad id) error = %v, want ErrSessionNotFound", err)
	}

	list := svc.Sessions()
	if len(list) != 2 || list[0] != third {
		t.Error("Sessions() should list newest first")
	}
}

func TestService_ResolveWithoutSource(t *testing.T) {
	svc := NewService(Config{}, nil)
	sess, err := svc.Resolve("")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sess.Catalog.Len() != 0 || !sess.OK() {
		t.Error("placeholder session should be an empty, successful catalog")
	}
}

func TestService_Dataset(t *testing.T) {
	svc := NewService(Config{}, nil)
	ctx := context.Background()
	sess, _ := svc.LoadUpload(ctx, "sales.json", strings.NewReader(salesBundle))

	_, ds, err := svc.Dataset(sess.ID.String(), "Sales")
	if err != nil {
		t.Fatalf("Dataset() error = %v", err)
	}
	if ds.ShapeSummary() != "3 rows × 2 columns" {
		t.Errorf("ShapeSummary() = %q", ds.ShapeSummary())
	}
	if _, ok := FrameOf(ds); !ok {
		t.Error("FrameOf() = false for a decoded dataset")
	}

	if _, _, err := svc.Dataset(sess.ID.String(), "Inventory"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Dataset(missing) error = %v, want ErrNotFound", err)
	}
}

func TestService_Status(t *testing.T) {
	svc := NewService(Config{MaxConcurrent: 4}, nil)
	if got := svc.LimiterStatus(); got.MaxConcurrent != 4 || got.Active != 0 {
		t.Errorf("LimiterStatus() = %+v", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.WaitForLoads(ctx); err != nil {
		t.Errorf("WaitForLoads() error = %v", err)
	}
}

func TestSession_Status(t *testing.T) {
	svc := NewService(Config{}, nil)
	path := writeFile(t, t.TempDir(), "bad.json", `7`)
	sess := svc.LoadPath(context.Background(), path)

	st := sess.Status()
	if st.OK || st.Error == nil || st.Error.Code != "LOAD001" {
		t.Errorf("Status() = %+v, want LOAD001 error", st)
	}
	if st.Datasets != 0 || len(st.Names) != 0 {
		t.Errorf("Status() datasets = %d, names = %v", st.Datasets, st.Names)
	}
}

func TestService_PinnedSessionsSurviveEviction(t *testing.T) {
	svc := NewService(Config{MaxSessions: 2}, nil)
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "bundle.json", salesBundle)

	def := svc.LoadDefault(ctx, path)
	db := svc.LoadPostgres(ctx, nil, "public")
	if !def.Pinned || !db.Pinned {
		t.Fatalf("Pinned = %v, %v; want default and database sessions pinned", def.Pinned, db.Pinned)
	}

	var last *Session
	for i := 0; i < 5; i++ {
		var err error
		last, err = svc.LoadUpload(ctx, "b.json", strings.NewReader(salesBundle))
		if err != nil {
			t.Fatalf("LoadUpload() error = %v", err)
		}
	}

	got, ok := svc.DefaultSession()
	if !ok || got.ID != def.ID {
		t.Fatal("default session evicted by uploads")
	}
	if _, err := svc.Session(db.ID.String()); err != nil {
		t.Errorf("database session evicted: %v", err)
	}
	if _, err := svc.Session(last.ID.String()); err != nil {
		t.Errorf("newest upload missing: %v", err)
	}

	// Two upload slots plus the two pinned sessions.
	if n := len(svc.Sessions()); n != 4 {
		t.Errorf("len(Sessions()) = %d, want 4", n)
	}
}

func TestService_CachedLoadIgnoresCallerCancel(t *testing.T) {
	svc := NewService(Config{}, nil)
	path := writeFile(t, t.TempDir(), "bundle.json", salesBundle)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := svc.LoadPath(ctx, path)
	if !sess.OK() {
		t.Fatalf("LoadPath() err = %v, want shared load to finish", sess.Err)
	}
	if svc.CachedCatalogs() != 1 {
		t.Errorf("CachedCatalogs() = %d, want 1", svc.CachedCatalogs())
	}
}
