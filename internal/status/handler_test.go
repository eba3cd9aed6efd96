package status

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"taeu.kr/invoicedesk/internal/library"
	"taeu.kr/invoicedesk/internal/platform/database"
)

type statusTestFolders struct {
	folders []*library.Folder
	err     error
}

func (s *statusTestFolders) ListFolders(context.Context) ([]*library.Folder, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.folders, nil
}

type statusTestSessions int

func (s statusTestSessions) Count() int { return int(s) }

func openStatusTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func requestStatus(t *testing.T, h *Handler) StatusResponse {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHandleStatus_Healthy(t *testing.T) {
	folders := &statusTestFolders{folders: []*library.Folder{
		{ID: "f1", Name: "Clients"},
		{ID: library.TrashFolderID, Name: "ゴミ箱", IsTrash: true},
	}}
	h := NewHandler(openStatusTestDB(t), folders, statusTestSessions(2), Features{Extraction: true, Google: true}, "3000")

	resp := requestStatus(t, h)
	for _, name := range []string{"database", "library", "extraction", "google"} {
		if got := resp.Components[name].Status; got != "healthy" {
			t.Fatalf("%s: expected healthy, got %q", name, got)
		}
	}
	if resp.ActiveSessions != 2 {
		t.Fatalf("expected 2 sessions, got %d", resp.ActiveSessions)
	}
	if len(resp.Hosts) == 0 || resp.Hosts[0] != "localhost:3000" {
		t.Fatalf("unexpected hosts %v", resp.Hosts)
	}
}

func TestHandleStatus_Degraded(t *testing.T) {
	db := openStatusTestDB(t)
	h := NewHandler(db, &statusTestFolders{err: errors.New("boom")}, nil, Features{}, "3000")

	resp := requestStatus(t, h)
	if got := resp.Components["library"].Status; got != "unhealthy" {
		t.Fatalf("expected unhealthy library, got %q", got)
	}
	if got := resp.Components["extraction"].Status; got != "disabled" {
		t.Fatalf("expected disabled extraction, got %q", got)
	}
	if got := resp.Components["google"].Status; got != "disabled" {
		t.Fatalf("expected disabled google, got %q", got)
	}

	h = NewHandler(db, &statusTestFolders{folders: []*library.Folder{{ID: "f1", Name: "A"}}}, nil, Features{}, "3000")
	if got := requestStatus(t, h).Components["library"].Status; got != "degraded" {
		t.Fatalf("expected degraded library without trash, got %q", got)
	}
}

func TestHandleStatus_DatabaseClosed(t *testing.T) {
	db := openStatusTestDB(t)
	db.Close()
	h := NewHandler(db, &statusTestFolders{}, nil, Features{}, "3000")

	if got := requestStatus(t, h).Components["database"].Status; got != "unhealthy" {
		t.Fatalf("expected unhealthy database, got %q", got)
	}
}

func TestHandleStatus_UnmigratedDatabase(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	h := NewHandler(db, &statusTestFolders{}, nil, Features{}, "3000")

	if got := requestStatus(t, h).Components["database"].Status; got != "unhealthy" {
		t.Fatalf("expected unhealthy database without schema, got %q", got)
	}
}
