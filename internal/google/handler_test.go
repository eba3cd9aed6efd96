package google

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taeu.kr/invoicedesk/internal/session"
)

func setupGoogleMux(t *testing.T) (*http.ServeMux, *fakeLibrary) {
	t.Helper()
	_, server := newFakeGoogle(t)
	client := NewClient(server.URL)
	lib := newFakeLibrary()
	mux := http.NewServeMux()
	NewHandler(client, lib, NewSheetsImporter(client, lib)).RegisterRoutes(mux)
	return mux, lib
}

func withTestSession(req *http.Request, accessToken string) *http.Request {
	sess := &session.Session{ID: "s1", AccessToken: accessToken, Email: "user@example.com", IssuedAt: time.Now(), TTL: time.Hour}
	return req.WithContext(session.WithSession(req.Context(), sess))
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RequiresSession(t *testing.T) {
	mux, _ := setupGoogleMux(t)

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/google/drive/files", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandler_UploadToDrive(t *testing.T) {
	mux, lib := setupGoogleMux(t)
	lib.files["excel-1"] = excelFile([]byte("workbook"))

	req := withTestSession(httptest.NewRequest(http.MethodPost, "/api/google/drive/files/excel-1", nil), testToken)
	rec := serve(mux, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body DriveFile
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "drive-1" {
		t.Fatalf("unexpected body %+v", body)
	}

	req = withTestSession(httptest.NewRequest(http.MethodPost, "/api/google/drive/files/missing", nil), testToken)
	if rec := serve(mux, req); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_UploadUnconvertible(t *testing.T) {
	mux, lib := setupGoogleMux(t)
	file := excelFile([]byte("%PDF"))
	file.Type = "pdf"
	lib.files[file.ID] = file

	req := withTestSession(httptest.NewRequest(http.MethodPost, "/api/google/drive/files/"+file.ID, nil), testToken)
	if rec := serve(mux, req); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestHandler_ExpiredGoogleToken(t *testing.T) {
	mux, _ := setupGoogleMux(t)

	req := withTestSession(httptest.NewRequest(http.MethodGet, "/api/google/drive/files", nil), "revoked")
	if rec := serve(mux, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandler_ImportSheet(t *testing.T) {
	mux, lib := setupGoogleMux(t)

	body, _ := json.Marshal(ImportRequest{SpreadsheetID: "sheet-1", FolderID: "f1"})
	req := withTestSession(httptest.NewRequest(http.MethodPost, "/api/google/sheets/import", bytes.NewReader(body)), testToken)
	rec := serve(mux, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(lib.files) != 1 {
		t.Fatalf("expected imported file, got %d", len(lib.files))
	}

	body, _ = json.Marshal(ImportRequest{SpreadsheetID: "forbidden", FolderID: "f1"})
	req = withTestSession(httptest.NewRequest(http.MethodPost, "/api/google/sheets/import", bytes.NewReader(body)), testToken)
	rec = serve(mux, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "The caller does not have permission") {
		t.Fatalf("expected google reason in body, got %s", rec.Body.String())
	}
}

func TestHandler_ListPageSizeValidation(t *testing.T) {
	mux, _ := setupGoogleMux(t)

	req := withTestSession(httptest.NewRequest(http.MethodGet, "/api/google/drive/files?pageSize=0", nil), testToken)
	if rec := serve(mux, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
