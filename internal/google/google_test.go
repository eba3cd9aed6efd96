package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"
	"taeu.kr/invoicedesk/internal/library"
)

const testToken = "test-access-token"

type uploadedPart struct {
	Metadata map[string]string
	Content  []byte
}

type fakeGoogle struct {
	mu       sync.Mutex
	uploads  []uploadedPart
	queries  []string
	authErrs int
	title    string
	values   [][]any
}

func newFakeGoogle(t *testing.T) (*fakeGoogle, *httptest.Server) {
	t.Helper()
	fg := &fakeGoogle{
		title:  "Sales",
		values: [][]any{{"Item", "Amount"}, {"Design", 1000}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": "1", "email": "user@example.com"})
	})
	mux.HandleFunc("POST /upload/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		part, err := readRelated(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fg.mu.Lock()
		fg.uploads = append(fg.uploads, part)
		fg.mu.Unlock()
		writeJSON(w, map[string]any{
			"id":          "drive-1",
			"name":        part.Metadata["name"],
			"mimeType":    part.Metadata["mimeType"],
			"webViewLink": "https://docs.example.com/drive-1",
		})
	})
	mux.HandleFunc("GET /drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		fg.mu.Lock()
		fg.queries = append(fg.queries, r.URL.Query().Get("q"))
		fg.mu.Unlock()
		writeJSON(w, map[string]any{"files": []map[string]any{
			{"id": "a", "name": "Budget", "mimeType": mimeSpreadsheet, "modifiedTime": "2024-05-01T09:00:00Z"},
		}})
	})
	mux.HandleFunc("GET /v4/spreadsheets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "forbidden" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission"}}`))
			return
		}
		writeJSON(w, map[string]any{"spreadsheetId": r.PathValue("id"), "properties": map[string]any{"title": fg.title}})
	})
	mux.HandleFunc("GET /v4/spreadsheets/{id}/values/{range}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"range": r.PathValue("range"), "majorDimension": "ROWS", "values": fg.values})
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			fg.mu.Lock()
			fg.authErrs++
			fg.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return fg, server
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func readRelated(r *http.Request) (uploadedPart, error) {
	var part uploadedPart
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return part, err
	}
	reader := multipart.NewReader(r.Body, params["boundary"])

	meta, err := reader.NextPart()
	if err != nil {
		return part, err
	}
	if err := json.NewDecoder(meta).Decode(&part.Metadata); err != nil {
		return part, err
	}
	media, err := reader.NextPart()
	if err != nil {
		return part, err
	}
	part.Content, err = io.ReadAll(media)
	return part, err
}

type fakeLibrary struct {
	mu    sync.Mutex
	files map[string]*library.File
	seq   int
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{files: make(map[string]*library.File)}
}

func (l *fakeLibrary) GetFile(ctx context.Context, id string) (*library.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, library.ErrNotFound)
	}
	return f, nil
}

func (l *fakeLibrary) AddFile(ctx context.Context, file *library.File) (*library.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	file.ID = fmt.Sprintf("file-%d", l.seq)
	file.State = library.StateActive
	l.files[file.ID] = file
	return file, nil
}

func (l *fakeLibrary) ReplaceFile(ctx context.Context, id string, replacement *library.File) (*library.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.files[id]
	if !ok {
		return nil, library.ErrNotFound
	}
	existing.Name = replacement.Name
	existing.Data = replacement.Data
	return existing, nil
}

func (l *fakeLibrary) FindActiveByName(ctx context.Context, folderID, name string) (*library.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.files {
		if f.OriginalFolderID == folderID && f.Name == name && f.State == library.StateActive {
			return f, nil
		}
	}
	return nil, library.ErrNotFound
}

func excelFile(content []byte) *library.File {
	return &library.File{
		ID:               "excel-1",
		Name:             "budget.xlsx",
		Type:             library.FileTypeExcel,
		Data:             library.EncodeData(content, xlsxContentType),
		State:            library.StateActive,
		OriginalFolderID: "f1",
	}
}

func TestFetchEmail(t *testing.T) {
	fg, server := newFakeGoogle(t)
	client := NewClient(server.URL)

	email, err := client.FetchEmail(context.Background(), testToken)
	if err != nil {
		t.Fatalf("fetch email: %v", err)
	}
	if email != "user@example.com" {
		t.Fatalf("unexpected email %q", email)
	}

	if _, err := client.FetchEmail(context.Background(), "wrong-token"); err == nil {
		t.Fatal("expected error for invalid token")
	}
	if fg.authErrs != 1 {
		t.Fatalf("expected 1 rejected request, got %d", fg.authErrs)
	}
}

func TestUploadToDrive_ConvertsExcel(t *testing.T) {
	fg, server := newFakeGoogle(t)
	client := NewClient(server.URL)
	content := []byte("PK\x03\x04 fake workbook")

	uploaded, err := client.UploadToDrive(context.Background(), tokenSource(testToken), excelFile(content))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploaded.ID != "drive-1" || uploaded.MimeType != mimeSpreadsheet {
		t.Fatalf("unexpected upload result %+v", uploaded)
	}

	if len(fg.uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(fg.uploads))
	}
	part := fg.uploads[0]
	if part.Metadata["name"] != "budget.xlsx" || part.Metadata["mimeType"] != mimeSpreadsheet {
		t.Fatalf("unexpected metadata %+v", part.Metadata)
	}
	if !bytes.Equal(part.Content, content) {
		t.Fatalf("uploaded content differs: %q", part.Content)
	}
}

func TestUploadToDrive_RejectsUnconvertible(t *testing.T) {
	fg, server := newFakeGoogle(t)
	client := NewClient(server.URL)

	file := excelFile([]byte("%PDF-1.4"))
	file.Type = library.FileTypePDF
	if _, err := client.UploadToDrive(context.Background(), tokenSource(testToken), file); !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("expected ErrNotConvertible, got %v", err)
	}
	if len(fg.uploads) != 0 {
		t.Fatal("expected no request for unconvertible file")
	}
}

func TestConversionMimeType(t *testing.T) {
	testCases := []struct {
		fileType library.FileType
		want     string
		ok       bool
	}{
		{library.FileTypeExcel, mimeSpreadsheet, true},
		{library.FileTypePowerPoint, mimePresentation, true},
		{library.FileTypeWord, "", false},
		{library.FileTypePDF, "", false},
	}
	for _, tc := range testCases {
		got, ok := ConversionMimeType(tc.fileType)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s: expected (%q, %v), got (%q, %v)", tc.fileType, tc.want, tc.ok, got, ok)
		}
	}
}

func TestListRootFiles(t *testing.T) {
	fg, server := newFakeGoogle(t)
	client := NewClient(server.URL)

	files, err := client.ListRootFiles(context.Background(), tokenSource(testToken), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 || files[0].Name != "Budget" || files[0].ModifiedTime.IsZero() {
		t.Fatalf("unexpected files %+v", files)
	}
	if fg.queries[0] != "'root' in parents and trashed = false" {
		t.Fatalf("unexpected query %q", fg.queries[0])
	}
}

func TestBuildWorkbook(t *testing.T) {
	content, err := BuildWorkbook([][]any{{"Item", "Amount"}, {"Design", 1000.0}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Sheet1", "B2")
	if err != nil {
		t.Fatalf("get cell: %v", err)
	}
	if got != "1000" {
		t.Fatalf("expected 1000, got %q", got)
	}
}

func TestNumberedName(t *testing.T) {
	if got := numberedName("Sales.xlsx", 2); got != "Sales (2).xlsx" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := workbookName(" ", "sheet-id"); got != "sheet-id.xlsx" {
		t.Fatalf("unexpected fallback name %q", got)
	}
}
