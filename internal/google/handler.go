package google

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"
	"taeu.kr/invoicedesk/internal/library"
	libraryhandler "taeu.kr/invoicedesk/internal/library/handler"
	"taeu.kr/invoicedesk/internal/platform/web"
	"taeu.kr/invoicedesk/internal/session"
)

type FileGetter interface {
	GetFile(ctx context.Context, id string) (*library.File, error)
}

type Handler struct {
	client   *Client
	files    FileGetter
	importer *SheetsImporter
}

func NewHandler(client *Client, files FileGetter, importer *SheetsImporter) *Handler {
	return &Handler{
		client:   client,
		files:    files,
		importer: importer,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/google/drive/files/{id}", web.Handler(h.handleUploadToDrive))
	mux.Handle("GET /api/google/drive/files", web.Handler(h.handleListDriveFiles))
	mux.Handle("POST /api/google/sheets/import", web.Handler(h.handleImportSheet))
}

func currentSession(r *http.Request) (*session.Session, *web.Error) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return nil, &web.Error{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	}
	return sess, nil
}

// toWebError는 Google API 실패를 응답 본문과 함께 502로 전달합니다
func toWebError(err error, message string) *web.Error {
	var apiErr *googleapi.Error
	switch {
	case errors.Is(err, ErrNotConvertible), errors.Is(err, ErrEmptySheet):
		return &web.Error{Code: http.StatusUnprocessableEntity, Message: err.Error(), Err: err}
	case errors.As(err, &apiErr):
		if apiErr.Code == http.StatusUnauthorized {
			return &web.Error{Code: http.StatusUnauthorized, Message: "Google session is no longer valid", Err: err}
		}
		reason := apiErr.Message
		if reason == "" {
			reason = apiErr.Body
		}
		return web.Errorf(http.StatusBadGateway, err, "%s: %s", message, reason)
	default:
		return libraryhandler.WebError(err, message)
	}
}

func (h *Handler) handleUploadToDrive(w http.ResponseWriter, r *http.Request) *web.Error {
	sess, webErr := currentSession(r)
	if webErr != nil {
		return webErr
	}

	file, err := h.files.GetFile(r.Context(), r.PathValue("id"))
	if err != nil {
		return toWebError(err, "Failed to get file")
	}

	uploaded, err := h.client.UploadToDrive(r.Context(), sess.TokenSource(), file)
	if err != nil {
		return toWebError(err, "Failed to upload to Google Drive")
	}
	return web.WriteJSON(w, http.StatusCreated, uploaded)
}

func (h *Handler) handleListDriveFiles(w http.ResponseWriter, r *http.Request) *web.Error {
	sess, webErr := currentSession(r)
	if webErr != nil {
		return webErr
	}

	var pageSize int64
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > 1000 {
			return &web.Error{Code: http.StatusBadRequest, Message: "pageSize must be between 1 and 1000", Err: err}
		}
		pageSize = n
	}

	files, err := h.client.ListRootFiles(r.Context(), sess.TokenSource(), pageSize)
	if err != nil {
		return toWebError(err, "Failed to list Google Drive files")
	}
	return web.WriteJSON(w, http.StatusOK, files)
}

func (h *Handler) handleImportSheet(w http.ResponseWriter, r *http.Request) *web.Error {
	sess, webErr := currentSession(r)
	if webErr != nil {
		return webErr
	}

	var req ImportRequest
	if webErr := web.DecodeJSON(r, &req); webErr != nil {
		return webErr
	}

	result, err := h.importer.Import(r.Context(), sess.TokenSource(), req)
	if err != nil {
		return toWebError(err, "Failed to import spreadsheet")
	}
	return web.WriteJSON(w, http.StatusCreated, result)
}
