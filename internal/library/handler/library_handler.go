package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"taeu.kr/invoicedesk/internal/library"
	"taeu.kr/invoicedesk/internal/platform/web"
)

const defaultMaxUploadBytes = 50 << 20

type Handler struct {
	service        *library.Service
	maxUploadBytes int64
}

func NewHandler(service *library.Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes는 폴더/파일 라우트를 등록합니다
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/folders", web.Handler(h.handleListFolders))
	mux.Handle("POST /api/folders", web.Handler(h.handleCreateFolder))
	mux.Handle("PATCH /api/folders/{id}", web.Handler(h.handleRenameFolder))
	mux.Handle("DELETE /api/folders/{id}", web.Handler(h.handleDeleteFolder))
	mux.Handle("GET /api/folders/{id}/files", web.Handler(h.handleListFiles))
	mux.Handle("POST /api/folders/{id}/files", web.Handler(h.handleUpload))

	mux.Handle("GET /api/files/{id}", web.Handler(h.handleGetFile))
	mux.Handle("GET /api/files/{id}/download", web.Handler(h.handleDownload))
	mux.Handle("PATCH /api/files/{id}", web.Handler(h.handleRenameFile))
	mux.Handle("PUT /api/files/{id}/metadata", web.Handler(h.handleUpdateMetadata))
	mux.Handle("POST /api/files/{id}/trash", web.Handler(h.handleMoveToTrash))
	mux.Handle("POST /api/files/{id}/restore", web.Handler(h.handleRestore))
	mux.Handle("DELETE /api/files/{id}", web.Handler(h.handlePermanentDelete))

	mux.Handle("DELETE /api/trash", web.Handler(h.handleEmptyTrash))
}

// WebError는 library 에러를 HTTP 에러로 변환합니다
func WebError(err error, message string) *web.Error {
	switch {
	case errors.Is(err, library.ErrNotFound):
		return web.Errorf(http.StatusNotFound, err, "%s: not found", message)
	case errors.Is(err, library.ErrValidation):
		return &web.Error{Code: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.Is(err, library.ErrTrashFolder), errors.Is(err, library.ErrNoHomeFolder):
		return &web.Error{Code: http.StatusConflict, Message: err.Error(), Err: err}
	default:
		return &web.Error{Code: http.StatusInternalServerError, Message: message, Err: err}
	}
}

// requireConfirm은 파괴적 작업에 confirm=true 쿼리를 요구합니다
func requireConfirm(r *http.Request) *web.Error {
	if r.URL.Query().Get("confirm") != "true" {
		return &web.Error{Code: http.StatusPreconditionRequired, Message: "Confirmation required (confirm=true)"}
	}
	return nil
}

type folderFilesResponse struct {
	Folder *library.Folder `json:"folder"`
	Files  []*library.File `json:"files"`
	Total  library.Total   `json:"total"`
}

func (h *Handler) handleListFolders(w http.ResponseWriter, r *http.Request) *web.Error {
	folders, err := h.service.ListFolders(r.Context())
	if err != nil {
		return WebError(err, "Failed to list folders")
	}
	return web.WriteJSON(w, http.StatusOK, folders)
}

func (h *Handler) handleCreateFolder(w http.ResponseWriter, r *http.Request) *web.Error {
	var req library.NameRequest
	if webErr := web.DecodeJSON(r, &req); webErr != nil {
		return webErr
	}

	folder, err := h.service.CreateFolder(r.Context(), req.Name)
	if err != nil {
		return WebError(err, "Failed to create folder")
	}
	return web.WriteJSON(w, http.StatusCreated, folder)
}

func (h *Handler) handleRenameFolder(w http.ResponseWriter, r *http.Request) *web.Error {
	var req library.NameRequest
	if webErr := web.DecodeJSON(r, &req); webErr != nil {
		return webErr
	}

	folder, err := h.service.RenameFolder(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		return WebError(err, "Failed to rename folder")
	}
	return web.WriteJSON(w, http.StatusOK, folder)
}

func (h *Handler) handleDeleteFolder(w http.ResponseWriter, r *http.Request) *web.Error {
	if webErr := requireConfirm(r); webErr != nil {
		return webErr
	}

	removed, err := h.service.DeleteFolder(r.Context(), r.PathValue("id"))
	if err != nil {
		return WebError(err, "Failed to delete folder")
	}
	return web.WriteJSON(w, http.StatusOK, map[string]int64{"removedFiles": removed})
}

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) *web.Error {
	ctx := r.Context()
	folderID := r.PathValue("id")

	folder, err := h.service.GetFolder(ctx, folderID)
	if err != nil {
		return WebError(err, "Failed to get folder")
	}
	files, err := h.service.ListFilesForFolder(ctx, folderID)
	if err != nil {
		return WebError(err, "Failed to list files")
	}
	total, err := h.service.FolderTotal(ctx, folderID)
	if err != nil {
		return WebError(err, "Failed to compute folder total")
	}

	return web.WriteJSON(w, http.StatusOK, folderFilesResponse{
		Folder: folder,
		Files:  files,
		Total:  total,
	})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) *web.Error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return &web.Error{Code: http.StatusBadRequest, Message: "Invalid multipart form", Err: err}
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		return &web.Error{Code: http.StatusBadRequest, Message: "file is required"}
	}
	lastModified := r.MultipartForm.Value["lastModified"]

	uploads := make([]library.Upload, 0, len(headers))
	for i, header := range headers {
		content, err := readPart(header)
		if err != nil {
			return &web.Error{Code: http.StatusBadRequest, Message: "Failed to read uploaded file", Err: err}
		}
		upload := library.Upload{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     content,
		}
		if i < len(lastModified) {
			if ms, err := strconv.ParseInt(lastModified[i], 10, 64); err == nil {
				upload.LastModified = time.UnixMilli(ms)
			}
		}
		uploads = append(uploads, upload)
	}

	result, err := h.service.Ingest(r.Context(), r.PathValue("id"), uploads)
	if err != nil {
		return WebError(err, "Failed to upload files")
	}
	return web.WriteJSON(w, http.StatusCreated, result)
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) handleGetFile(w http.ResponseWriter, r *http.Request) *web.Error {
	file, err := h.service.GetFile(r.Context(), r.PathValue("id"))
	if err != nil {
		return WebError(err, "Failed to get file")
	}
	return web.WriteJSON(w, http.StatusOK, file)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) *web.Error {
	file, err := h.service.GetFile(r.Context(), r.PathValue("id"))
	if err != nil {
		return WebError(err, "Failed to get file")
	}

	content, contentType, err := file.Content()
	if err != nil {
		return &web.Error{Code: http.StatusInternalServerError, Message: "Failed to decode file", Err: err}
	}
	web.WriteAttachment(w, file.Name, contentType, content)
	return nil
}

func (h *Handler) handleRenameFile(w http.ResponseWriter, r *http.Request) *web.Error {
	var req library.NameRequest
	if webErr := web.DecodeJSON(r, &req); webErr != nil {
		return webErr
	}

	file, err := h.service.RenameFile(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		return WebError(err, "Failed to rename file")
	}
	return web.WriteJSON(w, http.StatusOK, file)
}

type updateMetadataRequest struct {
	Metadata *library.Metadata `json:"metadata"`
}

func (h *Handler) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) *web.Error {
	var req updateMetadataRequest
	if webErr := web.DecodeJSON(r, &req); webErr != nil {
		return webErr
	}

	file, err := h.service.UpdateFileMetadata(r.Context(), r.PathValue("id"), req.Metadata)
	if err != nil {
		return WebError(err, "Failed to update metadata")
	}
	return web.WriteJSON(w, http.StatusOK, file)
}

func (h *Handler) handleMoveToTrash(w http.ResponseWriter, r *http.Request) *web.Error {
	if webErr := requireConfirm(r); webErr != nil {
		return webErr
	}

	file, err := h.service.MoveToTrash(r.Context(), r.PathValue("id"))
	if err != nil {
		return WebError(err, "Failed to move file to trash")
	}
	return web.WriteJSON(w, http.StatusOK, file)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) *web.Error {
	file, err := h.service.RestoreFile(r.Context(), r.PathValue("id"))
	if err != nil {
		return WebError(err, "Failed to restore file")
	}
	return web.WriteJSON(w, http.StatusOK, file)
}

func (h *Handler) handlePermanentDelete(w http.ResponseWriter, r *http.Request) *web.Error {
	if webErr := requireConfirm(r); webErr != nil {
		return webErr
	}

	if err := h.service.PermanentlyDelete(r.Context(), r.PathValue("id")); err != nil {
		return WebError(err, "Failed to delete file")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) handleEmptyTrash(w http.ResponseWriter, r *http.Request) *web.Error {
	if webErr := requireConfirm(r); webErr != nil {
		return webErr
	}

	removed, err := h.service.EmptyTrash(r.Context())
	if err != nil {
		return WebError(err, "Failed to empty trash")
	}
	return web.WriteJSON(w, http.StatusOK, map[string]int64{"removedFiles": removed})
}
