package invoice

import (
	"errors"
	"net/http"

	libraryhandler "taeu.kr/invoicedesk/internal/library/handler"
	"taeu.kr/invoicedesk/internal/platform/web"
)

// FileIDHeader는 저장된 청구서 파일 ID를 알려주는 응답 헤더입니다
const FileIDHeader = "X-Invoice-File-Id"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/invoices", web.Handler(h.handleCreate))
	mux.Handle("GET /api/invoices/{id}/draft", web.Handler(h.handleDraft))
	mux.Handle("PUT /api/invoices/{id}", web.Handler(h.handleRegenerate))
}

func toWebError(err error, message string) *web.Error {
	switch {
	case errors.Is(err, ErrFolderRequired):
		return &web.Error{Code: http.StatusBadRequest, Message: ErrFolderRequired.Error(), Err: err}
	case errors.Is(err, ErrNotInvoice):
		return &web.Error{Code: http.StatusUnprocessableEntity, Message: "File has no invoice data", Err: err}
	case errors.Is(err, ErrRender):
		return &web.Error{Code: http.StatusInternalServerError, Message: "請求書の生成に失敗しました", Err: err}
	default:
		return libraryhandler.WebError(err, message)
	}
}

func writeDocument(w http.ResponseWriter, doc *Document) {
	w.Header().Set(FileIDHeader, doc.File.ID)
	w.Header().Set("Access-Control-Expose-Headers", FileIDHeader+", Content-Disposition")
	web.WriteAttachment(w, doc.FileName, "application/pdf", doc.Content)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) *web.Error {
	var req Request
	if webErr := web.DecodeJSON(r, &req); webErr != nil {
		return webErr
	}

	doc, err := h.service.Create(r.Context(), req)
	if err != nil {
		return toWebError(err, "Failed to create invoice")
	}
	writeDocument(w, doc)
	return nil
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) *web.Error {
	var req Request
	if webErr := web.DecodeJSON(r, &req); webErr != nil {
		return webErr
	}

	doc, err := h.service.Regenerate(r.Context(), r.PathValue("id"), req)
	if err != nil {
		return toWebError(err, "Failed to update invoice")
	}
	writeDocument(w, doc)
	return nil
}

func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) *web.Error {
	draft, err := h.service.Draft(r.Context(), r.PathValue("id"))
	if err != nil {
		return toWebError(err, "Failed to load invoice")
	}
	return web.WriteJSON(w, http.StatusOK, draft)
}
