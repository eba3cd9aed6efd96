package web

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Error는 웹 계층의 커스텀 에러 타입을 정의
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Handler는 에러를 반환하는 웹 계층의 커스텀 핸들러 타입을 정의
type Handler func(w http.ResponseWriter, r *http.Request) *Error

func (fn Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := fn(w, r); err != nil {
		event := log.Error()
		if err.Code < http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Err(err.Err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", err.Code).
			Msg(err.Message)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(err.Code)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Message})
	}
}

// WriteJSON은 상태 코드와 함께 JSON 응답을 작성합니다
func WriteJSON(w http.ResponseWriter, status int, v any) *Error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// 헤더가 이미 나갔으므로 로그만 남김
		log.Error().Err(err).Msg("failed to encode response")
	}
	return nil
}

// DecodeJSON은 요청 본문을 v로 디코딩합니다
func DecodeJSON(r *http.Request, v any) *Error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &Error{Code: http.StatusBadRequest, Message: "Invalid request body", Err: err}
	}
	return nil
}

// Logger는 요청 로그를 남기는 미들웨어입니다
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().
			Str("remote", r.RemoteAddr).
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Msg("request")
		next.ServeHTTP(w, r)
	})
}

// Errorf는 메시지 포맷을 지원하는 Error 생성 헬퍼입니다
func Errorf(code int, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// WriteAttachment은 바이너리 본문을 다운로드 첨부파일로 작성합니다
func WriteAttachment(w http.ResponseWriter, filename, contentType string, content []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("failed to write attachment")
	}
}
