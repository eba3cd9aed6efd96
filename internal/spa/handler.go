package spa

import (
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type spaResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// WriteHeader는 404를 가로채고 나머지는 그대로 전달합니다
func (w *spaResponseWriter) WriteHeader(status int) {
	w.status = status
	w.wroteHeader = true

	if status != http.StatusNotFound {
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *spaResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	// 404 본문은 버림
	if w.status == http.StatusNotFound {
		return len(b), nil
	}

	return w.ResponseWriter.Write(b)
}

// NewHandler는 프런트엔드 빌드 결과를 서빙하고, 없는 경로는 index.html로 돌려줍니다.
// /api/ 경로는 SPA로 넘기지 않습니다.
func NewHandler(distFS fs.FS) (http.HandlerFunc, error) {
	if _, err := fs.Stat(distFS, "index.html"); err != nil {
		return nil, err
	}

	fileServer := http.FileServer(http.FS(distFS))

	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}

		wrapper := &spaResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}
		fileServer.ServeHTTP(wrapper, r)

		if wrapper.status != http.StatusNotFound {
			return
		}

		file, err := distFS.Open("index.html")
		if err != nil {
			log.Error().Err(err).Msg("failed to open index.html")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer file.Close()

		// FileServer가 남긴 404용 헤더 제거
		w.Header().Del("X-Content-Type-Options")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, file); err != nil {
			log.Warn().Err(err).Msg("error serving index.html")
		}
	}, nil
}
