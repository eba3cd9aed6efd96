package status

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"time"

	"taeu.kr/invoicedesk/internal/library"
	"taeu.kr/invoicedesk/internal/platform/database"
	"taeu.kr/invoicedesk/internal/platform/web"
)

const checkTimeout = 3 * time.Second

type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Components     map[string]ComponentStatus `json:"components"`
	Hosts          []string                   `json:"hosts"`
	ActiveSessions int                        `json:"activeSessions"`
}

type FolderLister interface {
	ListFolders(ctx context.Context) ([]*library.Folder, error)
}

type SessionCounter interface {
	Count() int
}

// Features는 외부 연동 설정 여부입니다
type Features struct {
	Extraction bool
	Google     bool
}

type Handler struct {
	db       *sql.DB
	folders  FolderLister
	sessions SessionCounter
	features Features
	port     string
}

func NewHandler(db *sql.DB, folders FolderLister, sessions SessionCounter, features Features, port string) *Handler {
	return &Handler{
		db:       db,
		folders:  folders,
		sessions: sessions,
		features: features,
		port:     port,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/status", web.Handler(h.handleStatus))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) *web.Error {
	components := map[string]ComponentStatus{
		"database":   h.checkDatabase(r.Context()),
		"library":    h.checkLibrary(r.Context()),
		"extraction": featureStatus(h.features.Extraction, "OPENAI_API_KEY 미설정"),
		"google":     featureStatus(h.features.Google, "GOOGLE_CLIENT_ID 미설정"),
	}

	sessions := 0
	if h.sessions != nil {
		sessions = h.sessions.Count()
	}

	return web.WriteJSON(w, http.StatusOK, StatusResponse{
		Components:     components,
		Hosts:          h.getAccessibleHosts(),
		ActiveSessions: sessions,
	})
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return ComponentStatus{Status: "unhealthy", Message: "DB 연결 실패"}
	}
	version, err := database.CurrentVersion(ctx, h.db)
	if err != nil {
		return ComponentStatus{Status: "unhealthy", Message: "스키마 버전 조회 실패"}
	}
	if version != database.SchemaVersion {
		return ComponentStatus{Status: "degraded", Message: fmt.Sprintf("스키마 버전 불일치 (%d)", version)}
	}
	return ComponentStatus{Status: "healthy", Message: "정상"}
}

// checkLibrary는 폴더 조회와 휴지통 존재 여부를 확인합니다
func (h *Handler) checkLibrary(ctx context.Context) ComponentStatus {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	folders, err := h.folders.ListFolders(ctx)
	if err != nil {
		return ComponentStatus{Status: "unhealthy", Message: "폴더 조회 실패"}
	}
	for _, f := range folders {
		if f.IsTrash {
			return ComponentStatus{Status: "healthy", Message: "정상"}
		}
	}
	return ComponentStatus{Status: "degraded", Message: "휴지통 폴더 없음"}
}

func featureStatus(enabled bool, missing string) ComponentStatus {
	if !enabled {
		return ComponentStatus{Status: "disabled", Message: missing}
	}
	return ComponentStatus{Status: "healthy", Message: "정상"}
}

func (h *Handler) getAccessibleHosts() []string {
	hosts := []string{fmt.Sprintf("localhost:%s", h.port)}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return hosts
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		hosts = append(hosts, fmt.Sprintf("%s:%s", ipNet.IP.String(), h.port))
	}

	return hosts
}
