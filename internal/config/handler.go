package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"taeu.kr/invoicedesk/internal/platform/web"
)

// Handler는 config API 핸들러입니다
type Handler struct {
	save func() error
}

type PublicGoogleConfig struct {
	ClientID  string   `json:"clientId"`
	PickerKey string   `json:"pickerKey"`
	Scopes    []string `json:"scopes"`
}

type PublicConfigResponse struct {
	Server            Server             `json:"server"`
	Google            PublicGoogleConfig `json:"google"`
	ExtractionEnabled bool               `json:"extractionEnabled"`
}

type UpdateConfigRequest struct {
	Server Server `json:"server"`
}

func NewHandler() *Handler {
	return &Handler{save: SaveConfig}
}

// RegisterRoutes는 라우트를 등록합니다
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/config", web.Handler(h.GetConfig))
	mux.Handle("PUT /api/config", web.Handler(h.UpdateConfig))
}

// GetConfig는 브라우저에 공개 가능한 설정을 반환합니다
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) *web.Error {
	response := PublicConfigResponse{
		Server: Conf.Server,
		Google: PublicGoogleConfig{
			ClientID:  Conf.Google.ClientID,
			PickerKey: Conf.Google.PickerKey,
			Scopes:    Conf.Google.Scopes,
		},
		ExtractionEnabled: Conf.Extraction.Enabled && Conf.Extraction.APIKey != "",
	}
	return web.WriteJSON(w, http.StatusOK, response)
}

// UpdateConfig는 설정을 업데이트합니다
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) *web.Error {
	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &web.Error{Err: err, Code: http.StatusBadRequest, Message: "Invalid config format"}
	}

	if err := req.Validate(); err != nil {
		return &web.Error{Err: err, Code: http.StatusBadRequest, Message: err.Error()}
	}
	if req.Server.ShutdownTimeout <= 0 {
		req.Server.ShutdownTimeout = Conf.Server.ShutdownTimeout
	}
	if req.Server.WebDir == "" {
		req.Server.WebDir = Conf.Server.WebDir
	}

	// 민감정보를 포함하는 datasource/secret은 API로 변경하지 않음
	Conf.Server = req.Server

	if err := h.save(); err != nil {
		return &web.Error{Err: err, Code: http.StatusInternalServerError, Message: "Failed to save config"}
	}

	return web.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Configuration updated successfully",
	})
}

var originPattern = regexp.MustCompile(`^(\*|https?://\S+)$`)

// Validate는 서버 설정 변경 요청을 검증합니다. 포트와 origin 앞뒤 공백은 제거합니다.
func (req *UpdateConfigRequest) Validate() error {
	server := &req.Server
	server.Port = strings.TrimSpace(server.Port)
	for i, origin := range server.CORSOrigins {
		server.CORSOrigins[i] = strings.TrimSpace(origin)
	}

	return validation.ValidateStruct(server,
		validation.Field(&server.Port,
			validation.Required.Error("server.port is required"),
			validation.By(validPort),
		),
		validation.Field(&server.CORSOrigins,
			validation.Each(validation.Match(originPattern).Error("server.corsOrigins must be http(s) origins or *")),
		),
		validation.Field(&server.ShutdownTimeout,
			validation.Min(time.Duration(0)).Error("server.shutdownTimeout must not be negative"),
		),
	)
}

func validPort(value any) error {
	port, err := strconv.Atoi(value.(string))
	if err != nil || port < 1 || port > 65535 {
		return errors.New("server.port must be an integer between 1 and 65535")
	}
	return nil
}
