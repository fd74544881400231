package api

import (
	"net/http"

	"github.com/char5742/kbdpad/internal/config"
	"github.com/char5742/kbdpad/internal/features"
)

// ルートの設定
func (s *Server) setupRoutes(router *http.ServeMux) {
	router.HandleFunc("GET /api/health", s.handleHealthCheck)
	router.HandleFunc("GET /api/status", s.handleStatus)
	router.HandleFunc("GET /api/mapping", s.handleGetMapping)
	router.HandleFunc("GET /api/devices", s.handleGetDevices)
	router.Handle("GET /metrics", s.service.Metrics().Handler())
}

// ヘルスチェックハンドラ
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !s.service.IsRunning() {
		status = "idle"
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// サービス状態取得ハンドラ
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Status())
}

// マッピング取得ハンドラ。プロファイルファイルと同じ名前付きの形で返す
func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, config.NewProfileFile(s.service.Table().Profile()))
}

// デバイス一覧取得ハンドラ
func (s *Server) handleGetDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := features.ScanDevices()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "デバイス一覧の取得に失敗しました: "+err.Error())
		return
	}
	if devices == nil {
		devices = []features.Device{}
	}
	s.writeJSON(w, http.StatusOK, devices)
}
