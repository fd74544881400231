package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Server は状態確認とメトリクス用のHTTPサーバー
type Server struct {
	server  *http.Server
	service *GamepadService
	log     zerolog.Logger
	addr    string
}

// NewServer は新しいサーバーを作成する
func NewServer(addr string, service *GamepadService, logger zerolog.Logger) *Server {
	s := &Server{
		service: service,
		log:     logger,
		addr:    addr,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()
	s.setupRoutes(router)
	return router
}

// Start はサーバーを開始する。Stop で止めた場合は nil を返す
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve は指定したリスナーで待ち受ける
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("HTTPサーバーを開始します")
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop はサーバーを停止する
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("HTTPサーバーを停止します")
	return s.server.Shutdown(ctx)
}

// writeJSON はJSONレスポンスを書き込む
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Warn().Err(err).Msg("JSONエンコードエラー")
		}
	}
}

// writeError はエラーレスポンスを書き込む
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
