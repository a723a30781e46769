package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/timzifer/rfbridge/document"
	"github.com/timzifer/rfbridge/settings"
)

const maxBodyBytes = 64 << 10

const (
	// SkippedHeader carries the number of ignored document entries.
	SkippedHeader = "X-Settings-Skipped"
	// SaveErrorHeader is set when an applied update could not be written to
	// storage.
	SaveErrorHeader = "X-Settings-Save-Error"
)

// Server exposes the settings over HTTP and websocket.
type Server struct {
	service        *Service
	hub            *Hub
	logger         zerolog.Logger
	limiter        *rate.Limiter
	metrics        http.Handler
	allowedOrigins []string
	upgrader       websocket.Upgrader
	mux            *http.ServeMux
}

// ServerOption customises a Server.
type ServerOption func(*Server)

// WithRateLimit bounds how often PUT /settings may rewrite the stored file.
// A non-positive limit disables throttling.
func WithRateLimit(limit float64, burst int) ServerOption {
	return func(s *Server) {
		if limit <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// WithMetrics serves handler on /metrics.
func WithMetrics(handler http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = handler
	}
}

// WithAllowedOrigins restricts websocket upgrades to the given origins.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// NewServer wires the HTTP routes of svc. Every settings change is pushed to
// hub subscribers as a compact document.
func NewServer(svc *Service, hub *Hub, logger zerolog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		service: svc,
		hub:     hub,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	s.mux.HandleFunc("/settings", s.handleSettings)
	s.mux.HandleFunc("/settings/ws", s.handleWebSocket)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
	if hub != nil {
		svc.Subscribe(func(current settings.Settings) {
			hub.Broadcast([]byte(current.ToJSON(false)))
		})
	}
	return s
}

// Handler returns the routes behind basic auth, which is enforced whenever
// the settings carry admin credentials.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="rfbridge"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.mux.ServeHTTP(w, r)
	})
}

// ListenAndServe serves Handler on listen until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, listen string) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info().Str("listen", ln.Addr().String()).Msg("settings server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) authorized(r *http.Request) bool {
	current := s.service.Snapshot()
	if !current.HasAuthSettings() {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(current.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(current.AdminPassword)) == 1
	return userOK && passOK
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current := s.service.Snapshot()
		s.writeSettings(w, http.StatusOK, &current, wantsPretty(r))
	case http.MethodPut:
		s.handlePut(w, r)
	case http.MethodPost:
		current, issues := s.service.Reload("http")
		setSkipped(w, issues)
		s.writeSettings(w, http.StatusOK, &current, wantsPretty(r))
	default:
		w.Header().Set("Allow", "GET, PUT, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		http.Error(w, "too many settings updates", http.StatusTooManyRequests)
		return
	}
	defer r.Body.Close()
	doc, err := document.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "invalid settings document: "+err.Error(), http.StatusBadRequest)
		return
	}
	current, issues, err := s.service.Patch(doc, "http")
	switch {
	case errors.Is(err, ErrNotObject):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		// The patch is live even though it is not persisted.
		s.logger.Error().Err(err).Msg("settings applied but not saved")
		w.Header().Set(SaveErrorHeader, err.Error())
	}
	setSkipped(w, issues)
	s.writeSettings(w, http.StatusOK, &current, wantsPretty(r))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.NotFound(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	current := s.service.Snapshot()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(current.ToJSON(false))); err != nil {
		_ = conn.Close()
		return
	}
	if !s.hub.add(conn) {
		_ = conn.Close()
		return
	}
	defer s.hub.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.allowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	s.logger.Warn().Str("origin", origin).Msg("websocket connection blocked")
	return false
}

func (s *Server) writeSettings(w http.ResponseWriter, status int, current *settings.Settings, pretty bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(current.ToJSON(pretty))); err != nil {
		s.logger.Error().Err(err).Msg("write settings response")
	}
}

func setSkipped(w http.ResponseWriter, issues []settings.Issue) {
	w.Header().Set(SkippedHeader, strconv.Itoa(len(issues)))
}

func wantsPretty(r *http.Request) bool {
	pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty"))
	return pretty
}
