package relay

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/philogos/gemini-playground/internal/origin"
)

// Server accepts socket-upgrade requests and relays each one to the upstream
// streaming endpoint. The outbound URL is the configured scheme+host with the
// inbound request's path and query substituted verbatim.
type Server struct {
	cfg      Config
	base     *url.URL
	log      *slog.Logger
	sessions *SessionManager

	dialer   *websocket.Dialer
	upgrader websocket.Upgrader
}

func NewServer(upstreamWSURL string, cfg Config, sessions *SessionManager, logger *slog.Logger) (*Server, error) {
	base, err := url.Parse(upstreamWSURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream ws url %q: %w", upstreamWSURL, err)
	}
	if base.Scheme != "ws" && base.Scheme != "wss" {
		return nil, fmt.Errorf("upstream ws url %q: scheme must be ws or wss", upstreamWSURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		cfg:      cfg.WithDefaults(),
		base:     base,
		log:      logger,
		sessions: sessions,
		dialer:   websocket.DefaultDialer,
	}
	srv.upgrader = websocket.Upgrader{
		CheckOrigin: srv.checkOrigin,
	}
	return srv, nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	originHeader := strings.TrimSpace(r.Header.Get("Origin"))
	if originHeader == "" {
		return true
	}
	return origin.Allowed(originHeader, r.Host, s.cfg.AllowedOrigins)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote a 400-class response with a plain message.
		return
	}

	sess, err := s.sessions.create(conn)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(s.cfg.WriteWait))
		_ = conn.Close()
		return
	}
	defer sess.Close()

	target := s.upstreamURL(r)
	s.log.Info("relay_session_started", "session_id", sess.ID(), "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	defer s.log.Info("relay_session_ended", "session_id", sess.ID(), "remote_addr", r.RemoteAddr)

	sess.start(target, s.dialer)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			sess.clientGone(err)
			return
		}
		if !sess.handleClientFrame(mt, data) {
			return
		}
	}
}

func (s *Server) upstreamURL(r *http.Request) string {
	u := *s.base
	u.Path = r.URL.Path
	u.RawPath = r.URL.RawPath
	u.RawQuery = r.URL.RawQuery
	return u.String()
}
