package relay

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/philogos/gemini-playground/internal/metrics"
)

// SessionManager tracks open sessions for the max-session bound, the active
// session gauge, and shutdown.
type SessionManager struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(cfg Config, m *metrics.Metrics, logger *slog.Logger) *SessionManager {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		cfg:      cfg.WithDefaults(),
		log:      logger,
		metrics:  m,
		sessions: make(map[string]*Session),
	}
}

func (sm *SessionManager) Metrics() *metrics.Metrics { return sm.metrics }

func (sm *SessionManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

func (sm *SessionManager) create(client *websocket.Conn) (*Session, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id, err := newSessionID()
		if err != nil {
			return nil, err
		}

		sm.mu.Lock()
		if sm.cfg.MaxSessions > 0 && len(sm.sessions) >= sm.cfg.MaxSessions {
			sm.metrics.Inc(metrics.RelayTooManySessions)
			sm.mu.Unlock()
			return nil, ErrTooManySessions
		}
		if _, ok := sm.sessions[id]; ok {
			// Extremely unlikely (16 bytes of crypto-random entropy). Try again.
			sm.mu.Unlock()
			continue
		}
		sess := newSession(id, client, sm.cfg, sm.metrics, sm.log, func() {
			sm.delete(id)
		})
		sm.sessions[id] = sess
		sm.mu.Unlock()

		sm.metrics.Inc(metrics.RelaySessionOpened)
		return sess, nil
	}
	return nil, errors.New("failed to allocate unique session id")
}

func (sm *SessionManager) delete(id string) {
	sm.mu.Lock()
	delete(sm.sessions, id)
	sm.mu.Unlock()
}

// CloseAll announces code/reason to every open session and closes it. Used on
// graceful shutdown.
func (sm *SessionManager) CloseAll(code int, reason string) {
	sm.mu.Lock()
	open := make([]*Session, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		open = append(open, sess)
	}
	sm.mu.Unlock()

	for _, sess := range open {
		sess.CloseWith(code, reason)
	}
}
