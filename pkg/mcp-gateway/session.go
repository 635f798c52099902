package mcpgateway

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// sessionState only ever advances: pending -> active -> closed. A pending
// session may also go straight to closed when its initialize is rejected.
type sessionState int32

const (
	statePending sessionState = iota
	stateActive
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateActive:
		return "active"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("sessionState(%d)", int32(s))
	}
}

// closeReason records why a session ended.
type closeReason string

const (
	reasonTerminated closeReason = "terminated"
	reasonIdle       closeReason = "idle"
	reasonConnection closeReason = "connection_closed"
	reasonShutdown   closeReason = "shutdown"
	reasonRejected   closeReason = "initialize_rejected"
)

var (
	errDuplicateSession  = errors.New("session id already registered")
	errSessionNotPending = errors.New("session is not pending initialization")
)

// sessionObserver consumes the two lifecycle events a session raises. Each
// fires at most once per session.
type sessionObserver interface {
	sessionInitialized(s *session) error
	sessionClosed(s *session, reason closeReason)
}

// session is one client conversation: its own server, transport and
// connection. Only the table shares a pointer to it.
type session struct {
	id        string
	server    *mcp.Server
	transport *mcp.StreamableServerTransport
	conn      *mcp.ServerSession
	observer  sessionObserver

	state     atomic.Int32
	lastSeen  atomic.Int64
	inflight  atomic.Int32
	createdAt time.Time

	closeOnce sync.Once
}

func newSession(id string, server *mcp.Server, transport *mcp.StreamableServerTransport, conn *mcp.ServerSession, observer sessionObserver) *session {
	now := time.Now()
	s := &session{
		id:        id,
		server:    server,
		transport: transport,
		conn:      conn,
		observer:  observer,
		createdAt: now,
	}
	s.lastSeen.Store(now.UnixNano())
	return s
}

func (s *session) currentState() sessionState {
	return sessionState(s.state.Load())
}

// activate moves a pending session to active and raises initialized. If the
// observer refuses the session it stays pending so close will not report it.
func (s *session) activate() error {
	if !s.state.CompareAndSwap(int32(statePending), int32(stateActive)) {
		return errSessionNotPending
	}
	if err := s.observer.sessionInitialized(s); err != nil {
		s.state.CompareAndSwap(int32(stateActive), int32(statePending))
		return err
	}
	return nil
}

// close ends the session. Only the first call has any effect; closed is raised
// only for sessions that had become active.
func (s *session) close(reason closeReason) {
	s.closeOnce.Do(func() {
		prev := sessionState(s.state.Swap(int32(stateClosed)))
		if s.conn != nil {
			_ = s.conn.Close()
		}
		if prev == stateActive {
			s.observer.sessionClosed(s, reason)
		}
	})
}

// watch blocks until the underlying connection ends, then closes the session.
func (s *session) watch() {
	if s.conn != nil {
		_ = s.conn.Wait()
	}
	s.close(reasonConnection)
}

// serve hands one HTTP exchange to the session's transport.
func (s *session) serve(w http.ResponseWriter, r *http.Request) {
	s.inflight.Add(1)
	s.touch()
	defer func() {
		s.touch()
		s.inflight.Add(-1)
	}()
	s.transport.ServeHTTP(w, r)
}

func (s *session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// idleSince reports how long the session has had no traffic. Sessions with an
// open exchange (such as a notification stream) are never idle.
func (s *session) idleSince(now time.Time) time.Duration {
	if s.inflight.Load() > 0 {
		return 0
	}
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// sessionTable maps session ids to live sessions.
type sessionTable struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[string]*session)}
}

// insert adds s under id. An existing id is never overwritten.
func (t *sessionTable) insert(id string, s *session) error {
	if id == "" {
		return errors.New("session id cannot be empty")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.sessions[id]; exists {
		return errors.Wrapf(errDuplicateSession, "insert %q", id)
	}
	t.sessions[id] = s
	return nil
}

func (t *sessionTable) lookup(id string) (*session, bool) {
	t.mu.RLock()
	s, ok := t.sessions[id]
	t.mu.RUnlock()
	return s, ok
}

// remove deletes id if it still maps to s. Removing an absent id is a no-op.
func (t *sessionTable) remove(id string, s *session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.sessions[id]
	if !ok || current != s {
		return false
	}
	delete(t.sessions, id)
	return true
}

func (t *sessionTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

func (t *sessionTable) snapshot() []*session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*session, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, s)
	}
	return out
}
