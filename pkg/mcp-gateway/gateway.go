package mcpgateway

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SessionIDHeader carries the session id between client and gateway.
const SessionIDHeader = "Mcp-Session-Id"

const (
	ledgerTimeout = 5 * time.Second
	// closeConcurrency bounds how many sessions Close tears down at once.
	closeConcurrency = 16
)

// ServerFactory builds a fresh protocol server for one session. Servers must
// not share mutable state.
type ServerFactory func() *mcp.Server

// Gateway serves many independent MCP sessions behind a single Streamable
// HTTP endpoint. Each session gets its own server from the factory.
type Gateway struct {
	factory ServerFactory
	opts    Options
	logger  *zap.Logger

	auth     *Authenticator
	sessions *sessionTable
	metrics  *gatewayMetrics
	ledger   Ledger
	newID    func() string

	httpHandler http.Handler

	httpServerMu sync.Mutex
	httpServer   *http.Server

	stop      chan struct{}
	bg        sync.WaitGroup
	closeOnce sync.Once
}

// NewGateway validates the options and starts the idle reaper and ledger
// refresher when they are enabled.
func NewGateway(factory ServerFactory, opts *Options) (*Gateway, error) {
	if factory == nil {
		return nil, errors.New("mcpgateway: server factory is required")
	}
	options := opts.withDefaults()
	auth, err := NewAuthenticator(options.APIKey, options.AuthMode, options.Logger)
	if err != nil {
		return nil, err
	}
	g := &Gateway{
		factory:  factory,
		opts:     options,
		logger:   options.Logger,
		auth:     auth,
		sessions: newSessionTable(),
		metrics:  newGatewayMetrics(options.Metrics),
		ledger:   options.Ledger,
		newID:    uuid.NewString,
		stop:     make(chan struct{}),
	}
	g.httpHandler = g.mountHandler()

	if options.SessionIdleTimeout > 0 {
		g.bg.Add(1)
		go g.reapIdle(options.SessionIdleTimeout)
	}
	if _, nop := options.Ledger.(nopLedger); !nop {
		g.bg.Add(1)
		go g.refreshLedgerLoop(options.LedgerRefresh)
	}
	return g, nil
}

// Handler exposes the HTTP handler serving health, metrics and the protocol endpoint.
func (g *Gateway) Handler() http.Handler {
	return g.httpHandler
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.httpHandler.ServeHTTP(w, r)
}

// SessionCount reports the number of live sessions.
func (g *Gateway) SessionCount() int {
	return g.sessions.len()
}

// ListenAndServe runs an HTTP server until the provided context is cancelled or
// the server stops. Live sessions are closed before it returns.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	g.httpServerMu.Lock()
	if g.httpServer != nil {
		serv := g.httpServer
		g.httpServerMu.Unlock()
		return errors.Newf("mcpgateway: server already running on %s", serv.Addr)
	}
	srv := &http.Server{
		Addr:              g.opts.Addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.httpServer = srv
	g.httpServerMu.Unlock()
	defer func() {
		g.httpServerMu.Lock()
		if g.httpServer == srv {
			g.httpServer = nil
		}
		g.httpServerMu.Unlock()
	}()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return errors.Wrap(err, "mcpgateway: listen")
	}
	g.logger.Info("gateway listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("endpoint", g.opts.Path),
		zap.String("auth_mode", string(g.opts.AuthMode)),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		g.logger.Info("gateway shutting down", zap.Int("sessions", g.sessions.len()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.opts.ShutdownTimeout)
		defer cancel()
		// Sessions hold long-lived GET streams open, so close them first or
		// srv.Shutdown would wait out the whole timeout.
		g.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			g.logError("http shutdown", err)
		}
		return ctx.Err()
	case err := <-errCh:
		g.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "mcpgateway: serve")
	}
}

// Shutdown closes every live session and stops the embedded HTTP server if it
// is running.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.Close()
	g.httpServerMu.Lock()
	srv := g.httpServer
	g.httpServer = nil
	g.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

// Close stops the background loops and closes every live session. It is safe
// to call more than once.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		close(g.stop)
		g.bg.Wait()
	})
	var eg errgroup.Group
	eg.SetLimit(closeConcurrency)
	for _, s := range g.sessions.snapshot() {
		eg.Go(func() error {
			s.close(reasonShutdown)
			return nil
		})
	}
	_ = eg.Wait()
}

// openSession builds a pending session for id. It is not in the table yet.
func (g *Gateway) openSession(id string) (*session, error) {
	server := g.factory()
	if server == nil {
		return nil, errors.New("server factory returned nil")
	}
	transport := &mcp.StreamableServerTransport{SessionID: id}
	// The connection outlives the initialize request, so it must not inherit
	// the request context.
	conn, err := server.Connect(context.Background(), transport, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "connect session %s", id)
	}
	s := newSession(id, server, transport, conn, g)
	go s.watch()
	return s, nil
}

// sessionInitialized implements sessionObserver.
func (g *Gateway) sessionInitialized(s *session) error {
	if err := g.sessions.insert(s.id, s); err != nil {
		return err
	}
	g.metrics.sessionOpened()
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := g.ledger.Record(ctx, s.id); err != nil {
		g.logError("ledger record", err, zap.String("session_id", s.id))
	}
	g.logger.Info("session initialized",
		zap.String("session_id", s.id),
		zap.Int("sessions", g.sessions.len()),
	)
	return nil
}

// sessionClosed implements sessionObserver.
func (g *Gateway) sessionClosed(s *session, reason closeReason) {
	if !g.sessions.remove(s.id, s) {
		return
	}
	g.metrics.sessionClosed(reason)
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := g.ledger.Forget(ctx, s.id); err != nil {
		g.logError("ledger forget", err, zap.String("session_id", s.id))
	}
	g.logger.Info("session closed",
		zap.String("session_id", s.id),
		zap.String("reason", string(reason)),
		zap.Duration("age", time.Since(s.createdAt)),
		zap.Int("sessions", g.sessions.len()),
	)
}

// reapIdle closes sessions that have seen no traffic for timeout.
func (g *Gateway) reapIdle(timeout time.Duration) {
	defer g.bg.Done()
	interval := timeout / 2
	if interval < time.Second {
		interval = timeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case now := <-ticker.C:
			g.reapOnce(now, timeout)
		}
	}
}

func (g *Gateway) reapOnce(now time.Time, timeout time.Duration) int {
	reaped := 0
	for _, s := range g.sessions.snapshot() {
		if idle := s.idleSince(now); idle >= timeout {
			g.logger.Debug("reaping idle session",
				zap.String("session_id", s.id),
				zap.Duration("idle", idle),
			)
			s.close(reasonIdle)
			reaped++
		}
	}
	return reaped
}

// refreshLedgerLoop re-records live sessions every interval so their ledger
// entries do not expire while the session is still open.
func (g *Gateway) refreshLedgerLoop(interval time.Duration) {
	defer g.bg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			g.refreshLedger()
		}
	}
}

// refreshLedger re-records every live session and reports how many writes
// succeeded.
func (g *Gateway) refreshLedger() int {
	refreshed := 0
	for _, s := range g.sessions.snapshot() {
		ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
		err := g.ledger.Record(ctx, s.id)
		cancel()
		if err != nil {
			g.logError("ledger refresh", err, zap.String("session_id", s.id))
			continue
		}
		refreshed++
	}
	return refreshed
}

func (g *Gateway) logError(msg string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	g.logger.Error(msg, append([]zap.Field{zap.Error(err)}, fields...)...)
}
