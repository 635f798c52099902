package mcpgateway

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const allowedMethods = "GET, POST, DELETE"

const (
	msgSessionNotFound  = "Session not found"
	msgMissingSession   = "Bad Request: Invalid or missing session. Send an initialize request first."
	msgInvalidSessionID = "Invalid or missing session ID"
)

type healthBody struct {
	Status   string `json:"status"`
	Server   string `json:"server"`
	Sessions int    `json:"sessions"`
}

type terminatedBody struct {
	Status string `json:"status"`
}

func (g *Gateway) mountHandler() http.Handler {
	path := g.opts.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get(g.opts.HealthPath, g.handleHealth)
	if g.metrics != nil {
		r.Method(http.MethodGet, g.opts.MetricsPath, g.metrics.handler())
	}
	r.Group(func(r chi.Router) {
		r.Use(g.auth.Middleware)
		r.Use(g.checkHeaders)
		r.Post(path, g.handlePost)
		r.Get(path, g.handleGet)
		r.Delete(path, g.handleDelete)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		allow := http.MethodGet
		if req.URL.Path == path {
			allow = allowedMethods
		}
		w.Header().Set("Allow", allow)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
	})

	if len(g.opts.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: g.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", SessionIDHeader, ProtocolVersionHeader, "Last-Event-ID"},
		ExposedHeaders: []string{SessionIDHeader},
	}).Handler(r)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		Status:   "ok",
		Server:   g.opts.Name,
		Sessions: g.sessions.len(),
	})
}

func (g *Gateway) handlePost(w http.ResponseWriter, r *http.Request) {
	if id := r.Header.Get(SessionIDHeader); id != "" {
		s, ok := g.sessions.lookup(id)
		if !ok {
			g.reject(r, outcomeUnknownSession, zap.String("session_id", id))
			writeRPCError(w, http.StatusNotFound, codeSessionNotFound, msgSessionNotFound)
			return
		}
		body, ok := g.readBody(w, r)
		if !ok {
			return
		}
		g.metrics.request(r.Method, outcomeRouted)
		r.Body = io.NopCloser(bytes.NewReader(body))
		s.serve(w, r)
		return
	}

	body, ok := g.readBody(w, r)
	if !ok {
		return
	}
	env, err := parseEnvelope(body)
	if err != nil {
		g.reject(r, outcomeBadEnvelope, zap.Error(err))
		writeRPCError(w, http.StatusBadRequest, codeParseError, "Parse error: "+err.Error())
		return
	}
	if !env.isInitialize() {
		g.reject(r, outcomeMissingSession)
		writeRPCError(w, http.StatusBadRequest, codeBadRequest, msgMissingSession)
		return
	}
	g.startSession(w, r, body)
}

// readBody reads a POST body of at most MaxBodyBytes, answering 413 when it
// is longer and 400 when it cannot be read.
func (g *Gateway) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.opts.MaxBodyBytes))
	if err == nil {
		return body, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		g.reject(r, outcomeTooLarge, zap.Int64("limit", tooLarge.Limit))
		writeRPCError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "Request body too large")
		return nil, false
	}
	g.reject(r, outcomeBadEnvelope, zap.Error(err))
	writeRPCError(w, http.StatusBadRequest, codeParseError, "Parse error: could not read request body")
	return nil, false
}

// startSession opens a session for an initialize request and lets its
// transport answer. The session joins the table only if the transport accepts.
func (g *Gateway) startSession(w http.ResponseWriter, r *http.Request, body []byte) {
	id := g.newID()
	s, err := g.openSession(id)
	if err != nil {
		g.metrics.request(r.Method, outcomeInternal)
		g.logError("open session", err, zap.String("session_id", id))
		writeRPCError(w, http.StatusInternalServerError, codeInternalError, "Internal error: could not open session")
		return
	}

	w.Header().Set(SessionIDHeader, id)
	iw := &initResponseWriter{
		ResponseWriter: w,
		onSuccess:      s.activate,
		onFailure: func(w http.ResponseWriter) {
			writeRPCError(w, http.StatusInternalServerError, codeInternalError, "Internal error: could not register session")
		},
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	s.serve(iw, r)

	if iw.accepted() && s.currentState() == stateActive {
		g.metrics.request(r.Method, outcomeInitialized)
		return
	}
	if iw.discard {
		g.metrics.request(r.Method, outcomeInternal)
		g.logError("session registration failed", iw.err, zap.String("session_id", id))
	} else {
		g.reject(r, outcomeInitRejected, zap.String("session_id", id), zap.Int("status", iw.status))
	}
	s.close(reasonRejected)
}

func (g *Gateway) handleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := g.sessionFor(w, r)
	if !ok {
		return
	}
	g.metrics.request(r.Method, outcomeRouted)
	s.serve(w, r)
}

func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	s, ok := g.sessionFor(w, r)
	if !ok {
		return
	}
	s.close(reasonTerminated)
	g.metrics.request(r.Method, outcomeTerminated)
	writeJSON(w, http.StatusOK, terminatedBody{Status: "terminated"})
}

// sessionFor resolves the session named by a GET or DELETE, answering 400 when
// there is none.
func (g *Gateway) sessionFor(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := r.Header.Get(SessionIDHeader)
	if id != "" {
		if s, ok := g.sessions.lookup(id); ok {
			return s, true
		}
	}
	outcome := outcomeMissingSession
	if id != "" {
		outcome = outcomeUnknownSession
	}
	g.reject(r, outcome, zap.String("session_id", id))
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msgInvalidSessionID})
	return nil, false
}

func (g *Gateway) reject(r *http.Request, outcome string, fields ...zap.Field) {
	g.metrics.request(r.Method, outcome)
	g.logger.Info("request rejected", append([]zap.Field{
		zap.String("method", r.Method),
		zap.String("outcome", outcome),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}, fields...)...)
}
