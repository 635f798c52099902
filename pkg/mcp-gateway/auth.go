package mcpgateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// AuthMode selects where clients may present the bearer secret.
type AuthMode string

const (
	// AuthModeHeader accepts only "Authorization: Bearer <token>".
	AuthModeHeader AuthMode = "header"
	// AuthModeHeaderOrQuery also accepts a "token" query parameter, for
	// clients that cannot set headers.
	AuthModeHeaderOrQuery AuthMode = "header-or-query"
)

const bearerPrefix = "Bearer "

// ParseAuthMode validates a configured mode string.
func ParseAuthMode(s string) (AuthMode, error) {
	switch mode := AuthMode(strings.TrimSpace(s)); mode {
	case "", AuthModeHeader:
		return AuthModeHeader, nil
	case AuthModeHeaderOrQuery:
		return mode, nil
	default:
		return "", errors.Newf("unknown auth mode %q (want %q or %q)", s, AuthModeHeader, AuthModeHeaderOrQuery)
	}
}

// authError is a terminal rejection produced by the Authenticator.
type authError struct {
	status  int
	message string
}

func (e *authError) Error() string { return e.message }

var (
	errMissingCredential = &authError{
		status:  http.StatusUnauthorized,
		message: "Missing or invalid Authorization header. Use: Bearer <MCP_API_KEY>",
	}
	errInvalidKey = &authError{
		status:  http.StatusForbidden,
		message: "Invalid API key",
	}
)

// Authenticator checks the bearer secret on inbound protocol requests.
type Authenticator struct {
	token  []byte
	mode   AuthMode
	logger *zap.Logger
}

// NewAuthenticator returns an Authenticator for token. An empty token is a
// configuration error.
func NewAuthenticator(token string, mode AuthMode, logger *zap.Logger) (*Authenticator, error) {
	if token == "" {
		return nil, errors.New("mcpgateway: API key is required")
	}
	mode, err := ParseAuthMode(string(mode))
	if err != nil {
		return nil, errors.Wrap(err, "mcpgateway")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{token: []byte(token), mode: mode, logger: logger}, nil
}

// Authenticate returns nil when r carries the configured secret.
func (a *Authenticator) Authenticate(r *http.Request) error {
	presented, ok := a.credential(r)
	if !ok {
		return errMissingCredential
	}
	if subtle.ConstantTimeCompare([]byte(presented), a.token) != 1 {
		return errInvalidKey
	}
	return nil
}

func (a *Authenticator) credential(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix), true
	}
	if a.mode == AuthModeHeaderOrQuery {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// Middleware rejects unauthenticated requests before next sees them.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Authenticate(r); err != nil {
			var ae *authError
			if !errors.As(err, &ae) {
				ae = errMissingCredential
			}
			a.logger.Debug("request rejected",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ae.status),
			)
			if ae.status == http.StatusUnauthorized {
				w.Header().Set("WWW-Authenticate", "Bearer")
			}
			writeJSON(w, ae.status, errorBody{Error: ae.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}
