package mcpgateway

import (
	"mime"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// ProtocolVersionHeader carries the negotiated protocol revision on every
// request after initialize.
const ProtocolVersionHeader = "Mcp-Protocol-Version"

// supportedProtocolVersions are the revisions the session transport speaks.
var supportedProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

const (
	msgAcceptPost       = "Bad Request: Accept must contain both 'application/json' and 'text/event-stream'"
	msgAcceptGet        = "Bad Request: Accept must contain 'text/event-stream'"
	msgProtocolVersion  = "Bad Request: Unsupported protocol version (supported versions: "
	mediaJSON           = "application/json"
	mediaEventStream    = "text/event-stream"
	mediaAny            = "*/*"
	mediaApplicationAny = "application/*"
	mediaTextAny        = "text/*"
)

// checkHeaders enforces the Accept and Mcp-Protocol-Version rules of the
// Streamable HTTP transport before a request reaches session routing.
func (g *Gateway) checkHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if msg := headerViolation(r); msg != "" {
			g.reject(r, outcomeBadHeaders,
				zap.String("accept", r.Header.Get("Accept")),
				zap.String("protocol_version", r.Header.Get(ProtocolVersionHeader)),
			)
			writeRPCError(w, http.StatusBadRequest, codeBadRequest, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// headerViolation returns the client-facing message for the first header rule
// r breaks, or "" when the headers are acceptable.
func headerViolation(r *http.Request) string {
	jsonOK, streamOK := acceptedMedia(r.Header.Values("Accept"))
	switch r.Method {
	case http.MethodPost:
		if !jsonOK || !streamOK {
			return msgAcceptPost
		}
	case http.MethodGet:
		if !streamOK {
			return msgAcceptGet
		}
	}
	if v := r.Header.Get(ProtocolVersionHeader); v != "" && !slices.Contains(supportedProtocolVersions, v) {
		return msgProtocolVersion + strings.Join(supportedProtocolVersions, ", ") + ")"
	}
	return ""
}

// acceptedMedia reports whether the Accept values admit JSON and event-stream
// responses. Wildcards count for the types they cover.
func acceptedMedia(values []string) (jsonOK, streamOK bool) {
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			switch mediaType {
			case mediaAny:
				jsonOK, streamOK = true, true
			case mediaJSON, mediaApplicationAny:
				jsonOK = true
			case mediaEventStream, mediaTextAny:
				streamOK = true
			}
		}
	}
	return jsonOK, streamOK
}
