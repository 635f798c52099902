package mcpgateway

import (
	"net/http"
)

// initResponseWriter wraps the response to a session's initialize request. The
// first successful status raises onSuccess before any byte reaches the client,
// so the session is in the table by the time the client can learn its id. If
// onSuccess fails the client gets a 500 and the transport's output is dropped.
type initResponseWriter struct {
	http.ResponseWriter
	onSuccess func() error
	onFailure func(w http.ResponseWriter)

	wroteHeader bool
	status      int
	discard     bool
	err         error
}

func (w *initResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	if code < http.StatusBadRequest {
		if err := w.onSuccess(); err != nil {
			w.err = err
			w.discard = true
			w.Header().Del(SessionIDHeader)
			w.onFailure(w.ResponseWriter)
			return
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *initResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.discard {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *initResponseWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.discard {
		return
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *initResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// accepted reports whether the transport answered with a success status.
func (w *initResponseWriter) accepted() bool {
	return w.wroteHeader && !w.discard && w.status < http.StatusBadRequest
}
