package middleware

import "net/http"

// DateSource supplies the cached HTTP Date value.
type DateSource interface {
	Now() string
}

// headerWriter stamps Server and Date at the moment the status line is
// written, reading the date source then rather than at request arrival.
type headerWriter struct {
	http.ResponseWriter
	serverName  string
	dates       DateSource
	wroteHeader bool
}

func (hw *headerWriter) WriteHeader(code int) {
	if !hw.wroteHeader {
		hw.wroteHeader = true
		h := hw.Header()
		h.Set("Server", hw.serverName)
		h.Set("Date", hw.dates.Now())
	}
	hw.ResponseWriter.WriteHeader(code)
}

func (hw *headerWriter) Write(b []byte) (int, error) {
	if !hw.wroteHeader {
		hw.WriteHeader(http.StatusOK)
	}
	return hw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (hw *headerWriter) Unwrap() http.ResponseWriter {
	return hw.ResponseWriter
}

// ServerHeaders sets the Server header to serverName and the Date header
// from dates on every response.
func ServerHeaders(serverName string, dates DateSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&headerWriter{
				ResponseWriter: w,
				serverName:     serverName,
				dates:          dates,
			}, r)
		})
	}
}
