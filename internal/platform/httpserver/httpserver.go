package httpserver

import (
	"net/http"
	"time"
)

// Submission bodies carry base64-encoded evidence files up to the file size
// bound, so the read and write timeouts leave room for slow clients without
// letting a stalled upload pin a connection forever.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 2 * time.Minute
)

// New builds an HTTP server with the timeouts this API needs.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
