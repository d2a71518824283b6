package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Every payload this service moves is small JSON
// (post bodies cap at 10k characters), so the read and write timeouts can be
// tight without cutting off legitimate clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
