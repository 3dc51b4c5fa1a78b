package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for this project. The write
// timeout leaves room for one semantic verifier round trip.
func New(addr string, handler http.Handler, verifierTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      verifierTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
