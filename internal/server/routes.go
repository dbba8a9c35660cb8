package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check.
	mux.Handle("GET /health", s.health)

	// Shared password gate.
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("POST /logout", s.handleLogout)

	// Documents.
	mux.HandleFunc("GET /{$}", s.requireSession(s.handleIndex))
	mux.HandleFunc("POST /upload", s.requireSession(s.handleUpload))
	mux.HandleFunc("GET /download/{id}", s.requireSession(s.handleDownload))
	mux.HandleFunc("GET /delete/{id}", s.requireSession(s.handleDelete))
	mux.HandleFunc("POST /delete/{id}", s.requireSession(s.handleDelete))

	return mux
}
