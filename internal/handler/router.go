package handler

import "net/http"

// NewRouter builds the HTTP route table (Go 1.22+ enhanced patterns). The
// {bucket} segment is validated by FileHandler against the configured bucket
// set, so one route per operation covers every resource kind.
func NewRouter(files *FileHandler, profiles *ProfileHandler) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", profiles.HealthCheck)

	// File exchange routes, one set per bucket
	mux.HandleFunc("POST /{bucket}/upload", files.Upload)
	mux.HandleFunc("GET /{bucket}/list", files.List)
	mux.HandleFunc("GET /{bucket}/download/{path...}", files.Download)

	// Principal introspection for the client UI
	mux.HandleFunc("GET /profiles/me", profiles.Me)

	return mux
}
