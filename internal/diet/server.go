package diet

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

// Server handles HTTP requests for the diet tracker API
type Server struct {
	service   *Service
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Diet Tracker"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Scan pipeline
	s.mux.HandleFunc("POST /api/scan/capture", s.requireAuth(s.handleCaptureScan))
	s.mux.HandleFunc("GET /api/scan/candidates", s.requireAuth(s.handleListCandidates))
	s.mux.HandleFunc("POST /api/scan/candidates/approve-all", s.requireAuth(s.handleApproveAll))
	s.mux.HandleFunc("POST /api/scan/candidates/approve", s.requireAuth(s.handleApprove))
	s.mux.HandleFunc("POST /api/scan/candidates/dismiss", s.requireAuth(s.handleDismiss))
	s.mux.HandleFunc("POST /api/scan/candidates/edit", s.requireAuth(s.handleEdit))
	s.mux.HandleFunc("POST /api/scan", s.requireAuth(s.handleScan))

	// Item ledger
	s.mux.HandleFunc("DELETE /api/items/{id}", s.requireAuth(s.handleDeleteItem))
	s.mux.HandleFunc("GET /api/items", s.requireAuth(s.handleListItems))
	s.mux.HandleFunc("POST /api/items", s.requireAuth(s.handleAddItem))

	// Targets, budget, progress
	s.mux.HandleFunc("GET /api/targets", s.requireAuth(s.handleGetTargets))
	s.mux.HandleFunc("PUT /api/targets", s.requireAuth(s.handleSetTargets))
	s.mux.HandleFunc("GET /api/budget/status", s.requireAuth(s.handleBudgetStatus))
	s.mux.HandleFunc("GET /api/budget", s.requireAuth(s.handleGetBudget))
	s.mux.HandleFunc("PUT /api/budget", s.requireAuth(s.handleSetBudget))
	s.mux.HandleFunc("GET /api/progress", s.requireAuth(s.handleProgress))

	// Notifications
	s.mux.HandleFunc("POST /api/notifications/{id}/read", s.requireAuth(s.handleMarkNotificationRead))
	s.mux.HandleFunc("GET /api/notifications", s.requireAuth(s.handleListNotifications))
	s.mux.HandleFunc("DELETE /api/notifications", s.requireAuth(s.handleClearNotifications))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
