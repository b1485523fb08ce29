package web

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and handlers.
// A nil static FS in h is replaced by the embedded kiosk page.
func NewServer(addr string, h *Handlers) *Server {
	if h.staticFS == nil {
		subFS, err := fs.Sub(staticFiles, "static")
		if err != nil {
			log.Fatalf("web: failed to sub static fs: %v", err)
		}
		h.staticFS = subFS
	}
	return &Server{addr: addr, handlers: h}
}

// Router returns an http.Handler with all routes registered.
func (s *Server) Router() http.Handler {
	h := s.handlers
	r := mux.NewRouter()

	r.HandleFunc("/tap", h.HandleTap).Methods("POST")
	r.HandleFunc("/action", h.HandleAction).Methods("POST")
	r.HandleFunc("/status", h.HandleStatus).Methods("GET")
	r.HandleFunc("/status/stream", h.HandleStatusStream).Methods("GET")
	r.HandleFunc("/strip.jpg", h.HandleStrip).Methods("GET")
	r.HandleFunc("/strips", h.HandleStrips).Methods("GET")
	r.HandleFunc("/config", h.HandleConfig).Methods("GET")
	r.HandleFunc("/ws", h.HandleWebSocket).Methods("GET")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))
	r.HandleFunc("/", h.ServeIndex).Methods("GET")

	return r
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
