// Package web implements the HTTP surface of stashd: the login flow and the
// thin controllers that translate requests into storage operations.
//
// The package deliberately contains no path or privilege logic of its own -
// every decision that matters is delegated to pkg/storage, so the safety
// guarantees hold no matter what the transport sends.
package web

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stashbox/stashd/internal/logger"
	"github.com/stashbox/stashd/pkg/session"
	"github.com/stashbox/stashd/pkg/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// sessionCookie is the name of the session token cookie.
const sessionCookie = "stashd_session"

// ServerConfig configures the web server.
type ServerConfig struct {
	// ListenAddr is the address to bind, e.g. ":9870".
	ListenAddr string

	// Password is the shared secret gating login. Only its SHA-256 digest
	// is retained.
	Password string

	// MaxUploadBytes caps a single upload request body.
	MaxUploadBytes int64

	// ReadTimeout, WriteTimeout, IdleTimeout configure the http.Server.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Server is the stashd HTTP server.
type Server struct {
	store    *storage.Store
	sessions session.Store

	passwordHash []byte
	maxUpload    int64

	templates *template.Template

	server          *http.Server
	shutdownTimeout time.Duration
	shutdownOnce    sync.Once
}

// New creates the web server and wires up all routes.
//
// Parameters:
//   - cfg: Server configuration
//   - store: Storage operation layer
//   - sessions: Session token store
//
// Returns:
//   - *Server: Configured but not yet started server
//   - error: Template parsing error
func New(cfg ServerConfig, store *storage.Store, sessions session.Store) (*Server, error) {
	sum := sha256.Sum256([]byte(cfg.Password))

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatSize": formatSize,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		store:           store,
		sessions:        sessions,
		passwordHash:    []byte(hex.EncodeToString(sum[:])),
		maxUpload:       cfg.MaxUploadBytes,
		templates:       tmpl,
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/files", s.handleList)
		r.Get("/files/*", s.handleList)
		r.Get("/download/*", s.handleDownload)
		r.Get("/download-folder/*", s.handleDownloadFolder)
		r.Post("/upload", s.handleUpload)
		r.Post("/create-folder", s.handleCreateFolder)
		r.Get("/delete/*", s.handleDelete)
	})

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

// Handler returns the server's root handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until the context is cancelled or
// the server fails.
//
// When the context is cancelled, Start initiates graceful shutdown bounded
// by the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Web server listening on %s", s.server.Addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Web server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("web server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("web server shutdown error: %w", err)
			logger.Error("Web server shutdown error: %v", err)
		} else {
			logger.Info("Web server stopped gracefully")
		}
	})
	return shutdownErr
}

// requestLogger logs each request at debug level with its duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s -> %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// formatSize renders a byte count for the listing page.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
