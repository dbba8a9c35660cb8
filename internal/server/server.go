package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hellofresh/health-go/v5"

	"docvault/internal/blobstore"
	"docvault/internal/catalog"
)

const (
	readHeaderTimeout  = 5 * time.Second
	readTimeout        = 2 * time.Minute
	writeTimeout       = 5 * time.Minute
	idleTimeout        = 60 * time.Second
	shutdownTimeout    = 10 * time.Second
	healthCheckTimeout = 2 * time.Second

	defaultOpTimeout          = 30 * time.Second
	defaultMultipartMaxMemory = 1 << 20
	multipartOverheadBytes    = 1 << 20

	loginMaxFailures = 5
	loginWindow      = 5 * time.Minute
	loginBlockedFor  = 15 * time.Minute
)

// Options configures a Server.
type Options struct {
	// Sessions gates every document route behind the shared password. Nil
	// disables the gate.
	Sessions *SessionService
	// Ping backs the /health check.
	Ping func(ctx context.Context) error
	// NoticeKey signs notice cookies.
	NoticeKey          []byte
	OpTimeout          time.Duration
	MultipartMaxMemory int64
	Version            string
	Logger             *slog.Logger
}

// Server is the browser-facing gateway to the document catalog.
type Server struct {
	addr               string
	catalog            *catalog.Service
	blobs              blobstore.BlobStore
	sessions           *SessionService
	notices            noticeCodec
	health             http.Handler
	pages              map[string]*template.Template
	opTimeout          time.Duration
	multipartMaxMemory int64
	loginLimiter       *loginRateLimiter
	logger             *slog.Logger
}

// New creates a new server instance.
func New(addr string, cat *catalog.Service, blobs blobstore.BlobStore, opts Options) (*Server, error) {
	if cat == nil || blobs == nil {
		return nil, fmt.Errorf("catalog and blob store are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opTimeout := opts.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	multipartMaxMemory := opts.MultipartMaxMemory
	if multipartMaxMemory <= 0 {
		multipartMaxMemory = defaultMultipartMaxMemory
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	healthHandler, err := newHealthHandler(opts.Version, opts.Ping)
	if err != nil {
		return nil, err
	}

	return &Server{
		addr:               addr,
		catalog:            cat,
		blobs:              blobs,
		sessions:           opts.Sessions,
		notices:            noticeCodec{key: opts.NoticeKey},
		health:             healthHandler,
		pages:              pages,
		opTimeout:          opTimeout,
		multipartMaxMemory: multipartMaxMemory,
		loginLimiter:       newLoginRateLimiter(loginMaxFailures, loginWindow, loginBlockedFor),
		logger:             logger,
	}, nil
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.routes())
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(s.log().Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log().Info("starting server", "addr", s.addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// storageContext bounds one storage call by the configured timeout.
func (s *Server) storageContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opTimeout)
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func newHealthHandler(version string, ping func(ctx context.Context) error) (http.Handler, error) {
	if version == "" {
		version = "dev"
	}
	h, err := health.New(
		health.WithComponent(health.Component{
			Name:    "docvault",
			Version: version,
		}),
		health.WithSystemInfo(),
	)
	if err != nil {
		return nil, err
	}
	if ping != nil {
		if err := h.Register(health.Config{
			Name:    "sqlite",
			Timeout: healthCheckTimeout,
			Check:   ping,
		}); err != nil {
			return nil, err
		}
	}
	return h.Handler(), nil
}

const allowRemoteEnvKey = "DOCVAULT_ALLOW_REMOTE"

// ListenAddr validates a listen address. Binding beyond loopback requires
// DOCVAULT_ALLOW_REMOTE=true.
func ListenAddr(listen string) (string, error) {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return "", fmt.Errorf("listen address is required")
	}
	host, _, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	if !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}
	return listen, nil
}

func isAllowedListenHost(host string) bool {
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
