package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"deaddrop/internal/blobstore"
	"deaddrop/internal/config"
	"deaddrop/internal/store"
)

const (
	adminTokenEnvKey  = "DEADDROP_ADMIN_TOKEN"
	allowRemoteEnvKey = "DEADDROP_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server wraps HTTP handlers for the deaddrop API.
type Server struct {
	addr          string
	store         store.DropStore
	service       *DropService
	logger        *slog.Logger
	adminToken    string
	attempts      *attemptLimiter
	dbPath        string
	schemaVersion int
	maxUpload     int64
	version       string
}

// New creates a new server instance.
func New(addr string, dropStore store.DropStore, blobs blobstore.CarrierStore, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		addr:       addr,
		store:      dropStore,
		service:    NewDropService(dropStore, blobs, cfg.Drops, logger),
		logger:     logger,
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
		attempts: newAttemptLimiter(
			cfg.Attempts.MaxFailures,
			time.Duration(cfg.Attempts.WindowSeconds)*time.Second,
			time.Duration(cfg.Attempts.BlockSeconds)*time.Second),
		dbPath:    cfg.DBPath,
		maxUpload: cfg.Drops.MaxUploadBytes,
	}

	if versioned, ok := dropStore.(interface{ SchemaVersion() (int, error) }); ok {
		if version, err := versioned.SchemaVersion(); err == nil {
			srv.schemaVersion = version
		}
	}

	return srv
}

// SetVersion records the build version reported by /v1/info.
func (s *Server) SetVersion(version string) {
	s.version = version
}

// Service exposes the drop service, for the sweeper goroutine.
func (s *Server) Service() *DropService {
	return s.service
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// requireAdmin gates the admin surface. With no token configured the
// admin routes only answer loopback-bound deployments guarded by
// ListenAddr, so an empty token means "trust the listen address".
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.adminToken == "" {
		return true
	}
	if r.Header.Get("X-Admin-Token") == s.adminToken {
		return true
	}
	s.writeErrorReq(w, r, http.StatusForbidden, forbidden(fmt.Errorf("admin token required")))
	return false
}

func requestClientIP(r *http.Request) string {
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}

func requestMeta(r *http.Request) RequestMeta {
	return RequestMeta{
		IPAddress: requestClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
