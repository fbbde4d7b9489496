// Package server wires the HTTP listener: router, Basic-auth/ACL
// middleware, request-ID and logging middleware, and the /metrics endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/zombified/reliquary/internal/catalog"
	"github.com/zombified/reliquary/internal/config"
	"github.com/zombified/reliquary/internal/debrepo"
	"github.com/zombified/reliquary/internal/download"
	"github.com/zombified/reliquary/internal/fetch"
	"github.com/zombified/reliquary/internal/metrics"
	"github.com/zombified/reliquary/internal/protocol"
)

// cacheStatsInterval is how often the background goroutine refreshes the
// reliquary_cache_size_bytes/reliquary_cached_artifacts_total gauges.
const cacheStatsInterval = 30 * time.Second

// Server is the Reliquary HTTP server.
type Server struct {
	cfg       *config.Config
	db        *catalog.DB
	svc       *protocol.Service
	logger    *slog.Logger
	http      *http.Server
	creds     []config.Credential
	statsStop chan struct{}
}

// New opens the catalog, wires the protocol Service, and builds a Server
// ready to Start. The caller owns cfg.Validate().
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	driver := cfg.Database.Driver
	dsn := cfg.Database.Path
	if driver == "postgres" {
		dsn = cfg.Database.URL
	}
	db, err := catalog.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	gen := debrepo.New(db)
	fetcher := fetch.New(db, cfg.Reliquary.Location)
	emitter := download.New(cfg.Reliquary.Location, cfg.Reliquary.XSendfileEnabled, download.XSendfileFrontend(cfg.Reliquary.XSendfileFrontend))
	svc := protocol.NewService(db, cfg.Reliquary.Location, cfg.BaseURL, gen, fetcher, emitter, logger)

	return &Server{
		cfg:       cfg,
		db:        db,
		svc:       svc,
		logger:    logger,
		creds:     cfg.ParseCredentials(),
		statsStop: make(chan struct{}),
	}, nil
}

// router builds the chi router: request ID, logging, active-requests and
// auth/ACL middleware, the protocol shims, and /metrics.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(s.LoggerMiddleware)
	r.Use(ActiveRequestsMiddleware)
	r.Use(s.authMiddleware)

	s.svc.Mount(r)

	r.Handle("/metrics", metrics.Handler())

	return r
}

// Start runs the HTTP server until the process is asked to stop.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting server",
		"listen", s.cfg.Listen,
		"base_url", s.cfg.BaseURL,
		"location", s.cfg.Reliquary.Location,
		"database_driver", s.cfg.Database.Driver)

	go s.reportCacheStats()

	return s.http.ListenAndServe()
}

// reportCacheStats periodically refreshes the cache-size/artifact-count
// gauges from the catalog until Shutdown closes statsStop.
func (s *Server) reportCacheStats() {
	ticker := time.NewTicker(cacheStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			count, size, err := s.db.RelicStats()
			if err != nil {
				s.logger.Warn("refreshing cache stats", "error", err)
				continue
			}
			metrics.UpdateCacheStats(size, count)
		case <-s.statsStop:
			return
		}
	}
}

// Shutdown gracefully stops the HTTP server and closes the catalog.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	close(s.statsStop)

	var errs []error
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("catalog close: %w", err))
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// authMiddleware enforces the ACL of the original zombified/reliquary
// Root.__acl__: Everyone may "view" (GET/HEAD), any authenticated user may
// "put" (PUT), and only a user carrying the "admin" group bypasses both
// checks. Credentials come from reliquary.auth
// ("user:password[:group1,group2,...]" entries), per config.ParseCredentials.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok {
			s.denyBasicAuth(w)
			return
		}
		cred, ok := s.authenticate(username, password)
		if !ok {
			s.denyBasicAuth(w)
			return
		}
		if hasGroup(cred, "admin") || r.Method == http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}
		protocol.JSONError(w, http.StatusForbidden, "insufficient permissions")
	})
}

func (s *Server) authenticate(username, password string) (config.Credential, bool) {
	for _, c := range s.creds {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(username)) && c.Password == password {
			return c, true
		}
	}
	return config.Credential{}, false
}

func hasGroup(c config.Credential, group string) bool {
	for _, g := range c.Groups {
		if g == group {
			return true
		}
	}
	return false
}

func (s *Server) denyBasicAuth(w http.ResponseWriter) {
	realm := s.cfg.Reliquary.Realm
	if realm == "" {
		realm = "Reliquary"
	}
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
	protocol.JSONError(w, http.StatusUnauthorized, "authentication required")
}
