// Package http serves the ledger's JSON API, health probes, metrics and the
// change feed.
package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	applog "tiffin/internal/log"
	"tiffin/internal/metrics"
	"tiffin/internal/middleware/ratelimit"
	"tiffin/internal/middleware/security"
	"tiffin/internal/services"
	"tiffin/internal/websocket"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the server's collaborators. Hub and Metrics may be nil.
type Options struct {
	Service            *services.OrderService
	Store              Pinger
	Hub                *websocket.Hub
	Metrics            *metrics.Metrics
	Logger             *applog.Logger
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	svc     *services.OrderService
	store   Pinger
	hub     *websocket.Hub
	metrics *metrics.Metrics
	limiter *ratelimit.Limiter
	ips     *security.ClientIPResolver
	origins []string

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	ips := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := ips.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err.Error())
		}
	}

	s := &Server{
		svc:     opts.Service,
		store:   opts.Store,
		hub:     opts.Hub,
		metrics: opts.Metrics,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		ips:     ips,
		origins: opts.CORSAllowedOrigins,
	}

	r := mux.NewRouter()
	s.registerRoutes(r)
	r.Use(s.accessLog)

	var handler http.Handler = r
	handler = s.limiter.Middleware(s.ips.ClientIP, s.handleRateLimited)(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = newCORS(opts.CORSAllowedOrigins).Handler(handler)
	handler = applog.RequestIDMiddleware(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

func (s *Server) registerRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	if s.hub != nil {
		r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/members", s.handleListMembers).Methods(http.MethodGet)
	api.HandleFunc("/members", s.handleAddMember).Methods(http.MethodPost)
	api.HandleFunc("/members/{id}", s.handleRemoveMember).Methods(http.MethodDelete)

	api.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.handleSaveOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{date}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleDeleteOrder).Methods(http.MethodDelete)

	api.HandleFunc("/split", s.handleSplit).Methods(http.MethodPost)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
}

func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", applog.RequestIDHeader},
		ExposedHeaders: []string{applog.RequestIDHeader},
	})
}

// Shutdown gracefully shuts down the server and its background routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		if s.hub != nil {
			s.hub.Close()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
