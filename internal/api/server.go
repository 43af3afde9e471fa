// Package api serves city rankings over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/metroscore/internal/config"
	"github.com/sells-group/metroscore/internal/scoring"
	"github.com/sells-group/metroscore/internal/store"
)

// Server holds the dependencies shared by every handler.
type Server struct {
	store  store.Store
	engine *scoring.Engine
	cfg    config.ServerConfig
	log    *zap.Logger
}

// New creates a Server. A nil engine uses the scoring defaults.
func New(st store.Store, engine *scoring.Engine, cfg config.ServerConfig) *Server {
	if engine == nil {
		engine = scoring.NewEngine(scoring.DefaultConfig())
	}
	return &Server{
		store:  st,
		engine: engine,
		cfg:    cfg,
		log:    zap.L().With(zap.String("component", "api")),
	}
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	if s.cfg.RateLimit > 0 {
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics", s.handleMetrics)
		r.Get("/cities", s.handleListCities)
		r.Get("/cities/{id}", s.handleGetCity)
		r.Post("/rank", s.handleRank)
		r.Get("/rankings/{id}", s.handleGetRanking)
	})

	return r
}

// rateLimit rejects requests with 429 once the process-wide bucket is empty.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps store failures onto HTTP statuses. Internal details
// are logged, not returned.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	reqID := middleware.GetReqID(r.Context())
	s.log.Error("store request failed", zap.Error(err), zap.String("request_id", reqID))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", RequestID: reqID})
}
