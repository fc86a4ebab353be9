package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/metrics"
	"github.com/JakeFAU/creative-intel/internal/queue"
)

// Engine runs pipeline requests and reports the latest run state.
type Engine interface {
	Run(ctx context.Context, req creative.Request) (creative.RunSummary, error)
	Status(ctx context.Context) (creative.RunState, error)
}

// Submitter queues a request for a background worker.
type Submitter interface {
	Submit(req creative.Request) error
}

// Config tunes the HTTP layer.
type Config struct {
	// StatusTimeout bounds the health and status handlers.
	StatusTimeout time.Duration
}

// Server wires HTTP handlers to the dispatcher and the engine.
type Server struct {
	router    chi.Router
	engine    Engine
	submitter Submitter
	ids       creative.IDGenerator
	clock     creative.Clock
	cfg       Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	engine Engine,
	submitter Submitter,
	ids creative.IDGenerator,
	clock creative.Clock,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 5 * time.Second
	}
	s := &Server{
		engine:    engine,
		submitter: submitter,
		ids:       ids,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	timeout := timeoutMiddleware(cfg.StatusTimeout)
	r.With(timeout).Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/webhook", func(r chi.Router) {
		r.With(timeout).Get("/status", s.status)
		r.Post("/trigger-scrape", s.triggerScrape)
		r.Post("/trigger-analysis", s.triggerAnalysis)
		r.Post("/trigger-rewrite", s.triggerRewrite)
		r.Post("/trigger-full-pipeline", s.triggerFullPipeline)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.clock.Now().Format(time.RFC3339),
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	state, err := s.engine.Status(r.Context())
	if err != nil {
		s.logger.Error("load run state failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "run state unavailable")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// dispatch queues req, or runs it inline when the caller asked to wait.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req creative.Request, message string) {
	id, err := s.ids.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate run id: "+err.Error())
		return
	}
	req.RunID = id
	req.Source = "webhook"
	req.Submitted = s.clock.Now()

	if wantsWait(r) {
		summary, err := s.engine.Run(r.Context(), req)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":  err.Error(),
				"run_id": id,
			})
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	if err := s.submitter.Submit(req); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		s.logger.Warn("run not queued", zap.String("run_id", id), zap.Error(err))
		writeError(w, status, err.Error())
		return
	}
	s.logger.Info("run queued", zap.String("run_id", id), zap.String("action", string(req.Action)))
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "accepted",
		"message":   message,
		"run_id":    id,
		"timestamp": req.Submitted.Format(time.RFC3339),
	})
}

func wantsWait(r *http.Request) bool {
	switch r.URL.Query().Get("wait") {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
