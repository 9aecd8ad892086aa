package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/repository"
	"github.com/rocketscienceinc/gameroom-backend/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type sessionReader interface {
	Get(ctx context.Context, kind entity.Kind, id string) (usecase.Session, error)
}

type resultsReader interface {
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]repository.GameResult, error)
}

type Server struct {
	logger   *slog.Logger
	sessions sessionReader
	results  resultsReader
	gatherer prometheus.Gatherer
}

// New - builds the HTTP surface. gatherer may be nil, in which case /metrics is not served.
func New(logger *slog.Logger, sessions sessionReader, results resultsReader, gatherer prometheus.Gatherer) *Server {
	return &Server{
		logger:   logger.With("component", "rest"),
		sessions: sessions,
		results:  results,
		gatherer: gatherer,
	}
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.handlePing)
	mux.HandleFunc("GET /sessions/{kind}/{id}", that.handleSession)
	mux.HandleFunc("GET /players/{id}/results", that.handleResults)

	if that.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(that.gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

// Start - starts HTTP server and stops it when ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleSession serves the current record, used by clients polling without a feed.
func (that *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	kind, err := entity.ParseKind(r.PathValue("kind"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	session, err := that.sessions.Get(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, session)
}

func (that *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	var limit int
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			that.writeError(w, fmt.Errorf("%w: limit must be a positive number", apperror.ErrBadPayload))
			return
		}

		limit = parsed
	}

	results, err := that.results.ListByPlayer(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, results)
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func (that *Server) writeError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)

	that.writeJSON(w, statusOf(kind), map[string]string{
		"error": err.Error(),
		"code":  string(kind),
	})
}

func statusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindTurnViolation, apperror.KindIllegalMove:
		return http.StatusUnprocessableEntity
	case apperror.KindStateConflict:
		return http.StatusConflict
	case apperror.KindPersistence:
		return http.StatusServiceUnavailable
	case apperror.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
