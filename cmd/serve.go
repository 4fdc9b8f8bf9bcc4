package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brand-media/internal/model"
	"github.com/sells-group/brand-media/internal/pipeline"
	"github.com/sells-group/brand-media/internal/store"
)

var servePort int

// Run states reported by the server.
const (
	runRunning   = "running"
	runSucceeded = "succeeded"
	runFailed    = "failed"
)

// brandRunner is the part of the pipeline the server drives.
type brandRunner interface {
	RunWithID(ctx context.Context, runID string, in model.BrandInput) (*model.FinalResult, error)
	Namespace(runID string) string
}

// runStatus tracks one run started through the server.
type runStatus struct {
	ID                   string     `json:"id"`
	Status               string     `json:"status"`
	BrandName            string     `json:"brandName"`
	StartedAt            time.Time  `json:"startedAt"`
	FinishedAt           *time.Time `json:"finishedAt,omitempty"`
	TotalMediaDownloaded int        `json:"totalMediaDownloaded"`
	ArchiveKey           string     `json:"archiveKey,omitempty"`
	Error                string     `json:"error,omitempty"`
}

// server accepts brand runs over HTTP and serves their stored outputs.
type server struct {
	runner   brandRunner
	store    store.Store
	gatherer prometheus.Gatherer
	baseCtx  context.Context
	newID    func() string
	now      func() time.Time

	mu   sync.RWMutex
	runs map[string]*runStatus
	wg   sync.WaitGroup
}

func newServer(ctx context.Context, runner brandRunner, st store.Store, gatherer prometheus.Gatherer) *server {
	return &server{
		runner:   runner,
		store:    st,
		gatherer: gatherer,
		baseCtx:  ctx,
		newID:    pipeline.NewRunID,
		now:      time.Now,
		runs:     make(map[string]*runStatus),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleStatus)
		r.Get("/{id}/result", s.handleResult)
		r.Get("/{id}/archive", s.handleArchive)
	})
	return r
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	var in model.BrandInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateInput(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st := &runStatus{
		ID:        s.newID(),
		Status:    runRunning,
		BrandName: in.Brand(),
		StartedAt: s.now().UTC(),
	}
	s.mu.Lock()
	s.runs[st.ID] = st
	s.mu.Unlock()

	s.wg.Add(1)
	go s.execute(st.ID, in)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     st.ID,
		"status": runRunning,
	})
}

// execute runs in the background under the server's base context.
func (s *server) execute(id string, in model.BrandInput) {
	defer s.wg.Done()

	result, err := s.runner.RunWithID(s.baseCtx, id, in)
	finished := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.runs[id]
	st.FinishedAt = &finished
	if err != nil {
		st.Status = runFailed
		st.Error = err.Error()
		zap.L().Error("run failed", zap.String("run_id", id), zap.Error(err))
		return
	}
	st.Status = runSucceeded
	st.TotalMediaDownloaded = result.TotalMediaDownloaded
	st.ArchiveKey = result.ArchiveKey
	zap.L().Info("run complete",
		zap.String("run_id", id),
		zap.String("brand", result.BrandName),
		zap.Int("media_downloaded", result.TotalMediaDownloaded),
	)
}

// wait blocks until every background run has returned.
func (s *server) wait() {
	s.wg.Wait()
}

func (s *server) lookup(id string) (runStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.runs[id]
	if !ok {
		return runStatus{}, false
	}
	return *st, true
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]runStatus, 0, len(s.runs))
	for _, st := range s.runs {
		out = append(out, *st)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if st, ok := s.lookup(id); ok {
		writeJSON(w, http.StatusOK, st)
		return
	}

	// Runs from an earlier process are only known through the store.
	result, err := s.loadResult(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load result failed")
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	finished := result.CompletedAt
	writeJSON(w, http.StatusOK, runStatus{
		ID:                   result.RunID,
		Status:               runSucceeded,
		BrandName:            result.BrandName,
		StartedAt:            result.StartedAt,
		FinishedAt:           &finished,
		TotalMediaDownloaded: result.TotalMediaDownloaded,
		ArchiveKey:           result.ArchiveKey,
	})
}

func (s *server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := s.loadResult(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load result failed")
		return
	}
	if result == nil {
		s.writeNotReady(w, id)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := s.loadResult(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load result failed")
		return
	}
	if result == nil {
		s.writeNotReady(w, id)
		return
	}

	rec, err := s.store.GetRecord(r.Context(), s.runner.Namespace(id), result.ArchiveKey)
	if err != nil {
		zap.L().Error("read archive failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "read archive failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.ArchiveKey))
	w.WriteHeader(http.StatusOK)
	w.Write(rec.Data) //nolint:errcheck
}

func (s *server) loadResult(ctx context.Context, id string) (*model.FinalResult, error) {
	result, err := pipeline.LoadResult(ctx, s.store, s.runner.Namespace(id))
	if err != nil {
		zap.L().Error("load result failed", zap.String("run_id", id), zap.Error(err))
		return nil, err
	}
	// A shared namespace holds only the latest run.
	if result != nil && result.RunID != id {
		return nil, nil
	}
	return result, nil
}

// writeNotReady distinguishes a run still in progress from an unknown one.
func (s *server) writeNotReady(w http.ResponseWriter, id string) {
	if st, ok := s.lookup(id); ok {
		if st.Status == runFailed {
			writeError(w, http.StatusConflict, "run failed: "+st.Error)
			return
		}
		writeError(w, http.StatusConflict, "run "+st.Status)
		return
	}
	writeError(w, http.StatusNotFound, "run not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for brand media runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initPipeline(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		var gatherer prometheus.Gatherer
		if cfg.Metrics.Enabled {
			gatherer = env.Registry
		}
		s := newServer(ctx, env.Pipeline, env.Store, gatherer)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		s.wait()
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
