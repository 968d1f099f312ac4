package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"logowatch/internal/config"
	"logowatch/internal/logging"
	"logowatch/internal/store"
)

// Server exposes the dashboard and the JSON API over HTTP.
type Server struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	cfg    *config.Config

	listener net.Listener
	server   *http.Server
}

// NewServer builds the dashboard server. Returns nil when no bind address is
// configured.
func NewServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *Server {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.Bind)
	if bind == "" {
		return nil
	}

	srv := &Server{
		bind:   bind,
		logger: logger,
		daemon: d,
		cfg:    cfg,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/", srv.handleDashboard)
	router.Handle("/screenshots/*", http.StripPrefix("/screenshots/",
		http.FileServer(http.Dir(cfg.ScreenshotsDir()))))
	router.Get("/api/detections", srv.handleDetections)
	router.Get("/api/status", srv.handleStatus)
	router.Get("/healthz", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start begins serving. The server shuts down when ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("dashboard listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address, useful when the bind port is 0.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	indexPath := filepath.Join(s.cfg.Paths.ReportDir, "index.html")
	http.ServeFile(w, r, indexPath)
}

type detectionPayload struct {
	Streamer    string  `json:"streamer"`
	DisplayName string  `json:"display_name,omitempty"`
	Title       string  `json:"title,omitempty"`
	Game        string  `json:"game,omitempty"`
	Viewers     int     `json:"viewers"`
	CheckedAt   string  `json:"checked_at"`
	Confidence  float64 `json:"confidence"`
	Detected    bool    `json:"detected"`
	Screenshot  string  `json:"screenshot,omitempty"`
	StartedAt   string  `json:"started_at,omitempty"`
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.daemon.store.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	payload := make([]detectionPayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, toDetectionPayload(record))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"detections": payload})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status()
	stats, err := s.daemon.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	payload := map[string]any{
		"running":        status.Running,
		"total_checks":   stats.Total,
		"total_detected": stats.Detected,
		"streamers":      stats.Streamers,
		"last_error":     status.LastError,
		"last_pass_at":   "",
		"last_pass_ms":   status.LastDuration.Milliseconds(),
		"last_checked":   status.LastSummary.Checked,
		"last_analyzed":  status.LastSummary.Analyzed,
		"last_detected":  status.LastSummary.Detected,
		"roster":         s.cfg.Monitor.Streamers,
		"interval_hours": s.cfg.Monitor.CheckIntervalHours,
		"retention_days": s.cfg.Retention.Days,
		"database":       status.DBPath,
	}
	if !status.LastPassAt.IsZero() {
		payload["last_pass_at"] = status.LastPassAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func toDetectionPayload(record store.Record) detectionPayload {
	payload := detectionPayload{
		Streamer:    record.Streamer,
		DisplayName: record.DisplayName,
		Title:       record.Title,
		Game:        record.Game,
		Viewers:     record.Viewers,
		CheckedAt:   record.CheckedAt.UTC().Format(time.RFC3339),
		Confidence:  record.Confidence,
		Detected:    record.Detected,
	}
	if record.Screenshot != "" {
		payload.Screenshot = "/screenshots/" + filepath.Base(record.Screenshot)
	}
	if record.StartedAt != nil {
		payload.StartedAt = record.StartedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response failed", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
