// Package server exposes plugin previews and scheduled frames over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"
	"github.com/rs/cors"

	"github.com/mule-ai/inkdash/internal/config"
	"github.com/mule-ai/inkdash/internal/frontend"
	"github.com/mule-ai/inkdash/internal/scheduler"
	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/i18n"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/preset"
	"github.com/mule-ai/inkdash/pkg/render"
	"github.com/mule-ai/inkdash/pkg/types"
)

const maxSettingsSize = 1 << 20

type Options struct {
	Plugins *plugin.Registry
	Device  render.Device
	Presets func() *preset.Registry
	// Runner serves scheduled frames. Frame routes answer 404 without it.
	Runner *scheduler.Runner
	// Instances looks up a configured instance for on-demand refreshes.
	Instances      func(name string) (config.Instance, bool)
	AllowedOrigins []string
	RenderTimeout  time.Duration
}

type Server struct {
	opts   Options
	events *Hub
	logger logr.Logger
}

func New(opts Options, l logr.Logger) *Server {
	if opts.Presets == nil {
		builtin := preset.Builtin()
		opts.Presets = func() *preset.Registry { return builtin }
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = scheduler.DefaultRenderTimeout
	}
	s := &Server{opts: opts, events: NewHub(l), logger: l.WithName("server")}
	if opts.Runner != nil {
		opts.Runner.OnFrame(s.events.PublishFrame)
	}
	return s
}

// Events returns the hub behind /api/events. Run starts it; callers that
// only mount Handler start it themselves.
func (s *Server) Events() *Hub {
	return s.events
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(RecoveryMiddleware(s.logger))

	r.Get("/api/plugins", s.listPlugins)
	r.Get("/api/presets", s.listPresets)
	r.Post("/api/render/{plugin}", s.renderPlugin)
	r.Get("/api/frames", s.listFrames)
	r.Get("/api/frames/{instance}", s.getFrame)
	r.Post("/api/frames/{instance}/refresh", s.refreshFrame)
	r.Handle("/api/events", newEventsHandler(s.events, s.opts.AllowedOrigins, s.logger))
	r.Get("/*", frontend.ServeStatic().ServeHTTP)

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	})
	return c.Handler(r)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.events.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) lang() string {
	return render.Language(s.opts.Device)
}

func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Plugins.Templates())
}

func (s *Server) listPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"presets": s.opts.Presets().Names()})
}

func (s *Server) renderPlugin(w http.ResponseWriter, r *http.Request) {
	p, err := s.opts.Plugins.Get(chi.URLParam(r, "plugin"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	settings := types.Settings{}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSettingsSize))
	if err == nil && len(bytes.TrimSpace(body)) > 0 {
		err = json.Unmarshal(body, &settings)
	}
	if err != nil {
		s.logger.Error(err, "Invalid settings body", "request_id", RequestIDFrom(r.Context()))
		s.writeError(w, r, dasherr.Configuration(i18n.InvalidSettings))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RenderTimeout)
	defer cancel()
	l := s.logger.WithValues("request_id", RequestIDFrom(r.Context()))
	img, err := plugin.Generate(ctx, p, settings, s.opts.Device, l)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		s.writeError(w, r, dasherr.Render(i18n.RenderFailed, err))
		return
	}
	writePNG(w, buf.Bytes())
}

func (s *Server) listFrames(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if s.opts.Runner != nil {
		names = s.opts.Runner.Frames().Names()
	}
	writeJSON(w, http.StatusOK, map[string][]string{"frames": names})
}

func (s *Server) getFrame(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "instance")
	if s.opts.Runner == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "frame not found"})
		return
	}
	frame, ok := s.opts.Runner.Frames().Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "frame not found"})
		return
	}
	w.Header().Set("Last-Modified", frame.RenderedAt.UTC().Format(http.TimeFormat))
	w.Header().Set("X-Frame-Run", frame.RunID)
	writePNG(w, frame.PNG)
}

func (s *Server) refreshFrame(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "instance")
	if s.opts.Runner == nil || s.opts.Instances == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "instance not found"})
		return
	}
	inst, ok := s.opts.Instances(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "instance not found"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RenderTimeout)
	defer cancel()
	frame, err := s.opts.Runner.RunNow(ctx, inst)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Frame-Run", frame.RunID)
	writePNG(w, frame.PNG)
}

// StatusFor maps an error kind to the HTTP status reported to clients.
func StatusFor(err error) int {
	switch dasherr.KindOf(err) {
	case dasherr.KindConfiguration:
		return http.StatusBadRequest
	case dasherr.KindFetch:
		return http.StatusBadGateway
	case dasherr.KindParse:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	err = dasherr.Wrap(err)
	writeJSON(w, StatusFor(err), ErrorResponse{
		Error: dasherr.Message(err, s.lang()),
		Kind:  dasherr.KindOf(err).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
