package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/hashicorp/hcl/v2"
	"github.com/oarkflow/blockstpl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve compile requests and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(a.metrics.PrometheusCollectors()...)

			srv := &http.Server{
				Addr:              addr,
				Handler:           newHandler(a, reg),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			a.log.Info("Listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8087", "address to listen on")
	return cmd
}

type handler struct {
	log    *zap.Logger
	app    *app
	engine *blockstpl.Engine
}

func newHandler(a *app, reg *prometheus.Registry) http.Handler {
	h := &handler{log: a.log, app: a, engine: a.engine}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", h.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Post("/compile", h.handleCompile)
	return r
}

type statusResponse struct {
	TemplateRoot string `json:"template_root"`
	CacheRoot    string `json:"cache_root"`
	DevMode      bool   `json:"dev_mode"`
	Strict       bool   `json:"strict"`
	Templates    int    `json:"templates"`
	Stale        int    `json:"stale"`
}

// handleStatus is the HTTP handler for the GET /status route.
func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	files, err := h.engine.Templates(h.app.cfg.Extensions...)
	if err != nil {
		h.error(w, http.StatusInternalServerError, err)
		return
	}
	resp := statusResponse{
		TemplateRoot: h.engine.TemplateRoot(),
		CacheRoot:    h.engine.CacheRoot(),
		DevMode:      h.app.cfg.DevMode,
		Strict:       h.app.cfg.Strict,
		Templates:    len(files),
	}
	for _, f := range files {
		if needs, err := h.engine.NeedsCompile(f); err == nil && needs {
			resp.Stale++
		}
	}
	h.respond(w, http.StatusOK, resp)
}

type compileResponse struct {
	Source      string   `json:"source"`
	Artifact    string   `json:"artifact"`
	Compiled    bool     `json:"compiled"`
	Size        int64    `json:"size"`
	Variables   []string `json:"variables"`
	HasLayout   bool     `json:"has_layout"`
	Markers     int      `json:"markers"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// handleCompile is the HTTP handler for the POST /compile?path=&force= route.
func (h *handler) handleCompile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.error(w, http.StatusBadRequest, errors.New("missing path parameter"))
		return
	}

	var (
		res *blockstpl.Result
		err error
	)
	if r.URL.Query().Get("force") == "true" {
		res, err = h.engine.CompileFile(r.Context(), path)
	} else {
		res, err = h.engine.Prepare(r.Context(), path)
	}
	if err != nil {
		var diags hcl.Diagnostics
		switch {
		case errors.Is(err, blockstpl.ErrMissingSource):
			h.error(w, http.StatusNotFound, err)
		case errors.As(err, &diags):
			h.error(w, http.StatusUnprocessableEntity, err)
		default:
			h.error(w, http.StatusInternalServerError, err)
		}
		return
	}

	resp := compileResponse{
		Source:    res.Source,
		Artifact:  res.Artifact,
		Compiled:  res.Compiled,
		Size:      res.Size,
		Variables: res.Variables,
		HasLayout: res.HasLayout,
		Markers:   res.Markers,
	}
	for _, d := range res.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, d.Error())
	}
	h.respond(w, http.StatusOK, resp)
}

func (h *handler) respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("Failed to encode response", zap.Error(err))
	}
}

func (h *handler) error(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		h.log.Error("Request failed", zap.Error(err))
	}
	h.respond(w, code, map[string]string{"error": err.Error()})
}
