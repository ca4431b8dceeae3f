package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jeannie068/analogplace/pkg/buildinfo"
	"github.com/jeannie068/analogplace/pkg/cache"
	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/pipeline"
)

// maxNetlistBytes bounds the request body size for solve requests.
const maxNetlistBytes = 1 << 20

// serveCommand creates the serve command exposing the solver over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		configPath string
		noCache    bool
		maxTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the solver over HTTP",
		Long: `Expose the solver over HTTP.

POST a netlist as the request body to /solve and receive the placement
as JSON. Solver options are passed as query parameters (seed, quality,
timeout, area_ratio, refresh); format=svg returns a rendering instead.
Results are cached with the same keys the CLI uses, so a shared Redis or
MongoDB backend lets several replicas serve from one cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg, addr, noCache, maxTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML config file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().DurationVar(&maxTimeout, "max-timeout", 5*time.Minute, "upper bound on per-request solve time")

	return cmd
}

// runServe starts the HTTP server and blocks until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, cfg *Config, addr string, noCache bool, maxTimeout time.Duration) error {
	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	s := &server{runner: runner, logger: c.Logger, maxTimeout: maxTimeout}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// server holds the HTTP handler state.
type server struct {
	runner     *pipeline.Runner
	logger     *log.Logger
	maxTimeout time.Duration
}

// routes builds the chi router with middleware and endpoints.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Post("/solve", s.handleSolve)

	return r
}

// logRequests logs each request with method, path, status, and duration.
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(withLogger(r.Context(), s.logger)))
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
		"date":    buildinfo.Date,
	})
}

// solveResponse is the JSON body returned by /solve.
type solveResponse struct {
	Area       int64                       `json:"area"`
	Modules    map[string]*netlist.Module  `json:"modules"`
	Cached     bool                        `json:"cached"`
	Iterations int                         `json:"iterations,omitempty"`
	TimedOut   bool                        `json:"timed_out,omitempty"`
	SolveTime  string                      `json:"solve_time"`
}

// handleSolve parses the posted netlist, solves it, and returns the
// placement as JSON or, with format=svg, as a rendered image.
func (s *server) handleSolve(w http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxNetlistBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}
	if len(body) > maxNetlistBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "netlist larger than 1 MiB")
		return
	}

	nl, err := netlist.Parse(bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts, format, err := s.solveOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Logger = logger
	if err := opts.ValidateForSolve(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	inputHash := cache.Hash(nl.Canonical())
	p, stats, hit, err := s.runner.SolveWithCacheInfo(r.Context(), nl, inputHash, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errors.ErrCodeInvalidInput) || errors.Is(err, errors.ErrCodeViolatesSymmetry) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	if format == pipeline.FormatSVG {
		opts.Formats = []string{pipeline.FormatSVG}
		artifacts, _, err := s.runner.RenderWithCacheInfo(r.Context(), p, nl.Groups, opts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(artifacts[pipeline.FormatSVG])
		return
	}

	writeJSON(w, http.StatusOK, solveResponse{
		Area:       p.Area,
		Modules:    p.Modules,
		Cached:     hit,
		Iterations: stats.TotalIterations,
		TimedOut:   stats.TimedOut,
		SolveTime:  time.Since(start).Round(time.Millisecond).String(),
	})
}

// solveOptions reads solver options from query parameters. The request
// timeout is capped at the server's configured maximum.
func (s *server) solveOptions(r *http.Request) (pipeline.Options, string, error) {
	q := r.URL.Query()
	var opts pipeline.Options

	if v := q.Get("seed"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &opts.Seed); err != nil {
			return opts, "", errors.New(errors.ErrCodeInvalidConfig, "invalid seed: %q", v)
		}
	}
	if v := q.Get("area_ratio"); v != "" {
		if _, err := fmt.Sscanf(v, "%g", &opts.AreaRatio); err != nil {
			return opts, "", errors.New(errors.ErrCodeInvalidConfig, "invalid area_ratio: %q", v)
		}
	}
	if v := q.Get("quality"); v != "" {
		opts.Quality = v
	}
	if v := q.Get("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return opts, "", errors.New(errors.ErrCodeInvalidConfig, "invalid timeout: %q", v)
		}
		opts.Timeout = d
	}
	if opts.Timeout == 0 || opts.Timeout > s.maxTimeout {
		opts.Timeout = s.maxTimeout
	}
	opts.Refresh = q.Get("refresh") == "true"

	format := q.Get("format")
	if format != "" && format != pipeline.FormatJSON && format != pipeline.FormatSVG {
		return opts, "", errors.New(errors.ErrCodeInvalidConfig,
			"invalid format: %q (must be json or svg)", format)
	}
	return opts, format, nil
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
