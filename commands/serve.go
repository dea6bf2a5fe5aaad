package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/leo-automation/leo-ring/config"
	"github.com/leo-automation/leo-ring/log"
	"github.com/leo-automation/leo-ring/pipeline"
)

var ServeCmd = Serve{
	listen: "",
}

// Serve is the HTTP trigger.
type Serve struct {
	listen string
}

func (s *Serve) Command(options *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the archiver on request over HTTP",
		Long: `Starts an HTTP server that runs the archiver on GET or POST /api/save-ring-video and
exposes Prometheus metrics on /metrics.`,
		Example: `  leo-ring serve --listen :8080
  curl -X POST http://localhost:8080/api/save-ring-video`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.execute(cmd.Context(), options)
		},
	}

	cmd.Flags().StringVar(&s.listen, "listen", s.listen, "HTTP bind address (default LISTEN or :8080)")

	return cmd
}

func (s *Serve) execute(ctx context.Context, options *Options) error {
	cfg, err := config.Load(options.EnvFile)
	if err != nil {
		return err
	}

	addr := cfg.Listen
	if s.listen != "" {
		addr = s.listen
	}

	registry := prometheus.NewRegistry()
	t := trigger{
		options: options,
		metrics: pipeline.NewMetrics(registry),
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           router(&t, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()

		shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdown); err != nil {
			log.Warnf("%v", err)
		}
	}()

	log.Named("http").Info().Str("addr", addr).Msg("http listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

type invoker interface {
	invoke(ctx context.Context) ([]pipeline.Result, error)
}

func router(t invoker, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	save := func(w http.ResponseWriter, rq *http.Request) {
		results, err := t.invoke(rq.Context())

		switch {
		case errors.Is(err, errBusy):
			http.Error(w, err.Error(), http.StatusConflict)

		case err != nil:
			log.Errorf("%v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)

		default:
			w.Header().Set("Content-Type", "application/json")
			if err := writeJSON(w, results); err != nil {
				log.Warnf("error writing response (%v)", err)
			}
		}
	}

	r.Get("/api/save-ring-video", save)
	r.Post("/api/save-ring-video", save)

	r.Get("/healthz", func(w http.ResponseWriter, rq *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return r
}
