package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/catalogsync"
	"github.com/sells-group/catalog-sync/internal/metrics"
)

// routerConfig feeds the status server.
type routerConfig struct {
	// Live returns the in-process run state; nil when no orchestrator runs here.
	Live           func() *catalogsync.SyncState
	States         catalogsync.StateStore
	Metrics        *metrics.Registry
	AllowedOrigins []string
}

type statusResponse struct {
	Running bool                   `json:"running"`
	State   *catalogsync.SyncState `json:"state"`
}

func newRouter(rc routerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := rc.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		resp := statusResponse{}
		if rc.Live != nil {
			if st := rc.Live(); st != nil {
				resp.State = st
				resp.Running = !st.Complete()
			}
		}
		if resp.State == nil && rc.States != nil {
			st, err := rc.States.Load(req.Context())
			if err != nil {
				zap.L().Error("status: load state", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "state unavailable"})
				return
			}
			resp.State = st
		}
		writeJSON(w, http.StatusOK, resp)
	})

	if rc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rc.Metrics.Handler())
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// startServer serves h on addr until ctx is done.
func startServer(ctx context.Context, addr string, h http.Handler) <-chan error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	errc := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- eris.Wrap(err, "server listen")
		}
		close(errc)
	}()
	return errc
}

var (
	servePort     int
	serveSchedule bool
	serveFromDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve health, status, and metrics, optionally running scheduled syncs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		mode := "serve"
		if serveSchedule {
			mode = "sync"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := metrics.NewRegistry()
		rc := routerConfig{Metrics: reg, AllowedOrigins: cfg.Server.AllowedOrigins}

		var orch *catalogsync.Orchestrator
		if serveSchedule {
			env, err := initSyncEnv(ctx, cfg, envOptions{FromDir: serveFromDir})
			if err != nil {
				return err
			}
			defer env.Close()

			orch, err = buildOrchestrator(cfg, env, reg)
			if err != nil {
				return err
			}
			rc.Live = orch.State
			rc.States = env.States
		} else {
			states, closeStates, err := openStatusStates(ctx)
			if err != nil {
				return err
			}
			defer closeStates()
			rc.States = states
		}

		errc := startServer(ctx, fmt.Sprintf(":%d", cfg.Server.Port), newRouter(rc))

		if orch != nil {
			go catalogsync.RunEvery(ctx, cfg.Sync.ScheduleInterval, func(ctx context.Context) error { //nolint:errcheck
				_, err := orch.Run(ctx)
				return err
			})
		}

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
			return <-errc
		}
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveSchedule, "schedule", false, "run syncs every sync.schedule_interval in the background")
	serveCmd.Flags().StringVar(&serveFromDir, "from-dir", "", "read feed files from a local directory instead of FTP")
	rootCmd.AddCommand(serveCmd)
}
