package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dqtools/segments/internal/api"
	"github.com/dqtools/segments/internal/api/handlers"
	"github.com/dqtools/segments/internal/api/stream"
	"github.com/dqtools/segments/internal/dqsegdb"
	"github.com/dqtools/segments/internal/scheduler"
	"github.com/dqtools/segments/internal/scheduler/jobs"
	"github.com/dqtools/segments/internal/segdb"
	"github.com/dqtools/segments/pkg/database"
	"github.com/dqtools/segments/pkg/httputil"
	"github.com/dqtools/segments/pkg/logger"
	"github.com/dqtools/segments/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the segment API server",
	Long: `Start the local segment API server.

This command:
- serves flag and segment queries from the local store
- accepts published segments over HTTP
- pushes published segments to WebSocket subscribers
- optionally mirrors upstream flags on a schedule

Endpoints:
  GET  /health
  GET  /api/flags
  GET  /api/segments/{ifo}/{flag}/{version}?s=...&e=...
  POST /api/segments
  GET  /api/streams/segments
  GET  /api/jobs               (with --refresh)
  POST /api/jobs/{job}/run     (with --refresh)

Example:
  segctl serve
  segctl serve --port 8090 --refresh X1:TEST-FLAG_NAME:1`,
	RunE: runServe,
}

var (
	servePort       string
	refreshFlags    []string
	refreshLookback time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (overrides PORT)")
	serveCmd.Flags().StringSliceVar(&refreshFlags, "refresh", nil, "flags to mirror from the upstream database on a schedule")
	serveCmd.Flags().DurationVar(&refreshLookback, "refresh-lookback", time.Hour, "how far back each scheduled refresh reaches")
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing segment API server")

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 4. Prepare the segment store
	store := segdb.New(db, log)
	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrate segment schema: %w", err)
	}

	// 5. Create the stream hub and handlers
	hub := stream.NewHub(log)
	defer hub.Close()

	flagHandler := handlers.NewFlagHandler(store, hub, log)

	// 6. Optionally mirror upstream flags on a schedule
	var sched *scheduler.Scheduler
	if len(refreshFlags) > 0 {
		rdb, err := redis.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()

		httpClient := httputil.New(log)
		if rdb.Enabled() {
			limiter := redis.NewRateLimiter(rdb, "segctl")
			httpClient = httpClient.WithRateLimiter(limiter, redis.DQSegDBRateLimit)
		}

		upstream := dqsegdb.New(cfg, log, httpClient)
		if rdb.Enabled() {
			upstream = upstream.WithCache(redis.NewCache(rdb, "dqsegdb"))
		}

		sched = scheduler.New(log)
		job := jobs.NewRefreshJob(upstream, store, hub, log, refreshFlags, refreshLookback)
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("schedule refresh job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 7. Create router and server; the jobs surface exists only with a
	// running scheduler
	var jobsHandler *handlers.JobsHandler
	if sched != nil {
		jobsHandler = handlers.NewJobsHandler(sched, log)
	}

	router := api.NewRouter(flagHandler, jobsHandler, hub, log)
	server := api.New(cfg, log, router)

	// 8. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("Segment API server started")
	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
