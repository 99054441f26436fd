package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/metrics"
	"github.com/jonathan/interview-coach/internal/server"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
	"github.com/jonathan/interview-coach/internal/usage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the interview session endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply the database schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	if err := cfg.JWT.Validate(); err != nil {
		return fmt.Errorf("invalid JWT config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, serveMigrate)
	if err != nil {
		return err
	}
	defer a.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine, err := a.newEngine(ctx, m)
	if err != nil {
		return fmt.Errorf("failed to create interview engine: %w", err)
	}

	srv, err := server.New(server.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Engine:       engine,
		Gate:         usage.NewGate(a.counters, cfg.PlanQuotas()),
		RateLimiter:  ratelimit.NewLimiter(a.counters, rateLimitConfig(cfg)),
		Tokens:       server.NewJWTService(&cfg.JWT).AsTokenValidator(),
		Metrics:      m,
		Logger:       logger,
		Health:       a.health,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting interview_agent",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("database", a.database != nil),
		zap.Bool("redis", a.redis != nil))
	return srv.Start(ctx)
}

func rateLimitConfig(cfg *config.Config) *ratelimit.Config {
	rc := ratelimit.DefaultConfig()
	rc.Enabled = cfg.RateLimit.Enabled
	rc.DefaultLimit = cfg.RateLimit.DefaultLimit
	rc.DefaultWindow = cfg.RateLimit.DefaultWindow
	for _, ip := range cfg.RateLimit.Whitelist {
		rc.Whitelist[ip] = true
	}
	for _, ip := range cfg.RateLimit.Blacklist {
		rc.Blacklist[ip] = true
	}
	return rc
}
