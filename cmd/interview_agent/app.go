package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/generation"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/lock"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/metrics"
	"github.com/jonathan/interview-coach/internal/report"
	"github.com/jonathan/interview-coach/internal/usage"
	"github.com/jonathan/interview-coach/internal/voice"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// storage is the persistence a command runs against
type storage interface {
	interview.Store
	interview.ResumeLookup
	report.History
}

// app holds the wired components shared by the commands
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    storage
	database *db.DB
	redis    *redis.Client
	counters usage.CounterStore
	locker   interview.Locker
	closers  []func()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logJSON || cfg.Log.JSON, logDebug || cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, logger, nil
}

// newApp connects storage. Without a database URL sessions live in memory, and
// without a Redis URL locks and counters stay in process.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Database.URL != "" {
		database, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, database.Close)
		if migrate || cfg.Database.Migrate {
			if err := database.Migrate(ctx); err != nil {
				a.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
			logger.Info("database schema applied")
		}
		a.database = database
		a.store = database
	} else {
		logger.Warn("no database configured, sessions are kept in memory")
		a.store = db.NewMemoryStore()
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.redis = rdb
		a.counters = usage.NewRedisCounterStore(rdb, "interview:")
		a.locker = lock.NewRedis(rdb, "interview:lock:", cfg.Redis.LockTTL)
	} else {
		a.counters = usage.NewMemoryCounterStore()
		a.locker = lock.NewLocal()
	}
	return a, nil
}

// Close releases connections in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// health pings the backing services
func (a *app) health(ctx context.Context) error {
	if a.database != nil {
		if err := a.database.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// llmConfig applies the configured models, plan tiers and temperature to the defaults
func llmConfig(cfg *config.Config) *llm.Config {
	c := llm.DefaultGeminiConfig()
	for tier, model := range cfg.AI.Models {
		if model != "" {
			c.Models[llm.ModelTier(strings.ToLower(tier))] = model
		}
	}
	if tiers := cfg.PlanTiers(); len(tiers) > 0 {
		c.PlanTiers = make(map[string]llm.ModelTier, len(tiers))
		for plan, tier := range tiers {
			c.PlanTiers[plan] = llm.ParseTier(tier)
		}
	}
	c.Temperature = cfg.AI.Temperature
	return c
}

func retryConfig(cfg *config.Config) llm.RetryConfig {
	return llm.RetryConfig{
		Timeout:        cfg.AI.Timeout,
		MaxRetries:     int32(cfg.AI.MaxRetries),
		InitialBackoff: cfg.AI.InitialBackoff,
		MaxBackoff:     cfg.AI.MaxBackoff,
	}
}

// newEngine wires the AI collaborators around the app's storage.
func followUpGate(cfg *config.Config) *interview.RandomGate {
	if cfg.Interview.FollowUpSeed != 0 {
		return interview.NewSeededGate(cfg.Interview.FollowUpRate, cfg.Interview.FollowUpSeed)
	}
	return interview.NewRandomGate(cfg.Interview.FollowUpRate)
}

func (a *app) newEngine(ctx context.Context, m *metrics.Metrics) (*interview.Engine, error) {
	cfg := a.cfg
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	lc := llmConfig(cfg)
	base, err := llm.NewClient(ctx, lc, cfg.AI.APIKey)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = base.Close() })
	client := llm.NewRetryingClient(base, retryConfig(cfg), a.logger, m)

	var synth interview.Synthesizer = voice.NoopSynthesizer{}
	if cfg.Voice.TTSEnabled {
		s, err := voice.NewGeminiSynthesizer(ctx, voice.SynthesizerConfig{
			APIKey: cfg.AI.APIKey,
			Model:  cfg.Voice.TTSModel,
			Voice:  cfg.Voice.Voice,
		}, a.logger)
		if err != nil {
			a.logger.Warn("speech synthesis disabled", zap.Error(err))
		} else {
			synth = s
		}
	}

	return interview.New(interview.Options{
		Store:       a.store,
		Resumes:     a.store,
		Questions:   generation.NewQuestionGenerator(client, a.logger),
		Evaluator:   generation.NewAnswerEvaluator(client, a.logger),
		Transcriber: voice.NewGeminiTranscriber(client, a.logger),
		Synthesizer: synth,
		Reporter:    report.NewAggregator(generation.NewReportWriter(client, a.logger), a.store, a.logger, m),
		Locker:      a.locker,
		Gate:        followUpGate(cfg),
		ResolveTier: func(plan string) string {
			return string(lc.TierForPlan(plan))
		},
		DefaultQuestions: cfg.Interview.DefaultQuestions,
		Logger:           a.logger,
		Metrics:          m,
	})
}
