package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prepforge/practice-api/internal/config"
	"github.com/prepforge/practice-api/internal/domain/adaptive"
	"github.com/prepforge/practice-api/internal/domain/scoring"
	"github.com/prepforge/practice-api/internal/events"
	"github.com/prepforge/practice-api/internal/generation"
	"github.com/prepforge/practice-api/internal/platform/gemini"
	"github.com/prepforge/practice-api/internal/platform/postgres"
	"github.com/prepforge/practice-api/internal/selection"
	"github.com/prepforge/practice-api/internal/service/auth"
	"github.com/prepforge/practice-api/internal/service/distractors"
	"github.com/prepforge/practice-api/internal/service/practice"
	"github.com/prepforge/practice-api/internal/service/recommend"
	"github.com/prepforge/practice-api/internal/store"
	"github.com/prepforge/practice-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (interfaces, backed by postgres)
	sessionStore    store.SessionStore
	questionStore   store.QuestionStore
	attemptStore    store.AttemptStore
	distractorStore store.DistractorStore

	// Services
	jwtService        auth.JWTService
	generator         generation.Generator
	selector          selection.Selector
	recommendService  recommend.Service
	practiceService   practice.PracticeService
	distractorService distractors.Service

	// Event system and background attempt recording
	eventEmitter events.EventEmitter
	taskQueue    *task.TaskQueue
	workerPool   *task.WorkerPool
}

// newApplication creates a new application instance with all dependencies
// initialized, including the database connection.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT validation service initialized")

	// Stores
	app.sessionStore = postgres.NewPostgresSessionStore(db, logger)
	app.questionStore = postgres.NewPostgresQuestionStore(db, logger)
	app.attemptStore = postgres.NewPostgresAttemptStore(db, logger)
	app.distractorStore = postgres.NewPostgresDistractorStore(db, logger)

	// Distractor generation is optional: without an API key the engine
	// serves only pre-authored option sets.
	if cfg.LLM.GeminiAPIKey != "" {
		app.generator, err = gemini.NewGenerator(ctx, logger, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
		}
		logger.Info("LLM generator initialized", "model", cfg.LLM.ModelName)
	} else {
		app.generator = generation.Disabled()
		logger.Warn("no Gemini API key configured, distractor generation disabled")
	}

	// Background attempt recording: events feed a bounded queue drained by
	// a worker pool.
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.taskQueue = task.NewTaskQueue(cfg.Task.QueueSize, logger)
	app.workerPool = task.NewWorkerPool(app.taskQueue, task.WorkerPoolConfig{
		WorkerCount: cfg.Task.WorkerCount,
	}, logger)

	attemptHandler := task.NewAttemptRecordingEventHandler(
		app.taskQueue,
		app.attemptStore,
		cfg.Task.MaxRetries,
		time.Second,
		logger,
	)
	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(attemptHandler)
	} else {
		return nil, fmt.Errorf("unexpected event emitter type, cannot register attempt handler")
	}
	app.workerPool.Start()

	// Domain services
	app.selector = selection.NewSelector(app.questionStore, logger)

	adaptiveParams := adaptive.NewDefaultParams()
	if cfg.Practice.RecommendationWindow > 0 {
		adaptiveParams.WindowSize = cfg.Practice.RecommendationWindow
	}
	app.recommendService = recommend.NewService(
		app.attemptStore,
		adaptive.NewServiceWithParams(adaptiveParams),
		adaptiveParams.WindowSize,
		logger,
	)

	scoringParams := scoring.NewDefaultParams()
	scoringParams.NegativeMarkPerWrong = cfg.Practice.NegativeMarkPerWrong

	app.practiceService = practice.NewPracticeService(
		app.sessionStore,
		app.questionStore,
		app.distractorStore,
		app.selector,
		app.recommendService,
		task.NewEventAttemptRecorder(app.eventEmitter, logger),
		scoringParams,
		logger,
	)

	app.distractorService = distractors.NewService(
		db,
		app.questionStore,
		app.distractorStore,
		app.generator,
		logger,
	)

	logger.Info("application initialized successfully")
	return app, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskQueue != nil {
		app.taskQueue.Close()
	}
	if app.workerPool != nil {
		app.workerPool.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
}
