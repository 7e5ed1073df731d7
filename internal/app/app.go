package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/config"
	"github.com/examguard/proctoring-service/internal/delivery/httpd"
	"github.com/examguard/proctoring-service/internal/repository"
	"github.com/examguard/proctoring-service/internal/service"
	"github.com/examguard/proctoring-service/internal/service/analyzer"
	"github.com/examguard/proctoring-service/internal/worker"
	"github.com/examguard/proctoring-service/internal/worker/queue"
)

type App struct {
	server     *http.Server
	logger     zerolog.Logger
	config     *config.Config
	db         *sql.DB
	pool       *worker.WorkerPool
	rabbitRepo repository.RabbitMQRepository
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	rabbitRepo, err := repository.NewRabbitMQRepository(cfg.RabbitMQ.URL, log)
	if err != nil {
		return nil, err
	}

	if err := rabbitRepo.SetupExchange(cfg.RabbitMQ.Exchange); err != nil {
		return nil, err
	}

	publisher := queue.NewRabbitMQPublisher(rabbitRepo.Channel(), log)

	attemptRepo := repository.NewAttemptRepository(db, log)
	violationRepo := repository.NewViolationRepository(db, log)
	examRepo := repository.NewExamRepository(db, log)

	evidenceRepo, err := repository.NewMinIOEvidenceRepository(
		cfg.Evidence.Endpoint,
		cfg.Evidence.AccessKey,
		cfg.Evidence.SecretKey,
		cfg.Evidence.Bucket,
		cfg.Evidence.Region,
		cfg.Evidence.UseSSL,
		cfg.Evidence.ConnectTimeout,
		log,
	)
	if err != nil {
		return nil, err
	}

	detector, err := analyzer.NewPigoDetector(analyzer.DetectorConfig{
		CascadeFile:      cfg.Analyzer.CascadeFile,
		ScaleFactor:      cfg.Analyzer.ScaleFactor,
		QualityThreshold: cfg.Analyzer.QualityThreshold,
		MinRegionSize:    cfg.Analyzer.MinRegionSize,
	})
	if err != nil {
		return nil, err
	}

	frameAnalyzer := analyzer.NewFrameAnalyzer(detector, analyzer.Config{
		MinFaceRatio:        cfg.Analyzer.MinFaceRatio,
		CenterThreshold:     cfg.Analyzer.CenterThreshold,
		NoFaceConfidence:    cfg.Analyzer.NoFaceConfidence,
		MultiFaceConfidence: cfg.Analyzer.MultiFaceConfidence,
		TooSmallConfidence:  cfg.Analyzer.TooSmallConfidence,
		OffCenterConfidence: cfg.Analyzer.OffCenterConfidence,
	}, log)

	pool := worker.NewWorkerPool(cfg.Proctoring.MaxWorkers, log)
	locks := service.NewAttemptLocks()
	penalty := service.NewPenaltyCalculator(cfg.Proctoring.PenaltyMultipliers, cfg.Proctoring.TerminationThreshold)

	proctorService := service.NewProctorService(
		attemptRepo,
		violationRepo,
		examRepo,
		evidenceRepo,
		frameAnalyzer,
		publisher,
		pool,
		locks,
		log,
		service.ProctorConfig{
			TerminationThreshold: cfg.Proctoring.TerminationThreshold,
			Exchange:             cfg.RabbitMQ.Exchange,
		},
	)

	gradingService := service.NewGradingService(
		attemptRepo,
		examRepo,
		penalty,
		publisher,
		pool,
		locks,
		log,
		service.GradingConfig{Exchange: cfg.RabbitMQ.Exchange},
	)

	examService := service.NewExamService(examRepo, log)

	reportingService := service.NewReportingService(
		attemptRepo,
		violationRepo,
		examRepo,
		log,
		service.ReportingConfig{LiveWindow: cfg.Proctoring.LiveWindow},
	)

	health := httpd.NewHealthChecker(attemptRepo, rabbitRepo, evidenceRepo)

	handler := httpd.NewHandler(
		proctorService,
		gradingService,
		examService,
		reportingService,
		health,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:     server,
		logger:     log,
		config:     cfg,
		db:         db,
		pool:       pool,
		rabbitRepo: rabbitRepo,
	}, nil
}

func (a *App) Run() error {
	if err := a.pool.Start(context.Background()); err != nil {
		a.logger.Error().Err(err).Msg("Failed to start worker pool")
		return err
	}

	a.logger.Info().Msgf("Starting proctoring service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down proctoring service...")

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
		return err
	}

	if err := a.pool.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to stop worker pool")
	}

	if a.rabbitRepo != nil {
		if err := a.rabbitRepo.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	a.logger.Info().Msg("Proctoring service stopped")
	return nil
}
