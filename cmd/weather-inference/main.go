package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"weather-inference/configs"
	"weather-inference/internal/application/container"
	"weather-inference/internal/application/controller"
	"weather-inference/internal/application/middleware"
	"weather-inference/internal/application/processor"
	"weather-inference/internal/application/schedule"
	"weather-inference/internal/domain/gateway/db"
	"weather-inference/internal/domain/gateway/queue"
	"weather-inference/internal/domain/usecase/health"
	"weather-inference/internal/domain/usecase/transaction"
	"weather-inference/pkg/log"
	"weather-inference/pkg/msg"
	"weather-inference/pkg/redis"
	"weather-inference/pkg/sqs"
)

func main() {
	defer log.Sync()

	cfg, err := configs.Load()
	if err != nil {
		log.Fatal(msg.GetMessage("app.config-failed", err), zap.Error(err))
	}
	log.Info(msg.GetMessage("app.start"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init infra
	app, err := container.Build(ctx, cfg)
	if err != nil {
		log.Fatal(msg.GetMessage("app.config-failed", err), zap.Error(err))
	}
	defer app.Close()

	e := echo.New()
	e.HideBanner = true
	middleware.SetupRequestID(e)
	middleware.SetupRequestLogger(e)
	api := e.Group(cfg.Server.ContextPath)

	// Init UseCase
	queueHealth := queue.NewQueueHealthGateway()
	healthUseCase := health.NewHealthUseCase(db.NewRedisHealthDBGateway(app.Redis, cfg.Redis.ReadTimeout), queueHealth)

	// Init Controller and Routes
	controller.NewHealthController(api, healthUseCase).InitHealthRoutes()
	controller.NewPredictionController(api, app.PredictionUseCase, cfg.Runs, cfg.Locations).InitPredictionRoutes()

	if cfg.Sample.CSVPath != "" {
		transactionUseCase, err := transaction.NewTransactionUseCaseFromFile(cfg.Sample.CSVPath)
		if err != nil {
			log.Warn("sample endpoint disabled", zap.String("csv_path", cfg.Sample.CSVPath), zap.Error(err))
		} else {
			limiter := redis.NewFixedWindowLimiter(app.Redis, "rate-limit", cfg.Sample.RateLimit, cfg.Sample.RateWindow)
			controller.NewTransactionController(api, transactionUseCase, limiter).InitTransactionRoutes()
		}
	}

	// Init Schedule
	var scheduler *schedule.PredictionScheduler
	if cfg.Schedule.Enabled {
		scheduler, err = schedule.NewPredictionScheduler(
			app.PredictionUseCase,
			redis.NewScheduledTaskLock(app.Redis, "prediction", cfg.Schedule.LockTTL),
			cfg.Runs,
			cfg.Locations,
			schedule.PredictionSchedulerConfig{
				CronExpression: cfg.Schedule.Cron,
				Retries:        cfg.Schedule.Retries,
				RetryDelay:     cfg.Schedule.RetryDelay,
			},
		)
		if err != nil {
			log.Fatal(err.Error(), zap.Error(err))
		}
		if err := scheduler.Start(); err != nil {
			log.Fatal(err.Error(), zap.Error(err))
		}
	}

	// Init Workers
	var workers sync.WaitGroup
	if cfg.Queue.Enabled && cfg.Queue.PredictionRequests != "" {
		requestProcessor := processor.NewPredictionRequestProcessor(app.PredictionUseCase, cfg.Runs, cfg.Locations)
		worker, err := sqs.NewWorker(ctx, app.SQS, cfg.Queue.PredictionRequests, requestProcessor, &sqs.WorkerConfig{PoolSize: cfg.Queue.Workers})
		if err != nil {
			log.Fatal(err.Error(), zap.Error(err))
		}

		queueHealth.RegisterWorker("prediction-requests", worker.QueueName())
		workers.Add(1)
		go func() {
			defer workers.Done()
			worker.Start(ctx)
			queueHealth.MarkStopped("prediction-requests")
		}()
	}

	// Start Routes
	go func() {
		log.Info(msg.GetMessage("app.started", cfg.Server.Port))
		if err := e.Start(":" + strconv.Itoa(cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err.Error(), zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(msg.GetMessage("app.stopping", context.Cause(ctx)))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if scheduler != nil {
		if err := scheduler.Stop(); err != nil {
			log.Warn("scheduler shutdown", zap.Error(err))
		}
	}
	workers.Wait()

	log.Info(msg.GetMessage("app.stopped"))
}
