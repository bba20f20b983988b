package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-list/internal/config"
	"github.com/BuzzLyutic/todo-list/internal/handler"
	metrics "github.com/BuzzLyutic/todo-list/internal/middleware"
	"github.com/BuzzLyutic/todo-list/internal/notify"
	"github.com/BuzzLyutic/todo-list/internal/repo"
	"github.com/BuzzLyutic/todo-list/internal/service"
	"github.com/BuzzLyutic/todo-list/internal/storage"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Подключаем логгер
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Подключаем хранилище
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	taskStore, err := storage.NewTaskStore(store, cfg.TasksKey, cfg.ThemeKey, logger)
	if err != nil {
		logger.Fatal("Failed to init task store", zap.Error(err))
	}

	loc, _ := cfg.Location() // validated by config.Load

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	toasts := notify.NewNotifier(cfg.ToastDuration, logger)
	toasts.Start(ctx)

	taskService := service.NewTaskService(ctx, taskStore, logger, service.Options{
		Location:           loc,
		ConfirmDestructive: cfg.ConfirmDestructive,
		Toaster:            toasts,
		OnMutation:         m.ObserveMutation,
	})
	taskHandler := handler.NewTaskHandler(taskService, toasts, logger)

	r := chi.NewRouter() // Создаем роутер
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())
	taskHandler.Register(r)

	srv := http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	toasts.Stop()
	logger.Info("Server stopped successfully!")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return zcfg.Build()
}

// openStore connects the configured backend and returns its close function.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		s, err := repo.NewFileStore(cfg.DataFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using file store", zap.String("path", cfg.DataFile))
		return s, func() {}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("Successfully connected to Redis!", zap.String("addr", cfg.RedisAddr))
		return repo.NewRedisStore(client), func() { client.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL) // Создаем новое соединение к БД
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil { // Пытаемся пингануть БД
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("Successfully connected to the Database!")
		return repo.NewPostgresStore(pool), pool.Close, nil

	default:
		logger.Warn("Using in-memory store, tasks will not survive a restart")
		return repo.NewMemoryStore(), func() {}, nil
	}
}
