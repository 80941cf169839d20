package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"opsguard/internal/bootstrap"
	"opsguard/internal/domains"
	"opsguard/internal/worker"
	"opsguard/pkg/config"
	"opsguard/pkg/logger"
	"opsguard/pkg/metrics"
)

var (
	configPath = flag.String("config", "./config/worker.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	log.Println("========================================")
	log.Println("  OPSGUARD Worker Starting...")
	log.Println("========================================")

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}
	log.Printf("Config loaded: %s, env: %s, queue: %s/%s\n", cfg.App.Name, cfg.App.Env, cfg.Queue.Driver, cfg.Queue.Name)

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Errorf(context.Background(), "[Main] Worker exited with error: %v", err)
		_ = zapLogger.Sync()
		os.Exit(1)
	}

	log.Println("========================================")
	log.Println("  Worker exited gracefully")
	log.Println("========================================")
}

func run(ctx context.Context, cfg *config.Config, zapLogger logger.Logger) error {
	// 3. 连接存储
	infra, err := bootstrap.OpenInfra(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer infra.Close()

	queue, err := bootstrap.NewQueue(cfg, infra.Redis)
	if err != nil {
		return err
	}

	// 4. 组装流水线与 Manager
	orchestrator := bootstrap.NewPipeline(cfg, infra, zapLogger)
	mgr, err := worker.NewManagerInstance(cfg, queue, domains.GetProcess(zapLogger, orchestrator), zapLogger)
	if err != nil {
		return err
	}

	metricsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// 5. 启动 Manager（阻塞直到 Shutdown 完成）
	g.Go(func() error {
		return mgr.Start()
	})

	g.Go(func() error {
		zapLogger.Infof(gctx, "[Main] Metrics listening on %s", cfg.Metrics.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 6. 等待退出信号后优雅关闭
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Infof(context.Background(), "[Main] Shutting down worker...")
		mgr.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	zapLogger.Infof(ctx, "[Main] Worker started. Press Ctrl+C to shutdown.")
	return g.Wait()
}
