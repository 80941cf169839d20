package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"opsguard/internal/app/server/handlers/agent"
	"opsguard/internal/app/server/handlers/event"
	"opsguard/internal/app/server/handlers/incident"
	"opsguard/internal/app/server/routers"
	"opsguard/internal/bootstrap"
	"opsguard/pkg/config"
	mysqlx "opsguard/pkg/infra/mysql"
	"opsguard/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/apiserver.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Errorf(context.Background(), "[Main] API server exited with error: %v", err)
		_ = zapLogger.Sync()
		os.Exit(1)
	}
	log.Println("Application stopped")
}

func run(ctx context.Context, cfg *config.Config, zapLogger logger.Logger) error {
	// 3. 初始化依赖
	infra, err := bootstrap.OpenInfra(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer infra.Close()

	queue, err := bootstrap.NewQueue(cfg, infra.Redis)
	if err != nil {
		return err
	}
	_, notifications := bootstrap.NewNotifier(cfg, infra.Redis, zapLogger)

	engine := routers.SetupRoutes(
		zapLogger,
		routers.Options{RateLimit: cfg.Server.RateLimit, Burst: cfg.Server.Burst},
		event.NewEventHandler(mysqlx.NewEventDAO(infra.DB), queue, cfg.Queue.Name, zapLogger),
		incident.NewIncidentHandler(
			mysqlx.NewIncidentDAO(infra.DB),
			bootstrap.NewEmbedder(cfg, infra.Redis, zapLogger),
			mysqlx.NewVectorIndex(infra.DB),
			zapLogger,
		),
		agent.NewAgentHandler(notifications, zapLogger),
	)

	// 4. 启动 HTTP Server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Infof(gctx, "[Main] HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 5. 优雅停机
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Infof(context.Background(), "[Main] Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
