// Package bootstrap 组装 worker 与 apiserver 共用的基础设施
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"opsguard/internal/business/anomaly"
	"opsguard/internal/business/classifier"
	"opsguard/internal/business/embedding"
	"opsguard/internal/business/notify"
	"opsguard/internal/business/pipeline"
	"opsguard/internal/framework"
	"opsguard/pkg/config"
	mysqlx "opsguard/pkg/infra/mysql"
	redisx "opsguard/pkg/infra/redis"
	"opsguard/pkg/infra/upstash"
	"opsguard/pkg/lmstfy"
	"opsguard/pkg/logger"
)

// Queue 事件队列：API 侧 Push，worker 侧作为 MessageSource 消费
type Queue interface {
	framework.MessageSource
	Push(ctx context.Context, queue string, data []byte) error
}

// Infra 外部连接
type Infra struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// OpenInfra 建立 MySQL / Redis 连接
func OpenInfra(ctx context.Context, cfg *config.Config, log logger.Logger) (*Infra, error) {
	db, err := mysqlx.NewDB(cfg.MySQL.DSN, cfg.MySQL.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if cfg.MySQL.AutoMigrate {
		if err := mysqlx.AutoMigrate(db); err != nil {
			_ = mysqlx.Close(db)
			return nil, err
		}
		log.Infof(ctx, "[Bootstrap] Schema migrated")
	}

	rdb, err := redisx.NewClient(ctx, cfg.Redis)
	if err != nil {
		_ = mysqlx.Close(db)
		return nil, err
	}

	log.Infof(ctx, "[Bootstrap] Connected to mysql and redis %s", cfg.Redis.Addr)
	return &Infra{DB: db, Redis: rdb}, nil
}

// Close 关闭所有连接
func (i *Infra) Close() error {
	var firstErr error
	if err := i.Redis.Close(); err != nil {
		firstErr = err
	}
	if err := mysqlx.Close(i.DB); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// NewQueue 按 queue.driver 选择队列实现
func NewQueue(cfg *config.Config, rdb *redis.Client) (Queue, error) {
	switch cfg.Queue.Driver {
	case config.QueueDriverLmstfy:
		c, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create lmstfy client: %w", err)
		}
		return c.WithTries(cfg.Queue.MaxAttempts), nil
	case config.QueueDriverRedis:
		return redisx.NewQueue(rdb), nil
	default:
		return nil, fmt.Errorf("unknown queue driver: %q", cfg.Queue.Driver)
	}
}

// NewEmbedder 向量服务（redis 共享缓存 + 进程内 LRU）
func NewEmbedder(cfg *config.Config, rdb *redis.Client, log logger.Logger) *embedding.Service {
	var m embedding.Model
	switch cfg.Embedding.Backend {
	case "http":
		m = embedding.NewHTTPModel(cfg.Embedding.Model, cfg.Embedding.Endpoint, cfg.Embedding.Token, cfg.Embedding.Dim, cfg.Embedding.Timeout)
	default:
		m = embedding.NewHashModel(cfg.Embedding.Dim)
	}
	return embedding.NewService(m, log,
		embedding.WithCache(redisx.NewEmbeddingCache(rdb)),
		embedding.WithCacheTTL(cfg.Embedding.CacheTTL),
	)
}

// NewNotifier 本地通道必达，配置了 upstash 时追加远端通道
func NewNotifier(cfg *config.Config, rdb *redis.Client, log logger.Logger) (*notify.Fanout, *redisx.PubSub) {
	local := redisx.NewPubSub(rdb, cfg.Notify.List, cfg.Notify.Channel)
	var remotes []notify.Channel
	if cfg.Notify.Upstash.Enabled() {
		remotes = append(remotes, upstash.NewClient(cfg.Notify.Upstash.URL, cfg.Notify.Upstash.Token, cfg.Notify.List, cfg.Notify.Upstash.Timeout))
	}
	return notify.NewFanout(local, log, remotes...), local
}

// NewPipeline 组装事件处理流水线
func NewPipeline(cfg *config.Config, infra *Infra, log logger.Logger) *pipeline.Orchestrator {
	fanout, _ := NewNotifier(cfg, infra.Redis, log)

	deps := pipeline.Deps{
		Events:     mysqlx.NewEventDAO(infra.DB),
		Incidents:  mysqlx.NewIncidentDAO(infra.DB),
		Classifier: classifier.New(classifier.WithPayloadLimit(cfg.Pipeline.PayloadLimit)),
		Anomaly: anomaly.NewDetector(
			redisx.NewWindowStore(infra.Redis),
			anomaly.WithCapacity(cfg.Anomaly.WindowSize),
			anomaly.WithTTL(cfg.Anomaly.TTL),
		),
		Embedder: NewEmbedder(cfg, infra.Redis, log),
		Index:    mysqlx.NewVectorIndex(infra.DB),
		Notifier: fanout,
	}

	return pipeline.New(deps, log,
		pipeline.WithSummaryChars(cfg.Pipeline.SummaryChars),
		pipeline.WithRecordObservations(cfg.Anomaly.RecordObservations),
	)
}
