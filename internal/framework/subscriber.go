package framework

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"opsguard/pkg/logger"
)

// Subscriber 订阅者：从消息队列拉取消息，转发给 Processor
type Subscriber struct {
	cfg        *SubscriberConfig
	source     MessageSource // 消息源（redis list / lmstfy 适配器）
	logger     Logger
	limiter    *rate.Limiter
	cancelFunc context.CancelFunc // 取消函数
	wg         sync.WaitGroup
}

// NewSubscriber 创建订阅者
func NewSubscriber(cfg *SubscriberConfig, source MessageSource, logger Logger) *Subscriber {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Every(cfg.Rate)
	}
	return &Subscriber{
		cfg:     cfg,
		source:  source,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Start 启动订阅循环
func (s *Subscriber) Start(parentCtx context.Context, inputChan chan<- *Message) error {
	// 从父 Context 派生子 Context，Stop 时取消
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel

	ctx = logger.WithQueue(ctx, s.cfg.QueueName)
	s.logger.Infof(ctx, "[Subscriber] Starting with %d workers for queue: %s",
		s.cfg.Concurrency, s.cfg.QueueName)

	for i := 0; i < s.cfg.Concurrency; i++ {
		workerID := i
		s.wg.Add(1)
		go s.loop(logger.WithWorkerID(ctx, workerID), workerID, inputChan)
	}

	return nil
}

// Stop 停止订阅（不再拉取新消息）
func (s *Subscriber) Stop() {
	s.logger.Infof(context.Background(), "[Subscriber] Stopping...")
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

// Wait 等待所有订阅协程退出
func (s *Subscriber) Wait() {
	s.wg.Wait()
	s.logger.Infof(context.Background(), "[Subscriber] All workers exited")
}

// loop 订阅循环（单个 Worker）
// 每次唤醒最多拉取一条消息；退出检查只发生在两条消息之间
func (s *Subscriber) loop(ctx context.Context, workerID int, inputChan chan<- *Message) {
	defer s.wg.Done()
	s.logger.Infof(ctx, "[Subscriber-%d] Started", workerID)

	for {
		// 1. 速率控制 + 退出检查
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Infof(ctx, "[Subscriber-%d] Context cancelled, exiting", workerID)
			return
		}

		// 2. 拉取消息（带超时）
		msg, err := s.source.Consume(ctx, s.cfg.QueueName, s.cfg.Timeout, s.cfg.TTR)
		if err != nil {
			select {
			case <-ctx.Done():
				s.logger.Infof(ctx, "[Subscriber-%d] Context cancelled, exiting", workerID)
				return
			default:
			}

			// 容错：网络抖动不退出，只记录日志
			s.logger.Warnf(ctx, "[Subscriber-%d] Consume error: %v, retrying in %v", workerID, err, s.cfg.ErrorBackoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.ErrorBackoff):
				continue
			}
		}

		// nil 消息（超时未拉到），继续循环
		if msg == nil {
			continue
		}

		// 3. 发送给 Processor（防死锁设计）
		select {
		case inputChan <- msg:
			s.logger.Debugf(ctx, "[Subscriber-%d] Message sent: %s", workerID, msg.ID)

		case <-ctx.Done():
			// 已出队但未处理的消息放回队列
			s.logger.Warnf(ctx, "[Subscriber-%d] Shutdown with message in hand, releasing: %s", workerID, msg.ID)
			if err := s.source.Release(context.Background(), msg); err != nil {
				s.logger.Errorf(ctx, "[Subscriber-%d] Release %s failed: %v", workerID, msg.ID, err)
			}
			return
		}
	}
}
