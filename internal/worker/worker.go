package worker

import (
	"context"
	"fmt"
	"sync"

	"opsguard/internal/framework"
	"opsguard/pkg/lmstfyx"
	"opsguard/pkg/logger"
	"opsguard/pkg/metrics"
)

// Worker 接口
type Worker interface {
	Start()
	Shutdown()
	GetName() string
}

// WorkerInstance 一条事件队列的拉取循环：Subscriber 出队，Processor 跑流水线并确认
type WorkerInstance struct {
	ctx        context.Context
	name       string
	queue      string
	subscriber *framework.Subscriber
	processor  *framework.Processor
	inputChan  chan *framework.Message
	stopOnce   sync.Once
	shutdownCh chan struct{}
	logger     logger.Logger
}

// NewWorkerInstance 创建 Worker 实例
// 日志上下文带上队列名，便于区分多个 Worker
func NewWorkerInstance(
	ctx context.Context,
	name string,
	subscriberCfg *framework.SubscriberConfig,
	processorCfg *framework.ProcessorConfig,
	source framework.MessageSource,
	proc lmstfyx.Proc,
	log logger.Logger,
) (Worker, error) {
	if subscriberCfg == nil || processorCfg == nil {
		return nil, fmt.Errorf("worker %s: subscriber and processor config are required", name)
	}
	if subscriberCfg.QueueName == "" {
		return nil, fmt.Errorf("worker %s: queue name is required", name)
	}
	if processorCfg.BufferSize < 0 {
		return nil, fmt.Errorf("worker %s: negative buffer size %d", name, processorCfg.BufferSize)
	}

	return &WorkerInstance{
		ctx:        logger.WithQueue(ctx, subscriberCfg.QueueName),
		name:       name,
		queue:      subscriberCfg.QueueName,
		subscriber: framework.NewSubscriber(subscriberCfg, source, log),
		processor:  framework.NewProcessor(processorCfg, proc, source, log),
		inputChan:  make(chan *framework.Message, processorCfg.BufferSize),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}, nil
}

// Start 启动 Worker，阻塞到 Shutdown 完成
func (w *WorkerInstance) Start() {
	w.logger.Infof(w.ctx, "[Worker] %s consuming %s", w.name, w.queue)
	metrics.WorkersRunning.WithLabelValues(w.name).Inc()
	defer metrics.WorkersRunning.WithLabelValues(w.name).Dec()

	// Processor 先就绪，Subscriber 出队的消息才有人接
	w.processor.Start(w.ctx, w.inputChan)
	if err := w.subscriber.Start(w.ctx, w.inputChan); err != nil {
		w.logger.Errorf(w.ctx, "[Worker] %s subscriber failed to start: %v", w.name, err)
	}

	<-w.shutdownCh
}

// Shutdown 停止拉取 → 等待出队中的消息 → Processor 处理完缓冲区；可重复调用
func (w *WorkerInstance) Shutdown() {
	w.stopOnce.Do(func() {
		w.logger.Infof(w.ctx, "[Worker] %s began to close", w.name)

		w.subscriber.Stop()
		w.subscriber.Wait()

		w.processor.SignalShutdown()
		w.processor.Wait()

		close(w.shutdownCh)
		w.logger.Infof(w.ctx, "[Worker] %s shutdown complete", w.name)
	})
}

// GetName 获取 Worker 名称
func (w *WorkerInstance) GetName() string {
	return w.name
}
