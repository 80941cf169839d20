package framework

import (
	"context"
	"sync"
	"time"

	"github.com/bitleak/lmstfy/client"

	"opsguard/pkg/lmstfyx"
	"opsguard/pkg/logger"
	"opsguard/pkg/metrics"
)

// Processor 处理器：接收消息，调用业务处理函数，按结果 Ack/Release
type Processor struct {
	cfg        *ProcessorConfig
	proc       lmstfyx.Proc // 业务处理函数（注入的 GetProcess）
	source     MessageSource
	logger     Logger
	shutdownCh chan struct{} // 专门的退出信号通道
	wg         sync.WaitGroup
}

// NewProcessor 创建处理器
func NewProcessor(cfg *ProcessorConfig, proc lmstfyx.Proc, source MessageSource, logger Logger) *Processor {
	return &Processor{
		cfg:        cfg,
		proc:       proc,
		source:     source,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Start 启动处理协程
func (p *Processor) Start(ctx context.Context, inputChan <-chan *Message) error {
	p.logger.Infof(ctx, "[Processor] Starting with %d workers", p.cfg.Concurrency)

	for i := 0; i < p.cfg.Concurrency; i++ {
		workerID := i
		p.wg.Add(1)
		go p.loop(ctx, workerID, inputChan)
	}

	return nil
}

// SignalShutdown 通知 Processor 准备退出（进入 Drain 模式）
func (p *Processor) SignalShutdown() {
	p.logger.Infof(context.Background(), "[Processor] Shutdown signal received")
	close(p.shutdownCh)
}

// Wait 等待所有处理协程退出
func (p *Processor) Wait() {
	p.wg.Wait()
	p.logger.Infof(context.Background(), "[Processor] All workers exited")
}

// loop 处理循环（单个 Worker）
func (p *Processor) loop(ctx context.Context, workerID int, inputChan <-chan *Message) {
	defer p.wg.Done()
	ctx = logger.WithWorkerID(ctx, workerID)
	p.logger.Infof(ctx, "[Processor-%d] Started", workerID)

	for {
		select {
		// A. 正常业务处理
		case msg := <-inputChan:
			p.process(ctx, msg, workerID)

		// B. Drain 模式：处理完剩余消息再退出
		case <-p.shutdownCh:
			p.logger.Infof(ctx, "[Processor-%d] Entering DRAIN mode", workerID)
			count := 0
			for {
				select {
				case msg := <-inputChan:
					p.process(ctx, msg, workerID)
					count++
				default:
					p.logger.Infof(ctx, "[Processor-%d] Drained %d messages, exiting", workerID, count)
					return
				}
			}
		}
	}
}

// process 处理单个消息
func (p *Processor) process(ctx context.Context, msg *Message, workerID int) {
	if msg == nil {
		return
	}

	startTime := time.Now()
	ctx = logger.WithQueue(ctx, msg.Queue)

	// 1. 创建超时控制的 Context
	procCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	p.logger.Debugf(procCtx, "[Processor-%d] Processing message: %s (attempt %d)", workerID, msg.ID, msg.Attempts+1)

	// 2. 调用业务处理函数（注入的 GetProcess）
	job := &client.Job{
		ID:    msg.ID,
		Queue: msg.Queue,
		Data:  msg.Data,
	}
	resp := p.proc(procCtx, job)

	// 3. 根据结果 ACK / Release；Bury 直接确认丢弃
	p.settle(ctx, msg, resp, workerID)

	p.logger.Infof(procCtx, "[Processor-%d] Message processed: %s, action: %s, duration: %v",
		workerID, msg.ID, resp.Action, time.Since(startTime))
}

func (p *Processor) settle(ctx context.Context, msg *Message, resp *lmstfyx.JobResp, workerID int) {
	switch resp.Action {
	case lmstfyx.JobRespStatusRelease:
		if p.cfg.MaxAttempts > 0 && msg.Attempts+1 >= p.cfg.MaxAttempts {
			p.logger.Errorf(ctx, "[Processor-%d] Message %s exhausted %d attempts, dropping", workerID, msg.ID, p.cfg.MaxAttempts)
			metrics.QueueItemsTotal.WithLabelValues("exhausted").Inc()
			p.ack(ctx, msg, workerID)
			return
		}
		if err := p.source.Release(ctx, msg); err != nil {
			p.logger.Errorf(ctx, "[Processor-%d] Release %s failed: %v", workerID, msg.ID, err)
		}

	case lmstfyx.JobRespStatusBury:
		p.logger.Warnf(ctx, "[Processor-%d] Burying message %s", workerID, msg.ID)
		p.ack(ctx, msg, workerID)

	default:
		p.ack(ctx, msg, workerID)
	}
}

func (p *Processor) ack(ctx context.Context, msg *Message, workerID int) {
	if err := p.source.Ack(ctx, msg.Queue, msg.ID); err != nil {
		p.logger.Errorf(ctx, "[Processor-%d] Ack %s failed: %v", workerID, msg.ID, err)
	}
}
