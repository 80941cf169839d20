// Package pipeline 事件处理编排：取事件 → 分类 → 异常检测 → 摘要 → 向量 → 落库 → 索引 → 通知
//
// 每个事件只有一个入口 Orchestrator.Process。任何单个事件的失败（包括 panic）
// 都在这里被收敛为日志加 NotProcessed，不会中断拉取循环。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opsguard/common/model"
	"opsguard/internal/framework"
	"opsguard/pkg/errorutil"
	"opsguard/pkg/logger"
	"opsguard/pkg/metrics"
)

// 步骤名（日志与指标标签）
const (
	stepFetch     = "fetch"
	stepClassify  = "classify"
	stepAnomaly   = "anomaly"
	stepRecord    = "anomaly_record"
	stepSummarize = "summarize"
	stepEmbed     = "embed"
	stepPersist   = "persist"
	stepIndex     = "index"
	stepNotify    = "notify"
	stepPanic     = "panic"
)

// errSkip 事件不存在，提前结束函数链
var errSkip = errors.New("event not found")

// Deps 编排器依赖；Anomaly / Index 可为空
type Deps struct {
	Events     EventStore
	Incidents  IncidentStore
	Classifier Classifier
	Anomaly    AnomalyDetector
	Embedder   Embedder
	Index      Indexer
	Notifier   Notifier
}

// Orchestrator 流水线编排器
type Orchestrator struct {
	deps               Deps
	summaryChars       int
	recordObservations bool
	logger             logger.Logger
}

// Option 编排器选项
type Option func(*Orchestrator)

// WithSummaryChars 摘要截取字符数
func WithSummaryChars(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.summaryChars = n
		}
	}
}

// WithRecordObservations 打分后是否把观测写回窗口
func WithRecordObservations(enabled bool) Option {
	return func(o *Orchestrator) {
		o.recordObservations = enabled
	}
}

// New 创建编排器
func New(deps Deps, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:               deps,
		summaryChars:       DefaultSummaryChars,
		recordObservations: true,
		logger:             log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// eventRun 单个事件的中间状态
type eventRun struct {
	eventID    int64
	event      *model.RawEvent
	cls        *model.Classification
	anomaly    *model.AnomalyResult
	summary    string
	vector     []float32
	incidentID int64
	state      State
	degraded   []string
}

func (r *eventRun) degrade(step string) {
	r.degraded = append(r.degraded, step)
	metrics.StepFailuresTotal.WithLabelValues(step).Inc()
}

// Process 处理一个事件
func (o *Orchestrator) Process(ctx context.Context, eventID int64) (out *Outcome) {
	start := time.Now()
	ctx = logger.WithEventID(ctx, eventID)
	run := &eventRun{eventID: eventID}

	metrics.EventsInFlight.Inc()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorf(ctx, "[Pipeline] panic while processing event %d in state %s: %v", eventID, run.state, r)
			metrics.StepFailuresTotal.WithLabelValues(stepPanic).Inc()
			out = &Outcome{
				EventID:    eventID,
				IncidentID: NotProcessed,
				State:      StateFailed,
				FailedAt:   stepPanic,
				Err:        errorutil.NonRetriable(fmt.Sprintf("panic: %v", r)),
				Degraded:   run.degraded,
			}
		}
		metrics.EventsInFlight.Dec()
		metrics.PipelineDurationSeconds.Observe(time.Since(start).Seconds())
		metrics.EventsTotal.WithLabelValues(resultLabel(out)).Inc()
	}()

	chain := framework.NewPreProcessor(
		framework.Step{Name: stepFetch, Run: func(ctx context.Context) error { return o.fetch(ctx, run) }},
		framework.Step{Name: stepClassify, Run: func(ctx context.Context) error { return o.classify(ctx, run) }},
		framework.Step{Name: stepAnomaly, Run: func(ctx context.Context) error { return o.checkAnomaly(ctx, run) }},
		framework.Step{Name: stepSummarize, Run: func(ctx context.Context) error { return o.summarize(ctx, run) }},
		framework.Step{Name: stepEmbed, Run: func(ctx context.Context) error { return o.embed(ctx, run) }},
		framework.Step{Name: stepPersist, Run: func(ctx context.Context) error { return o.persist(ctx, run) }},
		framework.Step{Name: stepIndex, Run: func(ctx context.Context) error { return o.index(ctx, run) }},
		framework.Step{Name: stepNotify, Run: func(ctx context.Context) error { return o.notify(ctx, run) }},
	)

	err := chain.Run(ctx)
	switch {
	case err == nil:
		o.logger.Infof(ctx, "[Pipeline] Event %d -> incident %d, labels=%v, risk=%s, score=%.2f, state=%s, duration=%v",
			eventID, run.incidentID, run.cls.Labels, run.cls.Risk, run.cls.Score, run.state, time.Since(start))
		return &Outcome{EventID: eventID, IncidentID: run.incidentID, State: run.state, Degraded: run.degraded}

	case errors.Is(err, errSkip):
		o.logger.Infof(ctx, "[Pipeline] Event %d not found, skipping", eventID)
		return &Outcome{EventID: eventID, IncidentID: NotProcessed, State: StateSkipped}

	default:
		failedAt := ""
		var stepErr *framework.StepError
		if errors.As(err, &stepErr) {
			failedAt = stepErr.Step
			err = stepErr.Err
		}
		metrics.StepFailuresTotal.WithLabelValues(failedAt).Inc()
		o.logger.Errorf(ctx, "[Pipeline] Event %d failed at %s (state=%s, retryable=%v): %v",
			eventID, failedAt, run.state, errorutil.IsRetryable(err), err)
		return &Outcome{
			EventID:    eventID,
			IncidentID: NotProcessed,
			State:      StateFailed,
			FailedAt:   failedAt,
			Err:        err,
			Degraded:   run.degraded,
		}
	}
}

func (o *Orchestrator) fetch(ctx context.Context, run *eventRun) error {
	ev, err := o.deps.Events.GetRawEvent(ctx, run.eventID)
	if err != nil {
		if errorutil.IsNotFound(err) {
			return errSkip
		}
		return err
	}
	run.event = ev
	run.state = StateFetched
	return nil
}

func (o *Orchestrator) classify(_ context.Context, run *eventRun) error {
	run.cls = o.deps.Classifier.Classify(PayloadOf(run.event.Payload))
	metrics.RiskTierTotal.WithLabelValues(string(run.cls.Risk)).Inc()
	run.state = StateClassified
	return nil
}

// checkAnomaly 只对带 latency 的 metric 事件打分；窗口读写失败不影响事故生成
func (o *Orchestrator) checkAnomaly(ctx context.Context, run *eventRun) error {
	if o.deps.Anomaly == nil {
		return nil
	}
	value, ok := ExtractLatency(run.event)
	if !ok {
		return nil
	}

	service := run.event.Source
	res, err := o.deps.Anomaly.Score(ctx, service, model.MetricLatency, value)
	if err != nil {
		o.logger.Warnf(ctx, "[Pipeline] Anomaly score failed for %s: %v", service, err)
		run.degrade(stepAnomaly)
	} else {
		run.anomaly = res
		run.state = StateAnomalyChecked
		if res.Sufficient {
			o.logger.Debugf(ctx, "[Pipeline] Anomaly %s latency=%v z=%.2f (mean=%.2f std=%.2f n=%d)",
				service, value, res.ZScore, res.Mean, res.StdDev, res.Samples)
		}
	}

	// 打分之后再写入，避免观测值污染自己的基线
	if o.recordObservations {
		if err := o.deps.Anomaly.Record(ctx, service, model.MetricLatency, value); err != nil {
			o.logger.Warnf(ctx, "[Pipeline] Anomaly record failed for %s: %v", service, err)
			run.degrade(stepRecord)
		}
	}
	return nil
}

func (o *Orchestrator) summarize(_ context.Context, run *eventRun) error {
	run.summary = BuildSummary(run.event, o.summaryChars)
	run.state = StateSummarized
	return nil
}

func (o *Orchestrator) embed(ctx context.Context, run *eventRun) error {
	vec, err := o.deps.Embedder.Embed(ctx, run.summary)
	if err != nil {
		return err
	}
	run.vector = vec
	run.state = StateEmbedded
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, run *eventRun) error {
	inc := &model.Incident{
		EventID:      run.eventID,
		Labels:       run.cls.LabelStrings(),
		SummaryText:  run.summary,
		AnomalyScore: run.anomaly.Score(),
		Confidence:   run.cls.Confidence,
		Evidence:     run.cls.Evidence,
	}
	id, err := o.deps.Incidents.InsertIncident(ctx, inc)
	if err != nil {
		return err
	}
	run.incidentID = id
	run.state = StatePersisted
	return nil
}

// index 失败只记录，事故仍可通过关系库查询
func (o *Orchestrator) index(ctx context.Context, run *eventRun) error {
	if o.deps.Index == nil {
		return nil
	}
	doc := &model.IndexDocument{
		IncidentID: run.incidentID,
		Summary:    run.summary,
		Labels:     run.cls.LabelStrings(),
		Service:    run.event.Source,
		Type:       string(run.event.Kind),
	}
	if err := o.deps.Index.Upsert(ctx, doc, run.vector); err != nil {
		o.logger.Warnf(ctx, "[Pipeline] Index incident %d failed: %v", run.incidentID, err)
		run.degrade(stepIndex)
		return nil
	}
	run.state = StateIndexed
	return nil
}

func (o *Orchestrator) notify(ctx context.Context, run *eventRun) error {
	n := o.deps.Notifier.NewIncident(run.incidentID, run.event.Source, notificationSummary(run.event))
	if err := o.deps.Notifier.Publish(ctx, n); err != nil {
		o.logger.Warnf(ctx, "[Pipeline] Notify incident %d failed: %v", run.incidentID, err)
		run.degrade(stepNotify)
		return nil
	}
	run.state = StateNotified
	return nil
}

func resultLabel(out *Outcome) string {
	switch {
	case out == nil:
		return metrics.ResultFailed
	case out.Skipped():
		return metrics.ResultSkipped
	case out.Processed():
		return metrics.ResultProcessed
	default:
		return metrics.ResultFailed
	}
}
