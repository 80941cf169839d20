package domains

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"

	"opsguard/internal/business/pipeline"
	"opsguard/pkg/errorutil"
	"opsguard/pkg/lmstfyx"
	"opsguard/pkg/logger"
	"opsguard/pkg/metrics"
)

// EventProcessor 单事件处理入口
type EventProcessor interface {
	Process(ctx context.Context, eventID int64) *pipeline.Outcome
}

// jobReport 处理结果摘要（JobResp.Data）
type jobReport struct {
	EventID    int64    `json:"event_id"`
	IncidentID int64    `json:"incident_id"`
	State      string   `json:"state"`
	FailedAt   string   `json:"failed_at,omitempty"`
	Error      string   `json:"error,omitempty"`
	Degraded   []string `json:"degraded,omitempty"`
}

// GetProcess 返回核心处理函数（注入到 Processor）
func GetProcess(log logger.Logger, processor EventProcessor) lmstfyx.Proc {
	return func(ctx context.Context, job *client.Job) *lmstfyx.JobResp {
		startTime := time.Now()

		// 1. 解析队列消息
		item, err := ParseQueueItem(job.Data)
		if err != nil {
			metrics.QueueItemsTotal.WithLabelValues("malformed").Inc()
			log.Errorf(ctx, "[GetProcess] Skipping malformed queue item %s: %v (data=%q)", job.ID, err, truncate(job.Data, 200))
			return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
		}
		metrics.QueueItemsTotal.WithLabelValues("ok").Inc()

		// 2. 注入 TraceID
		traceID := item.TraceID
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx = logger.WithTraceID(ctx, traceID)
		ctx = logger.WithEventID(ctx, item.EventID)

		log.Debugf(ctx, "[GetProcess] Processing job %s: event_id=%d", job.ID, item.EventID)

		// 3. 调用流水线（捕获 panic）
		var resp *lmstfyx.JobResp
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf(ctx, "[GetProcess] processor panic: %v", r)
					resp = &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
				}
			}()

			out := processor.Process(ctx, item.EventID)
			resp = doJobReport(ctx, out, log)
		}()

		// 4. 记录处理时长
		log.Infof(ctx, "[GetProcess] Processing complete: action=%s, duration=%v", resp.Action, time.Since(startTime))

		return resp
	}
}

// doJobReport 根据处理结果决定 ACK/Bury/Release
// 成功与无害空操作 ACK；可重试失败 Release 等待重新投递；其余 Bury
func doJobReport(ctx context.Context, out *pipeline.Outcome, log logger.Logger) *lmstfyx.JobResp {
	if out == nil {
		return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
	}

	report := jobReport{
		EventID:    out.EventID,
		IncidentID: out.IncidentID,
		State:      string(out.State),
		FailedAt:   out.FailedAt,
		Degraded:   out.Degraded,
	}
	if out.Err != nil {
		report.Error = out.Err.Error()
	}

	data, err := json.Marshal(report)
	if err != nil {
		log.Errorf(ctx, "[doJobReport] marshal report failed: %v", err)
	}

	action := lmstfyx.JobRespStatusSuccess
	switch {
	case out.Processed(), out.Skipped():
	case errorutil.IsRetryable(out.Err):
		action = lmstfyx.JobRespStatusRelease
	default:
		action = lmstfyx.JobRespStatusBury
	}

	return &lmstfyx.JobResp{Action: action, Data: data}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
