// Package notify 新事故通知的多通道投递
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"opsguard/common/model"
	"opsguard/pkg/logger"
	"opsguard/pkg/metrics"
)

// Channel 通知通道
type Channel interface {
	Name() string
	Send(ctx context.Context, payload []byte) error
}

// Fanout 本地通道必达，远端通道尽力而为
type Fanout struct {
	local   Channel
	remotes []Channel
	logger  logger.Logger
	now     func() time.Time
}

// NewFanout 创建投递器
func NewFanout(local Channel, log logger.Logger, remotes ...Channel) *Fanout {
	return &Fanout{
		local:   local,
		remotes: remotes,
		logger:  log,
		now:     time.Now,
	}
}

// NewIncident 构造新事故通知
func (f *Fanout) NewIncident(incidentID int64, source, summary string) *model.Notification {
	return &model.Notification{
		Type:       model.NotificationTypeNewIncident,
		IncidentID: incidentID,
		Source:     source,
		Summary:    summary,
		Timestamp:  float64(f.now().UnixNano()) / float64(time.Second),
		Status:     model.NotificationStatusReady,
	}
}

// Publish 投递通知
// 只有本地通道失败才返回错误；远端通道失败记录日志和指标
func (f *Fanout) Publish(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification failed: %w", err)
	}

	if err := f.local.Send(ctx, payload); err != nil {
		metrics.NotificationFailuresTotal.WithLabelValues(f.local.Name()).Inc()
		return fmt.Errorf("notify %s failed: %w", f.local.Name(), err)
	}

	for _, ch := range f.remotes {
		if err := ch.Send(ctx, payload); err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(ch.Name()).Inc()
			f.logger.Warnf(ctx, "[Notify] %s delivery failed for incident %d: %v", ch.Name(), n.IncidentID, err)
			continue
		}
		f.logger.Debugf(ctx, "[Notify] %s delivered incident %d", ch.Name(), n.IncidentID)
	}
	return nil
}
