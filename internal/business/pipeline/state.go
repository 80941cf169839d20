package pipeline

// State 单个事件的处理状态
type State string

const (
	StateFetched        State = "FETCHED"
	StateClassified     State = "CLASSIFIED"
	StateAnomalyChecked State = "ANOMALY_CHECKED"
	StateSummarized     State = "SUMMARIZED"
	StateEmbedded       State = "EMBEDDED"
	StatePersisted      State = "PERSISTED"
	StateIndexed        State = "INDEXED"
	StateNotified       State = "NOTIFIED"
	StateFailed         State = "FAILED"
	// StateSkipped 事件不存在，无害的空操作
	StateSkipped State = "SKIPPED"
)

// NotProcessed 未产生事故时的 IncidentID
const NotProcessed int64 = 0

// Outcome 单个事件的处理结果
type Outcome struct {
	EventID    int64
	IncidentID int64
	State      State
	// FailedAt 失败时所处的步骤
	FailedAt string
	Err      error
	// Degraded 被吞掉的非关键步骤失败（index/notify/anomaly）
	Degraded []string
}

// Processed 是否成功产生事故
func (o *Outcome) Processed() bool {
	return o.IncidentID != NotProcessed && o.State != StateFailed
}

// Skipped 事件不存在
func (o *Outcome) Skipped() bool {
	return o.State == StateSkipped
}
