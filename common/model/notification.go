package model

// Notification 新事故通知（不落库，每个通道各自投递一份）
type Notification struct {
	Type       string  `json:"type"`
	IncidentID int64   `json:"incident_id"`
	Source     string  `json:"source"`
	Summary    string  `json:"summary"`
	Timestamp  float64 `json:"timestamp"` // unix 秒
	Status     string  `json:"status"`
}

// 通知常量
const (
	NotificationTypeNewIncident = "new_incident"
	NotificationStatusReady     = "ready_for_agent"
)
