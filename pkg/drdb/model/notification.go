package model

import "time"

// Notification kinds, one per workflow email.
const (
	NotificationAcknowledgment = "acknowledgment"
	NotificationStaffReview    = "staff_review"
	NotificationApproval       = "approval"
	NotificationRejection      = "rejection"
	NotificationStatusUpdate   = "status_update"
	NotificationStaffFallback  = "staff_fallback"
)

// Notification records every outbound email attempt for a data request so
// that staff can see failed sends and re-trigger them. Sends themselves are
// best-effort; failing to record one is logged and otherwise ignored.
type Notification struct {
	ID            int       `json:"id"`
	DataRequestID int       `json:"data_request_id"`
	Kind          string    `json:"kind"`
	Recipient     string    `json:"recipient"`
	Sent          bool      `json:"sent"`
	SendError     string    `json:"send_error"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
