package model

import "time"

// Request lifecycle states. Transitions between them are validated by
// the workflow package; nothing else should assign Status directly.
const (
	StatusPending        = "pending"
	StatusManagerReview  = "manager_review"
	StatusDirectorReview = "director_review"
	StatusApproved       = "approved"
	StatusRejected       = "rejected"
)

// Manager sub-states.
const (
	ManagerActionNone             = ""
	ManagerActionRecommended      = "recommended"
	ManagerActionRejected         = "rejected"
	ManagerActionChangesRequested = "changes_requested"
)

// Director sub-states.
const (
	DirectorActionNone     = ""
	DirectorActionApproved = "approved"
	DirectorActionRejected = "rejected"
	DirectorActionReturned = "returned"
)

const DefaultMaxDownloads = 3

type DataRequest struct {
	ID        int      `json:"id"`
	UUID      string   `json:"uuid"`
	UserID    int      `json:"user_id"`
	User      *User    `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
	DatasetID int      `json:"dataset_id"`
	Dataset   *Dataset `json:"dataset,omitempty" gorm:"foreignKey:DatasetID;references:ID"`

	Status         string `json:"status"`
	ManagerAction  string `json:"manager_action"`
	DirectorAction string `json:"director_action"`

	Institution        string `json:"institution"`
	ProjectTitle       string `json:"project_title"`
	ProjectDescription string `json:"project_description"`

	ManagerID  *int  `json:"manager_id"`
	Manager    *User `json:"manager,omitempty" gorm:"foreignKey:ManagerID;references:ID"`
	DirectorID *int  `json:"director_id"`
	Director   *User `json:"director,omitempty" gorm:"foreignKey:DirectorID;references:ID"`

	ManagerComment  string `json:"manager_comment"`
	DirectorComment string `json:"director_comment"`

	ManagerReviewDate *time.Time `json:"manager_review_date"`
	ApprovedDate      *time.Time `json:"approved_date"`

	DownloadCount int        `json:"download_count"`
	MaxDownloads  int        `json:"max_downloads"`
	LastDownload  *time.Time `json:"last_download"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DataRequest) TableName() string {
	return "data_requests"
}

// CanDownload is the entitlement check: only approved requests with
// quota remaining may be issued download links.
func (r DataRequest) CanDownload() bool {
	return r.Status == StatusApproved && r.DownloadCount < r.MaxDownloads
}

func (r DataRequest) RemainingDownloads() int {
	remaining := r.MaxDownloads - r.DownloadCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsActive reports whether the request is still in review and so blocks
// a new submission for the same (user, dataset) pair. Approved and
// rejected requests never block a new one.
func (r DataRequest) IsActive() bool {
	switch r.Status {
	case StatusPending, StatusManagerReview, StatusDirectorReview:
		return true
	default:
		return false
	}
}

func (r DataRequest) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}
