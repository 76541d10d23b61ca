package stor

import (
	"time"

	"github.com/datican/datarepo/pkg/drdb/model"
	"gorm.io/gorm"
)

type UserStor interface {
	CreateUser(user *model.User) (*model.User, error)
	GetUserByID(userID int) (*model.User, error)
	GetUserByAPIToken(apitoken string) (*model.User, error)
	GetActiveUsersByRole(role string) ([]model.User, error)
}

type DatasetStor interface {
	CreateDataset(dataset *model.Dataset) (*model.Dataset, error)
	GetDatasetByID(datasetID int) (*model.Dataset, error)
	ListDatasets(filter DatasetFilter) ([]model.Dataset, error)
	AddDatasetFile(file *model.DatasetFile) (*model.DatasetFile, error)
	AddRating(datasetID int, score float64) (*model.Dataset, error)
	IncrementDownloadCount(datasetID int) error
}

// DatasetFilter narrows ListDatasets. Zero values mean "no filter".
type DatasetFilter struct {
	Query    string
	Category string
	Task     string
	Format   string
	Limit    int
	Offset   int
}

type DataRequestStor interface {
	CreateDataRequest(req *model.DataRequest) (*model.DataRequest, error)
	GetDataRequestByID(requestID int) (*model.DataRequest, error)
	GetActiveRequestForUserAndDataset(userID, datasetID int) (*model.DataRequest, error)
	GetApprovedRequestForUserAndDataset(userID, datasetID int) (*model.DataRequest, error)
	ListRequestsForUser(userID int) ([]model.DataRequest, error)
	ListRequestsByStatus(status string) ([]model.DataRequest, error)
	SaveTransition(req *model.DataRequest) (*model.DataRequest, error)
	RecordDownload(requestID int, now time.Time) (*model.DataRequest, error)
}

type NotificationStor interface {
	RecordNotification(n *model.Notification) (*model.Notification, error)
	GetLastNotificationForRequest(requestID int, kind string) (*model.Notification, error)
}

type Stors struct {
	UserStor         UserStor
	DatasetStor      DatasetStor
	DataRequestStor  DataRequestStor
	NotificationStor NotificationStor
}

func NewGormStors(db *gorm.DB) *Stors {
	return &Stors{
		UserStor:         NewGormUserStor(db),
		DatasetStor:      NewGormDatasetStor(db),
		DataRequestStor:  NewGormDataRequestStor(db),
		NotificationStor: NewGormNotificationStor(db),
	}
}
