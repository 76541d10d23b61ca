package stor

import (
	"github.com/datican/datarepo/pkg/drdb/model"
	"gorm.io/gorm"
)

type GormNotificationStor struct {
	db *gorm.DB
}

func NewGormNotificationStor(db *gorm.DB) *GormNotificationStor {
	return &GormNotificationStor{db: db}
}

func (s *GormNotificationStor) RecordNotification(n *model.Notification) (*model.Notification, error) {
	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Create(n).Error
	})

	if err != nil {
		return nil, err
	}

	return n, nil
}

func (s *GormNotificationStor) GetLastNotificationForRequest(requestID int, kind string) (*model.Notification, error) {
	var n model.Notification
	err := s.db.Where("data_request_id = ?", requestID).
		Where("kind = ?", kind).
		Order("id desc").
		First(&n).Error
	if err != nil {
		return nil, err
	}

	return &n, nil
}
