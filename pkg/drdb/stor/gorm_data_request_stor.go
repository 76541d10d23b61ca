package stor

import (
	"errors"
	"time"

	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/hashicorp/go-uuid"
	"gorm.io/gorm"
)

// ErrQuotaExhausted is returned by RecordDownload when the request is not
// approved or no downloads remain. The request row is left untouched.
var ErrQuotaExhausted = errors.New("download quota exhausted")

type GormDataRequestStor struct {
	db *gorm.DB
}

func NewGormDataRequestStor(db *gorm.DB) *GormDataRequestStor {
	return &GormDataRequestStor{db: db}
}

func (s *GormDataRequestStor) CreateDataRequest(req *model.DataRequest) (*model.DataRequest, error) {
	var err error

	if req.UUID, err = uuid.GenerateUUID(); err != nil {
		return nil, err
	}

	if req.Status == "" {
		req.Status = model.StatusPending
	}

	if req.MaxDownloads == 0 {
		req.MaxDownloads = model.DefaultMaxDownloads
	}

	err = WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Create(req).Error
	})

	if err != nil {
		return nil, err
	}

	return req, nil
}

func (s *GormDataRequestStor) GetDataRequestByID(requestID int) (*model.DataRequest, error) {
	var req model.DataRequest
	err := s.db.Preload("User").Preload("Dataset").
		Preload("Manager").Preload("Director").
		First(&req, requestID).Error
	if err != nil {
		return nil, err
	}

	return &req, nil
}

func (s *GormDataRequestStor) GetActiveRequestForUserAndDataset(userID, datasetID int) (*model.DataRequest, error) {
	var req model.DataRequest
	err := s.db.Where("user_id = ?", userID).
		Where("dataset_id = ?", datasetID).
		Where("status in ?", []string{model.StatusPending, model.StatusManagerReview, model.StatusDirectorReview}).
		First(&req).Error
	if err != nil {
		return nil, err
	}

	return &req, nil
}

func (s *GormDataRequestStor) GetApprovedRequestForUserAndDataset(userID, datasetID int) (*model.DataRequest, error) {
	var req model.DataRequest
	err := s.db.Where("user_id = ?", userID).
		Where("dataset_id = ?", datasetID).
		Where("status = ?", model.StatusApproved).
		First(&req).Error
	if err != nil {
		return nil, err
	}

	return &req, nil
}

func (s *GormDataRequestStor) ListRequestsForUser(userID int) ([]model.DataRequest, error) {
	var requests []model.DataRequest
	result := s.db.Preload("Dataset").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&requests)
	return requests, result.Error
}

func (s *GormDataRequestStor) ListRequestsByStatus(status string) ([]model.DataRequest, error) {
	var requests []model.DataRequest
	result := s.db.Preload("User").Preload("Dataset").
		Where("status = ?", status).
		Order("created_at").
		Find(&requests)
	return requests, result.Error
}

// SaveTransition persists the status and review fields mutated by a
// workflow transition as a single update.
func (s *GormDataRequestStor) SaveTransition(req *model.DataRequest) (*model.DataRequest, error) {
	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Model(req).
			Select("status", "manager_action", "director_action",
				"manager_id", "director_id",
				"manager_comment", "director_comment",
				"manager_review_date", "approved_date").
			Updates(map[string]interface{}{
				"status":              req.Status,
				"manager_action":      req.ManagerAction,
				"director_action":     req.DirectorAction,
				"manager_id":          req.ManagerID,
				"director_id":         req.DirectorID,
				"manager_comment":     req.ManagerComment,
				"director_comment":    req.DirectorComment,
				"manager_review_date": req.ManagerReviewDate,
				"approved_date":       req.ApprovedDate,
			}).Error
	})

	if err != nil {
		return nil, err
	}

	return req, nil
}

// RecordDownload consumes one quota unit with a single guarded update,
// so two concurrent downloads can't both consume the final unit. The
// entitlement check lives in the update's where clause and must match
// model.DataRequest.CanDownload.
func (s *GormDataRequestStor) RecordDownload(requestID int, now time.Time) (*model.DataRequest, error) {
	var req model.DataRequest

	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		result := tx.Model(&model.DataRequest{}).
			Where("id = ?", requestID).
			Where("status = ?", model.StatusApproved).
			Where("download_count < max_downloads").
			Updates(map[string]interface{}{
				"download_count": gorm.Expr("download_count + 1"),
				"last_download":  now,
			})

		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			// Distinguish a missing request from a spent or unapproved one.
			if err := tx.First(&req, requestID).Error; err != nil {
				return err
			}
			return ErrQuotaExhausted
		}

		return tx.First(&req, requestID).Error
	})

	if err != nil {
		return nil, err
	}

	return &req, nil
}
