package stor

import (
	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/hashicorp/go-uuid"
	"gorm.io/gorm"
)

type GormDatasetStor struct {
	db *gorm.DB
}

func NewGormDatasetStor(db *gorm.DB) *GormDatasetStor {
	return &GormDatasetStor{db: db}
}

func (s *GormDatasetStor) CreateDataset(dataset *model.Dataset) (*model.Dataset, error) {
	var err error

	if dataset.UUID, err = uuid.GenerateUUID(); err != nil {
		return nil, err
	}

	if dataset.Task == "" {
		dataset.Task = model.TaskOther
	}

	err = WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Create(dataset).Error
	})

	if err != nil {
		return nil, err
	}

	return dataset, nil
}

func (s *GormDatasetStor) GetDatasetByID(datasetID int) (*model.Dataset, error) {
	var dataset model.Dataset
	err := s.db.Preload("Files", func(db *gorm.DB) *gorm.DB {
		return db.Order("dataset_files.part_number")
	}).First(&dataset, datasetID).Error
	if err != nil {
		return nil, err
	}

	return &dataset, nil
}

func (s *GormDatasetStor) ListDatasets(filter DatasetFilter) ([]model.Dataset, error) {
	q := s.db.Model(&model.Dataset{})

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		q = q.Where("title like ? or description like ? or category like ?", pattern, pattern, pattern)
	}

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}

	if filter.Task != "" {
		q = q.Where("task = ?", filter.Task)
	}

	if filter.Format != "" {
		q = q.Where("format = ?", filter.Format)
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var datasets []model.Dataset
	result := q.Order("created_at desc").Find(&datasets)
	return datasets, result.Error
}

func (s *GormDatasetStor) AddDatasetFile(file *model.DatasetFile) (*model.DatasetFile, error) {
	var err error

	if file.UUID, err = uuid.GenerateUUID(); err != nil {
		return nil, err
	}

	err = WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Create(file).Error
	})

	if err != nil {
		return nil, err
	}

	return file, nil
}

// AddRating folds a score into the dataset's running average inside a
// transaction so concurrent ratings don't lose counts.
func (s *GormDatasetStor) AddRating(datasetID int, score float64) (*model.Dataset, error) {
	var dataset model.Dataset

	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		if err := tx.First(&dataset, datasetID).Error; err != nil {
			return err
		}

		dataset.AddRating(score)

		return tx.Model(&dataset).
			Select("rating", "rating_count").
			Updates(map[string]interface{}{
				"rating":       dataset.Rating,
				"rating_count": dataset.RatingCount,
			}).Error
	})

	if err != nil {
		return nil, err
	}

	return &dataset, nil
}

func (s *GormDatasetStor) IncrementDownloadCount(datasetID int) error {
	return WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Model(&model.Dataset{}).
			Where("id = ?", datasetID).
			UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
	})
}
