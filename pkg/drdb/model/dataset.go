package model

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
)

const (
	TaskClassification = "classification"
	TaskRegression     = "regression"
	TaskSegmentation   = "segmentation"
	TaskDetection      = "detection"
	TaskPrediction     = "prediction"
	TaskOther          = "other"
)

type Dataset struct {
	ID            int           `json:"id"`
	UUID          string        `json:"uuid"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Category      string        `json:"category"`
	Task          string        `json:"task"`
	Format        string        `json:"format"`
	Rating        float64       `json:"rating"`
	RatingCount   int           `json:"rating_count"`
	DownloadCount int           `json:"download_count"`
	OwnerID       int           `json:"owner_id"`
	Owner         *User         `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Files         []DatasetFile `json:"files,omitempty" gorm:"foreignKey:DatasetID;references:ID"`

	// Legacy single-file datasets predate the parts table. They carry the
	// object key and size directly on the dataset row.
	DatasetPath string `json:"dataset_path"`
	B2FileSize  int64  `json:"b2_file_size"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Dataset) TableName() string {
	return "datasets"
}

// GetTotalSize returns the sum of the part sizes, falling back to the
// legacy single-file size when no parts exist.
func (d Dataset) GetTotalSize() int64 {
	if len(d.Files) == 0 {
		return d.B2FileSize
	}

	var total int64
	for _, f := range d.Files {
		total += f.SizeBytes
	}

	return total
}

// GetFileCount counts a legacy dataset with only a dataset_path as a
// single downloadable file.
func (d Dataset) GetFileCount() int {
	if len(d.Files) != 0 {
		return len(d.Files)
	}

	if d.DatasetPath != "" {
		return 1
	}

	return 0
}

func (d Dataset) ArchiveName() string {
	return fmt.Sprintf("%s.zip", slug.Make(d.Title))
}

// AddRating folds a new 0..10 score into the running average.
func (d *Dataset) AddRating(score float64) {
	total := d.Rating*float64(d.RatingCount) + score
	d.RatingCount++
	d.Rating = total / float64(d.RatingCount)
}

type DatasetFile struct {
	ID         int       `json:"id"`
	UUID       string    `json:"uuid"`
	DatasetID  int       `json:"dataset_id"`
	PartNumber int       `json:"part_number"`
	Name       string    `json:"name"`
	StorageKey string    `json:"storage_key"`
	SizeBytes  int64     `json:"size_bytes"`
	Checksum   string    `json:"checksum"`
	MimeType   string    `json:"mime_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (DatasetFile) TableName() string {
	return "dataset_files"
}
