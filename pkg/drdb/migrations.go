package drdb

import (
	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// RunMigrations brings the schema up to date. A fresh database is created
// in one shot from the current models; versioned migrations are appended
// as the schema evolves.
func RunMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())

	m.InitSchema(func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&model.User{},
			&model.Dataset{},
			&model.DatasetFile{},
			&model.DataRequest{},
			&model.Notification{},
		)
	})

	return m.Migrate()
}

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202608010001",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.Notification{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("notifications")
			},
		},
	}
}
