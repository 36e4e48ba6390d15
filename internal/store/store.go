package store

import (
	"errors"

	"AmberWatch/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Migrate 自动迁移全部表结构
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.AllModels()...)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
