package store

import (
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"gorm.io/gorm"
)

// Active keeps rows without deleted_at.
func Active() Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Where("deleted_at IS NULL") }
}

// Deleted keeps soft-deleted rows only.
func Deleted() Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Where("deleted_at IS NOT NULL") }
}

func Where(query string, args ...any) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Where(query, args...) }
}

func RefersTo(column string, id models.RecordID) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Where(column+" = ?", id) }
}

// Chronological orders by date, then creation order.
func Chronological() Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Order("date ASC").Order("created_at ASC").Order("id ASC") }
}

func OrderBy(order string) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Order(order) }
}
