package database

import "gorm.io/gorm"

// Paginate windows a query to one page of results. Callers pass an already
// validated page and size; page numbering starts at 1.
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
