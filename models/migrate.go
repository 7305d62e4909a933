package models

import "gorm.io/gorm"

// AutoMigrate creates or updates every table used by the API
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Supplier{},
		&Product{},
		&Address{},
		&Project{},
		&ProjectMember{},
		&Task{},
		&Order{},
		&OrderHistory{},
		&Expense{},
		&TalentProfile{},
		&Invite{},
	)
}
