package model

import "time"

// User represents a user in the system.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"size:150;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Not exposed in API responses
	IsStaff      bool      `json:"isStaff" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
