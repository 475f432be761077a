package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a seller account. Each product belongs to exactly one user.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	// Email receives outcome notices; nil opts out.
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }
