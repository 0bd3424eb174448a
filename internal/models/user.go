package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity edge of the system. Authentication internals live
// outside the ledger; the wallet only needs the user id and activation
// state.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	IsActive     bool      `gorm:"not null;default:false"`
	Lifecycle    Lifecycle `gorm:"type:varchar(8);not null;default:'ACTIVE'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
