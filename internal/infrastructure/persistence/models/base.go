package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides the identity and timestamp columns shared by the
// reference tables. Scan events keep their own layout since they are
// append-only and carry no updated_at.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// EnsureID assigns a fresh ID when none is set and returns it
func (m *BaseModel) EnsureID() uuid.UUID {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return m.ID
}
