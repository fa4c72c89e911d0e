package models

import (
	"time"
)

// Correspondent is an external contact mail is exchanged with.
// Only the name is required; correspondents are hard-deletable.
type Correspondent struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string    `gorm:"size:255;not null;index" json:"name"`
	Email        *string   `gorm:"size:255" json:"email,omitempty"`
	Organization *string   `gorm:"size:255" json:"organization,omitempty"`
	Phone        *string   `gorm:"size:50" json:"phone,omitempty"`
	Address      *string   `gorm:"size:500" json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the table name for Correspondent
func (Correspondent) TableName() string {
	return "correspondents"
}
