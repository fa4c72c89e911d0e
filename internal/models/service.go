package models

import (
	"time"
)

// SubService is a named sub-unit of a service (e.g. a bureau within a department)
type SubService struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service represents an organizational unit mail is routed to.
// Services are soft-deleted: archiving stamps the record and cascades to the
// service's open mail; restoring clears the stamp only.
type Service struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string       `gorm:"size:255;not null" json:"name"`
	SubServices []SubService `gorm:"serializer:json" json:"sub_services"`
	Archived    bool         `gorm:"default:false;index" json:"archived"`
	ArchivedAt  *time.Time   `json:"archived_at,omitempty"`
	ArchivedBy  *string      `gorm:"size:255" json:"archived_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// TableName returns the table name for Service
func (Service) TableName() string {
	return "services"
}

// SubService looks up a sub-unit by id
func (s *Service) SubService(id string) (SubService, bool) {
	for _, sub := range s.SubServices {
		if sub.ID == id {
			return sub, true
		}
	}
	return SubService{}, false
}
