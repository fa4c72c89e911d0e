package models

import (
	"time"
)

// MailDirection distinguishes incoming from outgoing correspondence
type MailDirection string

const (
	DirectionIncoming MailDirection = "incoming"
	DirectionOutgoing MailDirection = "outgoing"
)

// MailStatus is the handling state of a mail item.
// The stats aggregator enumerates exactly these four values; adding a status
// requires updating CanonicalStatuses in lockstep.
type MailStatus string

const (
	StatusReceived   MailStatus = "received"
	StatusInProgress MailStatus = "in-progress"
	StatusProcessed  MailStatus = "processed"
	StatusArchived   MailStatus = "archived"
)

// CanonicalStatuses lists every mail status in workflow order
var CanonicalStatuses = []MailStatus{
	StatusReceived,
	StatusInProgress,
	StatusProcessed,
	StatusArchived,
}

// ValidStatus reports whether s is one of the canonical statuses
func ValidStatus(s MailStatus) bool {
	for _, v := range CanonicalStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// MailChannel is the physical channel a mail item arrived or left through
type MailChannel string

const (
	ChannelLetter        MailChannel = "letter"
	ChannelEmail         MailChannel = "email"
	ChannelHandDelivered MailChannel = "hand-delivered"
	ChannelParcel        MailChannel = "parcel"
)

// ValidChannel reports whether c is a known mail channel
func ValidChannel(c MailChannel) bool {
	switch c {
	case ChannelLetter, ChannelEmail, ChannelHandDelivered, ChannelParcel:
		return true
	}
	return false
}

// WorkflowEntry is an immutable audit record appended on every status change.
// The comment lives only here, never on the mail item itself.
type WorkflowEntry struct {
	Status    MailStatus `json:"status"`
	UserID    string     `json:"user_id"`
	UserName  string     `json:"user_name"`
	Timestamp time.Time  `json:"timestamp"`
	Comment   *string    `json:"comment,omitempty"`
}

// Attachment is an opaque document embedded in a mail item.
// Data marshals to base64 in JSON.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"data"`
}

// MailSummary is a denormalized snapshot of another mail item's display
// fields, stored for listing a reply thread without a join.
type MailSummary struct {
	ID        string        `json:"id"`
	Reference string        `json:"reference"`
	Direction MailDirection `json:"direction"`
	Subject   string        `json:"subject"`
	CreatedAt time.Time     `json:"created_at"`
	Status    MailStatus    `json:"status"`
}

// Mail is a tracked correspondence item. Correspondent and service names are
// denormalized at creation time and never re-synced when the referenced record
// is renamed; that staleness is a deliberate trade-off inherited from the
// registry's paper ledgers.
type Mail struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Direction        MailDirection   `gorm:"type:varchar(10);not null;index" json:"direction"`
	Reference        string          `gorm:"uniqueIndex;size:20;not null" json:"reference"`
	Subject          string          `gorm:"size:500;not null" json:"subject"`
	Body             string          `json:"body"`
	CorrespondentID  string          `gorm:"type:varchar(36);index" json:"correspondent_id"`
	CorrespondentName string         `gorm:"size:255" json:"correspondent_name"`
	ServiceID        string          `gorm:"type:varchar(36);index" json:"service_id"`
	ServiceName      string          `gorm:"size:255" json:"service_name"`
	SubServiceID     *string         `gorm:"type:varchar(36)" json:"sub_service_id,omitempty"`
	SubServiceName   *string         `gorm:"size:255" json:"sub_service_name,omitempty"`
	AssigneeID       *string         `gorm:"type:varchar(36);index" json:"assignee_id,omitempty"`
	AssigneeName     *string         `gorm:"size:255" json:"assignee_name,omitempty"`
	Status           MailStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	Workflow         []WorkflowEntry `gorm:"serializer:json" json:"workflow"`
	Attachments      []Attachment    `gorm:"serializer:json" json:"attachments"`
	CreatedAt        time.Time       `json:"created_at"`
	FirstOpenedByID  *string         `gorm:"type:varchar(36)" json:"first_opened_by_id,omitempty"`
	FirstOpenedByName *string        `gorm:"size:255" json:"first_opened_by_name,omitempty"`
	FirstOpenedAt    *time.Time      `json:"first_opened_at,omitempty"`
	ParentID         *string         `gorm:"type:varchar(36);index" json:"parent_id,omitempty"`
	ParentReference  *string         `gorm:"size:20" json:"parent_reference,omitempty"`
	Children         []MailSummary   `gorm:"serializer:json" json:"children"`
	Channel          MailChannel     `gorm:"type:varchar(20);not null;default:'letter'" json:"channel"`
	Registered       bool            `gorm:"default:false" json:"registered"`
	TrackingNumber   *string         `gorm:"size:100" json:"tracking_number,omitempty"`
}

// TableName returns the table name for Mail
func (Mail) TableName() string {
	return "mails"
}

// Summary returns the denormalized snapshot pushed onto a parent's child list
func (m *Mail) Summary() MailSummary {
	return MailSummary{
		ID:        m.ID,
		Reference: m.Reference,
		Direction: m.Direction,
		Subject:   m.Subject,
		CreatedAt: m.CreatedAt,
		Status:    m.Status,
	}
}

// Opened reports whether the first-view stamps have been set
func (m *Mail) Opened() bool {
	return m.FirstOpenedByID != nil && *m.FirstOpenedByID != ""
}
