package models

import (
	"time"
)

// NotificationType classifies what an in-portal notification is about
type NotificationType string

const (
	NotificationAppointmentConfirmed NotificationType = "appointment_confirmed"
	NotificationAppointmentRejected  NotificationType = "appointment_rejected"
	NotificationAppointmentCancelled NotificationType = "appointment_cancelled"
	NotificationProposalReceived     NotificationType = "proposal_received"
	NotificationCounterProposal      NotificationType = "counter_proposal"
	NotificationModificationRequest  NotificationType = "modification_request"
	NotificationNewBooking           NotificationType = "new_booking"
)

// Notification is an in-portal message shown in the bell menu. Created by the
// appointment handlers on lifecycle transitions; delivery channels (email,
// SMS) are out of scope.
type Notification struct {
	BaseModel
	UserID        string           `gorm:"size:36;index" json:"userId"`
	Type          NotificationType `gorm:"size:40" json:"type"`
	Title         string           `gorm:"size:255" json:"title"`
	Body          string           `gorm:"type:text" json:"body"`
	AppointmentID *uint            `gorm:"index" json:"appointmentId,omitempty"`
	IsRead        bool             `gorm:"default:false;index" json:"isRead"`
	ReadAt        *time.Time       `json:"readAt,omitempty"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}
