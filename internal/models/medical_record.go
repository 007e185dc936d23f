package models

import (
	"time"
)

// MedicalRecordType represents the type of medical record entry
type MedicalRecordType string

const (
	RecordTypeConsultation MedicalRecordType = "consultation_note"
	RecordTypeLabResult    MedicalRecordType = "lab_result"
	RecordTypePrescription MedicalRecordType = "prescription"
	RecordTypeFollowUp     MedicalRecordType = "follow_up_note"
)

// MedicalRecord is a clinical note attached to a patient, written by staff
// and readable by the patient from their portal. File attachments are out of
// scope for the portal.
type MedicalRecord struct {
	BaseModel
	PatientID  string            `gorm:"size:36;index" json:"patientId"`
	AuthorID   string            `gorm:"size:36;index" json:"authorId"`
	RecordType MedicalRecordType `gorm:"size:50" json:"recordType"`
	RecordDate time.Time         `json:"date"`
	Title      string            `gorm:"size:255;not null" json:"title"`
	Summary    string            `gorm:"type:text" json:"summary"`
	Details    string            `gorm:"type:text" json:"details"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Author  User `gorm:"foreignKey:AuthorID" json:"-"`
}
