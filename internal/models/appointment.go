package models

import (
	"time"
)

// AppointmentStatus represents the lifecycle status of an appointment
type AppointmentStatus string

const (
	StatusPending                 AppointmentStatus = "pending"
	StatusConfirmed               AppointmentStatus = "confirmed"
	StatusAwaitingPatientResponse AppointmentStatus = "awaiting_patient_response"
	StatusAwaitingAdminResponse   AppointmentStatus = "awaiting_admin_response"
	StatusRejectedByPatient       AppointmentStatus = "rejected_by_patient"
	StatusModificationPending     AppointmentStatus = "modification_pending"
	StatusRejected                AppointmentStatus = "rejected"
	StatusCancelled               AppointmentStatus = "cancelled"
	StatusCompleted               AppointmentStatus = "completed"
	StatusNoShow                  AppointmentStatus = "no_show"
)

// StatusInfo holds the display metadata for a status (badge label and color
// category used by the portal frontend).
type StatusInfo struct {
	Label    string `json:"label"`
	Category string `json:"category"`
}

var statusInfo = map[AppointmentStatus]StatusInfo{
	StatusPending:                 {Label: "New request", Category: "orange"},
	StatusConfirmed:               {Label: "Confirmed", Category: "green"},
	StatusAwaitingPatientResponse: {Label: "Proposal sent", Category: "blue"},
	StatusAwaitingAdminResponse:   {Label: "Counter-proposal received", Category: "purple"},
	StatusRejectedByPatient:       {Label: "Rejected by patient", Category: "red"},
	StatusModificationPending:     {Label: "Modification requested", Category: "amber"},
	StatusRejected:                {Label: "Rejected", Category: "red"},
	StatusCancelled:               {Label: "Cancelled", Category: "red"},
	StatusCompleted:               {Label: "Completed", Category: "gray"},
	StatusNoShow:                  {Label: "No show", Category: "gray"},
}

// Display returns the display metadata for a status. Unknown status values
// (schema drift between client and server) fall back to the pending metadata
// instead of failing, so the UI degrades gracefully.
func (s AppointmentStatus) Display() StatusInfo {
	if info, ok := statusInfo[s]; ok {
		return info
	}
	return statusInfo[StatusPending]
}

// IsValid reports whether s is one of the defined status values.
func (s AppointmentStatus) IsValid() bool {
	_, ok := statusInfo[s]
	return ok
}

// IsTerminal reports whether s is a final status from which no further
// transitions are offered. rejected and rejected_by_patient stay distinct
// members even though they display alike.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case StatusRejectedByPatient, StatusRejected, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Actor identifies which side of the desk is acting on an appointment.
type Actor string

const (
	ActorPatient Actor = "patient"
	ActorStaff   Actor = "staff"
)

// AppointmentAction represents a lifecycle transition a caller may request.
type AppointmentAction string

const (
	ActionConfirm        AppointmentAction = "confirm"
	ActionPropose        AppointmentAction = "propose"
	ActionReject         AppointmentAction = "reject"
	ActionCancel         AppointmentAction = "cancel"
	ActionModify         AppointmentAction = "modify"
	ActionComplete       AppointmentAction = "complete"
	ActionNoShow         AppointmentAction = "no_show"
	ActionAccept         AppointmentAction = "accept"
	ActionCounterPropose AppointmentAction = "counter_propose"
)

// PermittedActions returns the set of actions an actor may take on an
// appointment in status s. The 24-hour eligibility window is a separate
// check on top of this (see CanBeModifiedByPatient); both must pass before
// a patient-facing modify/cancel action is offered.
func (s AppointmentStatus) PermittedActions(actor Actor) []AppointmentAction {
	switch s {
	case StatusPending:
		if actor == ActorStaff {
			return []AppointmentAction{ActionConfirm, ActionPropose, ActionReject}
		}
		return []AppointmentAction{ActionCancel}
	case StatusConfirmed:
		if actor == ActorStaff {
			return []AppointmentAction{ActionCancel, ActionComplete, ActionNoShow}
		}
		return []AppointmentAction{ActionModify, ActionCancel}
	case StatusAwaitingPatientResponse:
		if actor == ActorPatient {
			return []AppointmentAction{ActionAccept, ActionCounterPropose}
		}
		return nil
	case StatusAwaitingAdminResponse, StatusModificationPending:
		if actor == ActorStaff {
			return []AppointmentAction{ActionAccept, ActionReject}
		}
		return nil
	}
	// Terminal or unknown status: history only, no actions.
	return nil
}

// ConsultationType represents the kind of visit being booked
type ConsultationType string

const (
	ConsultationGeneral     ConsultationType = "generale"
	ConsultationSpecialized ConsultationType = "specialisee"
	ConsultationFollowUp    ConsultationType = "suivi"
	ConsultationEmergency   ConsultationType = "urgence"
)

var consultationLabels = map[ConsultationType]string{
	ConsultationGeneral:     "General consultation",
	ConsultationSpecialized: "Specialized consultation",
	ConsultationFollowUp:    "Follow-up consultation",
	ConsultationEmergency:   "Emergency",
}

// Label returns a human-readable name for the consultation type, or the raw
// value when the type is not recognized.
func (t ConsultationType) Label() string {
	if label, ok := consultationLabels[t]; ok {
		return label
	}
	return string(t)
}

// IsValid reports whether t is one of the defined consultation types.
func (t ConsultationType) IsValid() bool {
	_, ok := consultationLabels[t]
	return ok
}

// PatientModificationCutoff is the minimum lead time before the appointment
// start at which a patient may still modify or cancel it.
// TODO: promote to clinic configuration once a settings surface exists.
const PatientModificationCutoff = 24 * time.Hour

// DateLayout and TimeLayout are the wire formats for the date and time fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Appointment represents one scheduled clinic visit. Patient contact fields
// are carried inline so visits booked before registration still have an
// owner; PatientID links to a portal account when one exists.
type Appointment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	PatientID        *string `gorm:"size:36;index" json:"patientId,omitempty"`
	PatientFirstName string  `gorm:"size:100;not null" json:"patientFirstName"`
	PatientLastName  string  `gorm:"size:100;not null" json:"patientLastName"`
	PatientEmail     string  `gorm:"size:255;index" json:"patientEmail"`
	PatientPhone     string  `gorm:"size:20" json:"patientPhone"`

	Date             string            `gorm:"size:10;index:idx_slot" json:"date"` // YYYY-MM-DD
	Time             string            `gorm:"size:5;index:idx_slot" json:"time"`  // HH:MM
	ConsultationType ConsultationType  `gorm:"size:20;default:'generale'" json:"consultationType"`
	Reason           string            `gorm:"type:text" json:"reason"`
	Status           AppointmentStatus `gorm:"size:30;default:'pending';index" json:"status"`

	// Proposal fields, only meaningful while status is
	// awaiting_patient_response, awaiting_admin_response or
	// modification_pending.
	ProposedDate             string           `gorm:"size:10" json:"proposedDate,omitempty"`
	ProposedTime             string           `gorm:"size:5" json:"proposedTime,omitempty"`
	ProposedConsultationType ConsultationType `gorm:"size:20" json:"proposedConsultationType,omitempty"`

	AdminMessage       string `gorm:"type:text" json:"adminMessage,omitempty"`
	PatientMessage     string `gorm:"type:text" json:"patientMessage,omitempty"`
	RejectionReason    string `gorm:"type:text" json:"rejectionReason,omitempty"`
	CancellationReason string `gorm:"type:text" json:"cancellationReason,omitempty"`

	ConfirmedAt    *time.Time `json:"confirmedAt,omitempty"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
	RespondedAt    *time.Time `json:"respondedAt,omitempty"`
	ProposalSentAt *time.Time `json:"proposalSentAt,omitempty"`

	// Relations
	Patient   *User                 `gorm:"foreignKey:PatientID" json:"-"`
	History   []AppointmentHistory  `gorm:"foreignKey:AppointmentID" json:"-"`
	Proposals []AppointmentProposal `gorm:"foreignKey:AppointmentID" json:"-"`
}

// ActiveStatuses are the statuses that occupy a booking slot. At most one
// appointment per date+time slot may be in one of these.
var ActiveStatuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
	StatusAwaitingPatientResponse,
	StatusAwaitingAdminResponse,
	StatusModificationPending,
}

// StartsAt combines the date and time fields into a single instant in the
// clinic's local time zone.
func (a *Appointment) StartsAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.Time, time.Local)
}

// CanBeModifiedByPatient reports whether the patient may still modify the
// appointment at the given instant: the appointment must be confirmed and
// start at least PatientModificationCutoff from now. The comparison is exact
// (no rounding): 23h59m fails, 24h00m on the dot passes. Appointments already
// in the past are never eligible.
func (a *Appointment) CanBeModifiedByPatient(now time.Time) bool {
	if a.Status != StatusConfirmed {
		return false
	}
	startsAt, err := a.StartsAt()
	if err != nil {
		return false
	}
	return !startsAt.Before(now.Add(PatientModificationCutoff))
}

// CanBeCancelledByPatient follows the same 24-hour rule as modification.
func (a *Appointment) CanBeCancelledByPatient(now time.Time) bool {
	return a.CanBeModifiedByPatient(now)
}

// HistoryAction represents the kind of change recorded in the audit trail
type HistoryAction string

const (
	HistoryCreated          HistoryAction = "created"
	HistoryConfirmed        HistoryAction = "confirmed"
	HistoryRejected         HistoryAction = "rejected"
	HistoryProposalSent     HistoryAction = "proposal_sent"
	HistoryProposalAccepted HistoryAction = "proposal_accepted"
	HistoryProposalRejected HistoryAction = "proposal_rejected"
	HistoryCounterProposed  HistoryAction = "counter_proposed"
	HistoryModified         HistoryAction = "modified"
	HistoryCancelled        HistoryAction = "cancelled"
	HistoryCompleted        HistoryAction = "completed"
	HistoryNoShow           HistoryAction = "no_show"
)

// AppointmentHistory records one change to an appointment for the timeline
// shown in the admin portal.
type AppointmentHistory struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time     `json:"createdAt"`
	AppointmentID uint          `gorm:"index" json:"appointmentId"`
	Action        HistoryAction `gorm:"size:30" json:"action"`
	ActorID       *string       `gorm:"size:36" json:"actorId,omitempty"`
	ActorType     Actor         `gorm:"size:20" json:"actorType"`

	OldDate   string            `gorm:"size:10" json:"oldDate,omitempty"`
	OldTime   string            `gorm:"size:5" json:"oldTime,omitempty"`
	OldStatus AppointmentStatus `gorm:"size:30" json:"oldStatus,omitempty"`
	NewDate   string            `gorm:"size:10" json:"newDate,omitempty"`
	NewTime   string            `gorm:"size:5" json:"newTime,omitempty"`
	NewStatus AppointmentStatus `gorm:"size:30" json:"newStatus,omitempty"`

	Message string `gorm:"type:text" json:"message,omitempty"`
	Reason  string `gorm:"type:text" json:"reason,omitempty"`

	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}

// ProposalDirection indicates who sent a reschedule proposal
type ProposalDirection string

const (
	ProposalAdminToPatient ProposalDirection = "admin_to_patient"
	ProposalPatientToAdmin ProposalDirection = "patient_to_admin"
)

// ProposalStatus represents the state of a reschedule proposal
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
	ProposalExpired  ProposalStatus = "expired"
)

// ProposalTTL is how long a reschedule proposal stays open before expiring.
const ProposalTTL = 7 * 24 * time.Hour

// AppointmentProposal is one alternate-slot suggestion attached to an
// appointment, sent by either side.
type AppointmentProposal struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time         `json:"createdAt"`
	AppointmentID uint              `gorm:"index" json:"appointmentId"`
	Direction     ProposalDirection `gorm:"size:20" json:"direction"`
	Status        ProposalStatus    `gorm:"size:20;default:'pending'" json:"status"`

	ProposedDate             string           `gorm:"size:10" json:"proposedDate"`
	ProposedTime             string           `gorm:"size:5" json:"proposedTime"`
	ProposedConsultationType ConsultationType `gorm:"size:20" json:"proposedConsultationType,omitempty"`
	Message                  string           `gorm:"type:text" json:"message,omitempty"`

	ProposedBy      *string    `gorm:"size:36" json:"proposedBy,omitempty"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	RespondedAt     *time.Time `json:"respondedAt,omitempty"`
	ResponseMessage string     `gorm:"type:text" json:"responseMessage,omitempty"`

	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}

// IsExpired reports whether the proposal has lapsed without a response.
func (p *AppointmentProposal) IsExpired(now time.Time) bool {
	return p.Status == ProposalPending && now.After(p.ExpiresAt)
}
