package portalclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// StatusInfo is the badge metadata attached to an appointment status.
type StatusInfo struct {
	Label    string `json:"label"`
	Category string `json:"category"`
}

// Appointment is one clinic visit with its display metadata and the actions
// the caller may take on it.
type Appointment struct {
	ID               uint   `json:"id"`
	PatientFirstName string `json:"patientFirstName"`
	PatientLastName  string `json:"patientLastName"`
	PatientEmail     string `json:"patientEmail"`
	PatientPhone     string `json:"patientPhone"`

	Date             string `json:"date"`
	Time             string `json:"time"`
	ConsultationType string `json:"consultationType"`
	Reason           string `json:"reason"`
	Status           string `json:"status"`

	ProposedDate             string `json:"proposedDate,omitempty"`
	ProposedTime             string `json:"proposedTime,omitempty"`
	ProposedConsultationType string `json:"proposedConsultationType,omitempty"`

	AdminMessage       string `json:"adminMessage,omitempty"`
	PatientMessage     string `json:"patientMessage,omitempty"`
	RejectionReason    string `json:"rejectionReason,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`

	StatusInfo StatusInfo `json:"statusInfo"`
	Actions    []string   `json:"actions"`
	CanModify  bool       `json:"canModify"`
	CanCancel  bool       `json:"canCancel"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookingParams are the fields for booking a new visit.
type BookingParams struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	Date             string `json:"date"` // YYYY-MM-DD
	Time             string `json:"time"` // HH:MM
	ConsultationType string `json:"consultationType"`
	Reason           string `json:"reason,omitempty"`
}

// BookAppointment requests a new visit. The result starts in pending until
// the clinic responds. A 409 means the slot was taken; see IsConflict.
func (c *Client) BookAppointment(ctx context.Context, params BookingParams) (*Appointment, error) {
	var appt Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments", params, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListOptions filter an appointment listing. All fields are optional.
type ListOptions struct {
	Status    string
	Date      string // YYYY-MM-DD
	PatientID string
}

// ListAppointments returns the caller's appointments (all of them for staff).
func (c *Client) ListAppointments(ctx context.Context, opts ListOptions) ([]Appointment, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Date != "" {
		q.Set("date", opts.Date)
	}
	if opts.PatientID != "" {
		q.Set("patientId", opts.PatientID)
	}
	path := "/appointments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var appts []Appointment
	if err := c.do(ctx, http.MethodGet, path, nil, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

// GetAppointment fetches one appointment.
func (c *Client) GetAppointment(ctx context.Context, id uint) (*Appointment, error) {
	var appt Appointment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/appointments/%d", id), nil, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

type reasonBody struct {
	Reason string `json:"reason,omitempty"`
}

type messageBody struct {
	Message string `json:"message,omitempty"`
}

// CancelAppointment cancels a visit. For patients this is refused with 422
// when the visit is less than 24 hours away.
func (c *Client) CancelAppointment(ctx context.Context, id uint, reason string) (*Appointment, error) {
	var appt Appointment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/cancel", id), reasonBody{Reason: reason}, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// AcceptProposal accepts the clinic's proposed slot, confirming the visit.
func (c *Client) AcceptProposal(ctx context.Context, id uint, message string) (*Appointment, error) {
	var appt Appointment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/accept", id), messageBody{Message: message}, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// RejectProposal declines the clinic's proposed slot.
func (c *Client) RejectProposal(ctx context.Context, id uint, reason string) (*Appointment, error) {
	var appt Appointment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/reject", id), reasonBody{Reason: reason}, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// SlotChangeParams carry an alternative slot for a counter-proposal or a
// modification request.
type SlotChangeParams struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Time    string `json:"time"` // HH:MM
	Message string `json:"message,omitempty"`
}

// CounterPropose answers a clinic proposal with a different slot.
func (c *Client) CounterPropose(ctx context.Context, id uint, params SlotChangeParams) (*Appointment, error) {
	var appt Appointment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/counter-propose", id), params, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// RequestModification asks to move a confirmed visit. Refused with 422 when
// the visit is less than 24 hours away.
func (c *Client) RequestModification(ctx context.Context, id uint, params SlotChangeParams) (*Appointment, error) {
	var appt Appointment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/modify", id), params, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// RespondParams are the clinic's decision on a request awaiting it.
type RespondParams struct {
	Action           string `json:"action"` // confirm, reject, propose, accept
	ProposedDate     string `json:"proposedDate,omitempty"`
	ProposedTime     string `json:"proposedTime,omitempty"`
	ConsultationType string `json:"consultationType,omitempty"`
	Message          string `json:"message,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// Respond applies a staff decision to an appointment.
func (c *Client) Respond(ctx context.Context, id uint, params RespondParams) (*Appointment, error) {
	var appt Appointment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/respond", id), params, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// HistoryEntry is one change in an appointment's timeline.
type HistoryEntry struct {
	ID        uint      `json:"id"`
	Action    string    `json:"action"`
	ActorType string    `json:"actorType"`
	OldDate   string    `json:"oldDate,omitempty"`
	OldTime   string    `json:"oldTime,omitempty"`
	OldStatus string    `json:"oldStatus,omitempty"`
	NewDate   string    `json:"newDate,omitempty"`
	NewTime   string    `json:"newTime,omitempty"`
	NewStatus string    `json:"newStatus,omitempty"`
	Message   string    `json:"message,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// History returns the change timeline of an appointment, newest first.
func (c *Client) History(ctx context.Context, id uint) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/appointments/%d/history", id), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Slot is one entry of the availability grid for a day.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// AvailableSlots returns the hourly booking grid for a date.
func (c *Client) AvailableSlots(ctx context.Context, date string) ([]Slot, error) {
	var slots []Slot
	if err := c.do(ctx, http.MethodGet, "/appointments/slots?date="+url.QueryEscape(date), nil, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}
