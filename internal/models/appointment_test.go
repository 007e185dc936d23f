package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusDisplay_KnownStatuses(t *testing.T) {
	assert.Equal(t, StatusInfo{Label: "New request", Category: "orange"}, StatusPending.Display())
	assert.Equal(t, StatusInfo{Label: "Confirmed", Category: "green"}, StatusConfirmed.Display())
	assert.Equal(t, StatusInfo{Label: "Proposal sent", Category: "blue"}, StatusAwaitingPatientResponse.Display())
	assert.Equal(t, StatusInfo{Label: "No show", Category: "gray"}, StatusNoShow.Display())
}

func TestStatusDisplay_UnknownFallsBackToPending(t *testing.T) {
	// Schema drift between client and server must degrade to the pending
	// badge, never panic, and must be stable across calls.
	for _, raw := range []string{"weird_status", "", "PENDING", "confirmed "} {
		got := AppointmentStatus(raw).Display()
		assert.Equal(t, StatusPending.Display(), got, "status %q", raw)
		assert.Equal(t, got, AppointmentStatus(raw).Display(), "second lookup must match for %q", raw)
	}
}

func TestStatusTerminality(t *testing.T) {
	terminal := []AppointmentStatus{
		StatusRejectedByPatient, StatusRejected, StatusCancelled, StatusCompleted, StatusNoShow,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "status %q", s)
		assert.Empty(t, s.PermittedActions(ActorPatient), "terminal %q offers patient actions", s)
		assert.Empty(t, s.PermittedActions(ActorStaff), "terminal %q offers staff actions", s)
	}

	active := []AppointmentStatus{
		StatusPending, StatusConfirmed, StatusAwaitingPatientResponse,
		StatusAwaitingAdminResponse, StatusModificationPending,
	}
	for _, s := range active {
		assert.False(t, s.IsTerminal(), "status %q", s)
	}
}

func TestPermittedActions_ByRole(t *testing.T) {
	tests := []struct {
		status  AppointmentStatus
		actor   Actor
		actions []AppointmentAction
	}{
		{StatusPending, ActorStaff, []AppointmentAction{ActionConfirm, ActionPropose, ActionReject}},
		{StatusPending, ActorPatient, []AppointmentAction{ActionCancel}},
		{StatusConfirmed, ActorStaff, []AppointmentAction{ActionCancel, ActionComplete, ActionNoShow}},
		{StatusConfirmed, ActorPatient, []AppointmentAction{ActionModify, ActionCancel}},
		{StatusAwaitingPatientResponse, ActorPatient, []AppointmentAction{ActionAccept, ActionCounterPropose}},
		{StatusAwaitingPatientResponse, ActorStaff, nil},
		{StatusAwaitingAdminResponse, ActorStaff, []AppointmentAction{ActionAccept, ActionReject}},
		{StatusAwaitingAdminResponse, ActorPatient, nil},
		{StatusModificationPending, ActorStaff, []AppointmentAction{ActionAccept, ActionReject}},
		{StatusModificationPending, ActorPatient, nil},
	}

	for _, tc := range tests {
		got := tc.status.PermittedActions(tc.actor)
		assert.Equal(t, tc.actions, got, "%s / %s", tc.status, tc.actor)
	}
}

func TestPermittedActions_UnknownStatus(t *testing.T) {
	assert.Empty(t, AppointmentStatus("weird_status").PermittedActions(ActorPatient))
	assert.Empty(t, AppointmentStatus("weird_status").PermittedActions(ActorStaff))
}

func TestStartsAt(t *testing.T) {
	appt := Appointment{Date: "2025-06-15", Time: "14:30"}
	got, err := appt.StartsAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 14, 30, 0, 0, time.Local), got)

	bad := Appointment{Date: "not-a-date", Time: "14:30"}
	_, err = bad.StartsAt()
	assert.Error(t, err)
}

func TestCanBeModifiedByPatient_Boundary(t *testing.T) {
	// Appointment fixed at 2025-01-02 10:00 local time; slide "now" around
	// the 24h cutoff.
	appt := Appointment{Status: StatusConfirmed, Date: "2025-01-02", Time: "10:00"}
	startsAt, err := appt.StartsAt()
	require.NoError(t, err)

	tests := []struct {
		name     string
		now      time.Time
		eligible bool
	}{
		{"exactly 24h before", startsAt.Add(-24 * time.Hour), true},
		{"25h before", startsAt.Add(-25 * time.Hour), true},
		{"23h59m before", startsAt.Add(-23*time.Hour - 59*time.Minute), false},
		{"one millisecond inside the window", startsAt.Add(-24*time.Hour + time.Millisecond), false},
		{"at start time", startsAt, false},
		{"already past", startsAt.Add(time.Hour), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.eligible, appt.CanBeModifiedByPatient(tc.now))
			assert.Equal(t, tc.eligible, appt.CanBeCancelledByPatient(tc.now))
		})
	}
}

func TestCanBeModifiedByPatient_StatusGate(t *testing.T) {
	// Far enough in the future that only the status should decide.
	farAway := time.Now().Add(30 * 24 * time.Hour)
	for _, s := range []AppointmentStatus{
		StatusPending, StatusAwaitingPatientResponse, StatusAwaitingAdminResponse,
		StatusModificationPending, StatusCancelled, StatusCompleted,
	} {
		appt := Appointment{
			Status: s,
			Date:   farAway.Format(DateLayout),
			Time:   farAway.Format(TimeLayout),
		}
		assert.False(t, appt.CanBeModifiedByPatient(time.Now()), "status %q", s)
	}
}

func TestCanBeModifiedByPatient_MalformedDate(t *testing.T) {
	appt := Appointment{Status: StatusConfirmed, Date: "tomorrow", Time: "noon"}
	assert.False(t, appt.CanBeModifiedByPatient(time.Now()))
}

func TestConsultationTypeLabel(t *testing.T) {
	assert.Equal(t, "General consultation", ConsultationGeneral.Label())
	assert.Equal(t, "Emergency", ConsultationEmergency.Label())
	// Unknown types surface as-is instead of disappearing.
	assert.Equal(t, "telehealth", ConsultationType("telehealth").Label())
	assert.False(t, ConsultationType("telehealth").IsValid())
}

func TestProposalIsExpired(t *testing.T) {
	now := time.Now()
	p := AppointmentProposal{Status: ProposalPending, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, p.IsExpired(now))
	assert.True(t, p.IsExpired(now.Add(2*time.Hour)))

	answered := AppointmentProposal{Status: ProposalAccepted, ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, answered.IsExpired(now))
}

func TestRoleActorMapping(t *testing.T) {
	assert.Equal(t, ActorStaff, RoleAdmin.Actor())
	assert.Equal(t, ActorStaff, RoleStaff.Actor())
	assert.Equal(t, ActorPatient, RolePatient.Actor())
	assert.True(t, RoleAdmin.IsStaff())
	assert.False(t, RolePatient.IsStaff())
}
