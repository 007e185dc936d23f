package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"clinic-portal-server/internal/config"
	"clinic-portal-server/internal/middleware"
	"clinic-portal-server/internal/models"
	"clinic-portal-server/internal/utils"
)

// AppointmentHandler handles the appointment lifecycle.
type AppointmentHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, cfg *config.Config) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Cfg: cfg}
}

// AppointmentView is an appointment enriched with the display metadata and the
// actions the requesting user may take on it right now. The eligibility window
// is already folded in: a confirmed appointment less than 24 hours away offers
// a patient no modify or cancel action.
type AppointmentView struct {
	models.Appointment
	StatusInfo models.StatusInfo          `json:"statusInfo"`
	Actions    []models.AppointmentAction `json:"actions"`
	CanModify  bool                       `json:"canModify"`
	CanCancel  bool                       `json:"canCancel"`
}

func (h *AppointmentHandler) view(appt models.Appointment, actor models.Actor) AppointmentView {
	now := time.Now()
	actions := appt.Status.PermittedActions(actor)

	canModify := appt.CanBeModifiedByPatient(now)
	canCancel := appt.CanBeCancelledByPatient(now) || appt.Status == models.StatusPending

	if actor == models.ActorPatient && appt.Status == models.StatusConfirmed && !canModify {
		actions = nil
	}

	return AppointmentView{
		Appointment: appt,
		StatusInfo:  appt.Status.Display(),
		Actions:     actions,
		CanModify:   actor == models.ActorPatient && canModify,
		CanCancel:   actor == models.ActorPatient && canCancel,
	}
}

func (h *AppointmentHandler) views(appts []models.Appointment, actor models.Actor) []AppointmentView {
	out := make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, h.view(a, actor))
	}
	return out
}

// slotTaken reports whether another active appointment already occupies the
// date+time slot.
func (h *AppointmentHandler) slotTaken(date, timeOfDay string, excludeID uint) (bool, error) {
	var count int64
	q := h.DB.Model(&models.Appointment{}).
		Where("date = ? AND time = ? AND status IN ?", date, timeOfDay, models.ActiveStatuses)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (h *AppointmentHandler) recordHistory(entry models.AppointmentHistory) {
	if err := h.DB.Create(&entry).Error; err != nil {
		log.Error().Err(err).Uint("appointmentID", entry.AppointmentID).Msg("failed to record appointment history")
	}
}

func (h *AppointmentHandler) notifyUser(userID string, nType models.NotificationType, title, body string, appointmentID uint) {
	if userID == "" {
		return
	}
	n := models.Notification{
		UserID:        userID,
		Type:          nType,
		Title:         title,
		Body:          body,
		AppointmentID: &appointmentID,
	}
	if err := h.DB.Create(&n).Error; err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("failed to create notification")
	}
}

func (h *AppointmentHandler) notifyPatient(appt *models.Appointment, nType models.NotificationType, title, body string) {
	if appt.PatientID != nil {
		h.notifyUser(*appt.PatientID, nType, title, body, appt.ID)
	}
}

// notifyStaff fans a notification out to every active staff and admin account.
func (h *AppointmentHandler) notifyStaff(nType models.NotificationType, title, body string, appointmentID uint) {
	var staff []models.User
	if err := h.DB.Where("role IN ? AND is_active = ?", []models.Role{models.RoleAdmin, models.RoleStaff}, true).
		Find(&staff).Error; err != nil {
		log.Error().Err(err).Msg("failed to load staff for notification fan-out")
		return
	}
	for _, s := range staff {
		h.notifyUser(s.ID, nType, title, body, appointmentID)
	}
}

// requester resolves the caller's identity and actor side. ok is false when
// the request carries no authenticated user.
func requester(c *gin.Context) (userID string, actor models.Actor, ok bool) {
	userID, ok = middleware.GetUserIDFromContext(c)
	if !ok {
		return "", "", false
	}
	role, _ := middleware.GetUserRoleFromContext(c)
	return userID, role.Actor(), true
}

// owns reports whether the requesting patient owns the appointment, matched
// by linked account ID or by booking email.
func owns(c *gin.Context, appt *models.Appointment) bool {
	userID, _ := middleware.GetUserIDFromContext(c)
	if appt.PatientID != nil && *appt.PatientID == userID {
		return true
	}
	email, _ := middleware.GetUserEmailFromContext(c)
	return email != "" && appt.PatientEmail == email
}

// loadAppointment fetches by path param and enforces ownership for patients.
func (h *AppointmentHandler) loadAppointment(c *gin.Context) (*models.Appointment, models.Actor, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "Invalid appointment ID")
		return nil, "", false
	}

	var appt models.Appointment
	if err := h.DB.First(&appt, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, "", false
	}

	_, actor, ok := requester(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return nil, "", false
	}
	if actor == models.ActorPatient && !owns(c, &appt) {
		utils.NotFound(c, "Appointment not found")
		return nil, "", false
	}
	return &appt, actor, true
}

// CreateAppointmentRequest represents the request body for booking a visit.
// Booking is open to unauthenticated visitors, so patient contact details are
// carried in the payload.
type CreateAppointmentRequest struct {
	FirstName        string `json:"firstName" binding:"required"`
	LastName         string `json:"lastName" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Phone            string `json:"phone"`
	Date             string `json:"date" binding:"required"`
	Time             string `json:"time" binding:"required"`
	ConsultationType string `json:"consultationType" binding:"required"`
	Reason           string `json:"reason"`
}

// CreateAppointment books a new visit. The request lands in pending until the
// clinic responds. A slot already held by an active appointment is rejected
// with 409.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	consultationType := models.ConsultationType(req.ConsultationType)
	if !consultationType.IsValid() {
		utils.BadRequest(c, "Unknown consultation type: "+req.ConsultationType)
		return
	}

	if err := utils.ValidateBookingSlot(req.Date, req.Time,
		h.Cfg.Clinic.OpeningHour, h.Cfg.Clinic.ClosingHour, time.Now()); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	taken, err := h.slotTaken(req.Date, req.Time, 0)
	if err != nil {
		utils.InternalServerError(c, "Database error checking slot: "+err.Error())
		return
	}
	if taken {
		utils.Conflict(c, "This slot is already booked, please pick another time")
		return
	}

	appt := models.Appointment{
		PatientFirstName: req.FirstName,
		PatientLastName:  req.LastName,
		PatientEmail:     req.Email,
		PatientPhone:     req.Phone,
		Date:             req.Date,
		Time:             req.Time,
		ConsultationType: consultationType,
		Reason:           req.Reason,
		Status:           models.StatusPending,
	}

	// Link to a portal account when the booker is logged in, or when the
	// email matches an existing patient account.
	if userID, exists := middleware.GetUserIDFromContext(c); exists {
		appt.PatientID = &userID
	} else {
		var patient models.User
		if err := h.DB.Where("email = ? AND role = ?", req.Email, models.RolePatient).
			First(&patient).Error; err == nil {
			appt.PatientID = &patient.ID
		}
	}

	if err := h.DB.Create(&appt).Error; err != nil {
		utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		return
	}

	h.recordHistory(models.AppointmentHistory{
		AppointmentID: appt.ID,
		Action:        models.HistoryCreated,
		ActorID:       appt.PatientID,
		ActorType:     models.ActorPatient,
		NewDate:       appt.Date,
		NewTime:       appt.Time,
		NewStatus:     models.StatusPending,
	})
	h.notifyStaff(models.NotificationNewBooking, "New appointment request",
		fmt.Sprintf("%s %s requested %s on %s at %s",
			appt.PatientFirstName, appt.PatientLastName,
			consultationType.Label(), appt.Date, appt.Time),
		appt.ID)

	log.Info().Uint("appointmentID", appt.ID).Str("date", appt.Date).Str("time", appt.Time).Msg("appointment booked")
	utils.Created(c, "Appointment request submitted", h.view(appt, models.ActorPatient))
}

// ListAppointments returns appointments visible to the caller. Staff see all
// and may filter by status, date and patientId; patients see their own.
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	userID, actor, ok := requester(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	query := h.DB.Model(&models.Appointment{}).Order("date DESC, time DESC")

	if actor == models.ActorStaff {
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if date := c.Query("date"); date != "" {
			query = query.Where("date = ?", date)
		}
		if patientID := c.Query("patientId"); patientID != "" {
			query = query.Where("patient_id = ?", patientID)
		}
	} else {
		email, _ := middleware.GetUserEmailFromContext(c)
		query = query.Where("patient_id = ? OR patient_email = ?", userID, email)
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
	}

	var appts []models.Appointment
	if err := query.Find(&appts).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", h.views(appts, actor))
}

// GetAppointment returns one appointment with display metadata and actions.
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	appt, actor, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	utils.Success(c, "Appointment fetched successfully", h.view(*appt, actor))
}

// RespondRequest is the staff decision on a request awaiting the clinic:
// a pending booking (confirm, reject, propose) or a patient counter-proposal
// or modification request (accept, reject).
type RespondRequest struct {
	Action           string `json:"action" binding:"required,oneof=confirm reject propose accept"`
	ProposedDate     string `json:"proposedDate"`
	ProposedTime     string `json:"proposedTime"`
	ConsultationType string `json:"consultationType"`
	Message          string `json:"message"`
	Reason           string `json:"reason"`
}

// Respond applies a staff decision to an appointment.
func (h *AppointmentHandler) Respond(c *gin.Context) {
	appt, _, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	var req RespondRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, _, _ := requester(c)
	action := models.AppointmentAction(req.Action)
	if !actionPermitted(appt.Status, models.ActorStaff, action) {
		utils.UnprocessableEntity(c, fmt.Sprintf("Action %q is not available while the appointment is %s", req.Action, appt.Status))
		return
	}

	now := time.Now()
	oldStatus := appt.Status

	switch action {
	case models.ActionConfirm:
		appt.Status = models.StatusConfirmed
		appt.ConfirmedAt = &now
		appt.AdminMessage = req.Message
		if err := h.DB.Save(appt).Error; err != nil {
			utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
			return
		}
		h.recordHistory(models.AppointmentHistory{
			AppointmentID: appt.ID, Action: models.HistoryConfirmed,
			ActorID: &userID, ActorType: models.ActorStaff,
			OldStatus: oldStatus, NewStatus: appt.Status, Message: req.Message,
		})
		h.notifyPatient(appt, models.NotificationAppointmentConfirmed, "Appointment confirmed",
			fmt.Sprintf("Your appointment on %s at %s has been confirmed", appt.Date, appt.Time))

	case models.ActionReject:
		if oldStatus == models.StatusModificationPending {
			// Declining a modification keeps the appointment confirmed at
			// its original slot.
			appt.Status = models.StatusConfirmed
			appt.ProposedDate = ""
			appt.ProposedTime = ""
			appt.ProposedConsultationType = ""
			appt.RespondedAt = &now
			if err := h.DB.Save(appt).Error; err != nil {
				utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
				return
			}
			h.closeOpenProposals(appt.ID, models.ProposalRejected, now)
			h.recordHistory(models.AppointmentHistory{
				AppointmentID: appt.ID, Action: models.HistoryProposalRejected,
				ActorID: &userID, ActorType: models.ActorStaff,
				OldStatus: oldStatus, NewStatus: appt.Status, Reason: req.Reason,
			})
			h.notifyPatient(appt, models.NotificationAppointmentRejected, "Modification declined",
				fmt.Sprintf("Your requested change was declined, the appointment stays on %s at %s", appt.Date, appt.Time))
			break
		}
		appt.Status = models.StatusRejected
		appt.RejectionReason = req.Reason
		appt.RespondedAt = &now
		if err := h.DB.Save(appt).Error; err != nil {
			utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
			return
		}
		h.closeOpenProposals(appt.ID, models.ProposalRejected, now)
		h.recordHistory(models.AppointmentHistory{
			AppointmentID: appt.ID, Action: models.HistoryRejected,
			ActorID: &userID, ActorType: models.ActorStaff,
			OldStatus: oldStatus, NewStatus: appt.Status, Reason: req.Reason,
		})
		h.notifyPatient(appt, models.NotificationAppointmentRejected, "Appointment request declined",
			fmt.Sprintf("Your request for %s at %s could not be accommodated", appt.Date, appt.Time))

	case models.ActionPropose:
		if req.ProposedDate == "" || req.ProposedTime == "" {
			utils.BadRequest(c, "proposedDate and proposedTime are required for a proposal")
			return
		}
		if err := utils.ValidateBookingSlot(req.ProposedDate, req.ProposedTime,
			h.Cfg.Clinic.OpeningHour, h.Cfg.Clinic.ClosingHour, now); err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		taken, err := h.slotTaken(req.ProposedDate, req.ProposedTime, appt.ID)
		if err != nil {
			utils.InternalServerError(c, "Database error checking slot: "+err.Error())
			return
		}
		if taken {
			utils.Conflict(c, "The proposed slot is already booked, please pick another time")
			return
		}
		appt.Status = models.StatusAwaitingPatientResponse
		appt.ProposedDate = req.ProposedDate
		appt.ProposedTime = req.ProposedTime
		if req.ConsultationType != "" {
			appt.ProposedConsultationType = models.ConsultationType(req.ConsultationType)
		}
		appt.AdminMessage = req.Message
		appt.ProposalSentAt = &now
		if err := h.DB.Save(appt).Error; err != nil {
			utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
			return
		}
		h.DB.Create(&models.AppointmentProposal{
			AppointmentID: appt.ID,
			Direction:     models.ProposalAdminToPatient,
			Status:        models.ProposalPending,
			ProposedDate:  req.ProposedDate,
			ProposedTime:  req.ProposedTime,
			Message:       req.Message,
			ProposedBy:    &userID,
			ExpiresAt:     now.Add(models.ProposalTTL),
		})
		h.recordHistory(models.AppointmentHistory{
			AppointmentID: appt.ID, Action: models.HistoryProposalSent,
			ActorID: &userID, ActorType: models.ActorStaff,
			OldStatus: oldStatus, NewStatus: appt.Status,
			OldDate: appt.Date, OldTime: appt.Time,
			NewDate: req.ProposedDate, NewTime: req.ProposedTime, Message: req.Message,
		})
		h.notifyPatient(appt, models.NotificationProposalReceived, "Alternative slot proposed",
			fmt.Sprintf("The clinic proposed %s at %s instead", req.ProposedDate, req.ProposedTime))

	case models.ActionAccept:
		// Accepting a counter-proposal or modification request adopts the
		// patient's proposed slot, which may have been booked by someone
		// else in the meantime.
		if appt.ProposedDate != "" {
			taken, err := h.slotTaken(appt.ProposedDate, appt.ProposedTime, appt.ID)
			if err != nil {
				utils.InternalServerError(c, "Database error checking slot: "+err.Error())
				return
			}
			if taken {
				utils.Conflict(c, "The requested slot has since been booked, please propose another time")
				return
			}
		}
		h.applyProposedSlot(appt)
		appt.Status = models.StatusConfirmed
		appt.ConfirmedAt = &now
		appt.RespondedAt = &now
		if err := h.DB.Save(appt).Error; err != nil {
			utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
			return
		}
		h.closeOpenProposals(appt.ID, models.ProposalAccepted, now)
		h.recordHistory(models.AppointmentHistory{
			AppointmentID: appt.ID, Action: models.HistoryProposalAccepted,
			ActorID: &userID, ActorType: models.ActorStaff,
			OldStatus: oldStatus, NewStatus: appt.Status,
			NewDate: appt.Date, NewTime: appt.Time, Message: req.Message,
		})
		h.notifyPatient(appt, models.NotificationAppointmentConfirmed, "Appointment confirmed",
			fmt.Sprintf("Your requested change was accepted: %s at %s", appt.Date, appt.Time))
	}

	utils.Success(c, "Appointment updated", h.view(*appt, models.ActorStaff))
}

// applyProposedSlot moves the proposed slot into the live fields and clears
// the proposal fields.
func (h *AppointmentHandler) applyProposedSlot(appt *models.Appointment) {
	if appt.ProposedDate != "" {
		appt.Date = appt.ProposedDate
		appt.Time = appt.ProposedTime
	}
	if appt.ProposedConsultationType != "" {
		appt.ConsultationType = appt.ProposedConsultationType
	}
	appt.ProposedDate = ""
	appt.ProposedTime = ""
	appt.ProposedConsultationType = ""
}

func (h *AppointmentHandler) closeOpenProposals(appointmentID uint, status models.ProposalStatus, now time.Time) {
	if err := h.DB.Model(&models.AppointmentProposal{}).
		Where("appointment_id = ? AND status = ?", appointmentID, models.ProposalPending).
		Updates(map[string]interface{}{"status": status, "responded_at": now}).Error; err != nil {
		log.Error().Err(err).Uint("appointmentID", appointmentID).Msg("failed to close proposals")
	}
}

func actionPermitted(status models.AppointmentStatus, actor models.Actor, action models.AppointmentAction) bool {
	for _, a := range status.PermittedActions(actor) {
		if a == action {
			return true
		}
	}
	return false
}

// ProposalResponseRequest carries an optional note with the patient's answer.
type ProposalResponseRequest struct {
	Message string `json:"message"`
}

// AcceptProposal lets the patient accept the clinic's proposed slot, which
// confirms the appointment at the proposed date and time.
func (h *AppointmentHandler) AcceptProposal(c *gin.Context) {
	appt, actor, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if !actionPermitted(appt.Status, actor, models.ActionAccept) {
		utils.UnprocessableEntity(c, "There is no open proposal to accept")
		return
	}

	var req ProposalResponseRequest
	_ = c.ShouldBindJSON(&req)

	now := time.Now()
	userID, _, _ := requester(c)
	oldStatus := appt.Status

	// The proposed slot may have been booked since the proposal was sent.
	if appt.ProposedDate != "" {
		taken, err := h.slotTaken(appt.ProposedDate, appt.ProposedTime, appt.ID)
		if err != nil {
			utils.InternalServerError(c, "Database error checking slot: "+err.Error())
			return
		}
		if taken {
			utils.Conflict(c, "The proposed slot has since been booked, please ask the clinic for another time")
			return
		}
	}

	h.applyProposedSlot(appt)
	appt.Status = models.StatusConfirmed
	appt.ConfirmedAt = &now
	appt.RespondedAt = &now
	appt.PatientMessage = req.Message
	if err := h.DB.Save(appt).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return
	}

	h.closeOpenProposals(appt.ID, models.ProposalAccepted, now)
	h.recordHistory(models.AppointmentHistory{
		AppointmentID: appt.ID, Action: models.HistoryProposalAccepted,
		ActorID: &userID, ActorType: models.ActorPatient,
		OldStatus: oldStatus, NewStatus: appt.Status,
		NewDate: appt.Date, NewTime: appt.Time, Message: req.Message,
	})
	h.notifyStaff(models.NotificationAppointmentConfirmed, "Proposal accepted",
		fmt.Sprintf("%s %s accepted the proposed slot %s at %s",
			appt.PatientFirstName, appt.PatientLastName, appt.Date, appt.Time), appt.ID)

	utils.Success(c, "Proposal accepted, appointment confirmed", h.view(*appt, actor))
}

// RejectProposalRequest carries the patient's reason for declining.
type RejectProposalRequest struct {
	Reason string `json:"reason"`
}

// RejectProposal lets the patient decline the clinic's proposed slot. The
// appointment moves to rejected_by_patient, a terminal status distinct from a
// clinic rejection.
func (h *AppointmentHandler) RejectProposal(c *gin.Context) {
	appt, actor, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if appt.Status != models.StatusAwaitingPatientResponse || actor != models.ActorPatient {
		utils.UnprocessableEntity(c, "There is no open proposal to decline")
		return
	}

	var req RejectProposalRequest
	_ = c.ShouldBindJSON(&req)

	now := time.Now()
	userID, _, _ := requester(c)
	oldStatus := appt.Status

	appt.Status = models.StatusRejectedByPatient
	appt.RejectionReason = req.Reason
	appt.RespondedAt = &now
	if err := h.DB.Save(appt).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return
	}

	h.closeOpenProposals(appt.ID, models.ProposalRejected, now)
	h.recordHistory(models.AppointmentHistory{
		AppointmentID: appt.ID, Action: models.HistoryProposalRejected,
		ActorID: &userID, ActorType: models.ActorPatient,
		OldStatus: oldStatus, NewStatus: appt.Status, Reason: req.Reason,
	})
	h.notifyStaff(models.NotificationAppointmentRejected, "Proposal declined",
		fmt.Sprintf("%s %s declined the proposed slot", appt.PatientFirstName, appt.PatientLastName), appt.ID)

	utils.Success(c, "Proposal declined", h.view(*appt, actor))
}

// CounterProposeRequest is the patient's alternative to the clinic's proposal.
type CounterProposeRequest struct {
	Date    string `json:"date" binding:"required"`
	Time    string `json:"time" binding:"required"`
	Message string `json:"message"`
}

// CounterPropose lets the patient answer a clinic proposal with a different
// slot. The appointment moves to awaiting_admin_response.
func (h *AppointmentHandler) CounterPropose(c *gin.Context) {
	appt, actor, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if !actionPermitted(appt.Status, actor, models.ActionCounterPropose) {
		utils.UnprocessableEntity(c, "A counter-proposal is only possible while a clinic proposal is open")
		return
	}

	var req CounterProposeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	now := time.Now()
	if err := utils.ValidateBookingSlot(req.Date, req.Time,
		h.Cfg.Clinic.OpeningHour, h.Cfg.Clinic.ClosingHour, now); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	taken, err := h.slotTaken(req.Date, req.Time, appt.ID)
	if err != nil {
		utils.InternalServerError(c, "Database error checking slot: "+err.Error())
		return
	}
	if taken {
		utils.Conflict(c, "This slot is already booked, please pick another time")
		return
	}

	userID, _, _ := requester(c)
	oldStatus := appt.Status

	appt.Status = models.StatusAwaitingAdminResponse
	appt.ProposedDate = req.Date
	appt.ProposedTime = req.Time
	appt.PatientMessage = req.Message
	if err := h.DB.Save(appt).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return
	}

	h.closeOpenProposals(appt.ID, models.ProposalRejected, now)
	h.DB.Create(&models.AppointmentProposal{
		AppointmentID: appt.ID,
		Direction:     models.ProposalPatientToAdmin,
		Status:        models.ProposalPending,
		ProposedDate:  req.Date,
		ProposedTime:  req.Time,
		Message:       req.Message,
		ProposedBy:    &userID,
		ExpiresAt:     now.Add(models.ProposalTTL),
	})
	h.recordHistory(models.AppointmentHistory{
		AppointmentID: appt.ID, Action: models.HistoryCounterProposed,
		ActorID: &userID, ActorType: models.ActorPatient,
		OldStatus: oldStatus, NewStatus: appt.Status,
		NewDate: req.Date, NewTime: req.Time, Message: req.Message,
	})
	h.notifyStaff(models.NotificationCounterProposal, "Counter-proposal received",
		fmt.Sprintf("%s %s suggested %s at %s instead",
			appt.PatientFirstName, appt.PatientLastName, req.Date, req.Time), appt.ID)

	utils.Success(c, "Counter-proposal sent", h.view(*appt, actor))
}

// ModifyRequest is the patient's request to move a confirmed appointment.
type ModifyRequest struct {
	Date    string `json:"date" binding:"required"`
	Time    string `json:"time" binding:"required"`
	Message string `json:"message"`
}

// Modify lets the patient request a change to a confirmed appointment. Only
// allowed while the visit is at least 24 hours away; inside that window the
// request is refused with 422 and the patient is told to call the clinic.
func (h *AppointmentHandler) Modify(c *gin.Context) {
	appt, actor, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if actor != models.ActorPatient {
		utils.Forbidden(c, "Only the patient may request a modification")
		return
	}

	now := time.Now()
	if !appt.CanBeModifiedByPatient(now) {
		if appt.Status != models.StatusConfirmed {
			utils.UnprocessableEntity(c, "Only confirmed appointments can be modified")
		} else {
			utils.UnprocessableEntity(c, "Appointments less than 24 hours away can no longer be modified online, please call the clinic")
		}
		return
	}

	var req ModifyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if err := utils.ValidateBookingSlot(req.Date, req.Time,
		h.Cfg.Clinic.OpeningHour, h.Cfg.Clinic.ClosingHour, now); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	taken, err := h.slotTaken(req.Date, req.Time, appt.ID)
	if err != nil {
		utils.InternalServerError(c, "Database error checking slot: "+err.Error())
		return
	}
	if taken {
		utils.Conflict(c, "This slot is already booked, please pick another time")
		return
	}

	userID, _, _ := requester(c)
	oldStatus := appt.Status

	appt.Status = models.StatusModificationPending
	appt.ProposedDate = req.Date
	appt.ProposedTime = req.Time
	appt.PatientMessage = req.Message
	if err := h.DB.Save(appt).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return
	}

	h.DB.Create(&models.AppointmentProposal{
		AppointmentID: appt.ID,
		Direction:     models.ProposalPatientToAdmin,
		Status:        models.ProposalPending,
		ProposedDate:  req.Date,
		ProposedTime:  req.Time,
		Message:       req.Message,
		ProposedBy:    &userID,
		ExpiresAt:     now.Add(models.ProposalTTL),
	})
	h.recordHistory(models.AppointmentHistory{
		AppointmentID: appt.ID, Action: models.HistoryModified,
		ActorID: &userID, ActorType: models.ActorPatient,
		OldStatus: oldStatus, NewStatus: appt.Status,
		OldDate: appt.Date, OldTime: appt.Time,
		NewDate: req.Date, NewTime: req.Time, Message: req.Message,
	})
	h.notifyStaff(models.NotificationModificationRequest, "Modification requested",
		fmt.Sprintf("%s %s asked to move their appointment to %s at %s",
			appt.PatientFirstName, appt.PatientLastName, req.Date, req.Time), appt.ID)

	utils.Success(c, "Modification request sent", h.view(*appt, actor))
}

// CancelRequest carries the reason for a cancellation.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel cancels an appointment. Patients may cancel a pending request any
// time and a confirmed appointment up to 24 hours before it starts; staff may
// cancel any active appointment.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	appt, actor, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	now := time.Now()
	if actor == models.ActorPatient {
		switch appt.Status {
		case models.StatusPending:
			// A request the clinic has not answered yet can always be withdrawn.
		case models.StatusConfirmed:
			if !appt.CanBeCancelledByPatient(now) {
				utils.UnprocessableEntity(c, "Appointments less than 24 hours away can no longer be cancelled online, please call the clinic")
				return
			}
		default:
			utils.UnprocessableEntity(c, "This appointment can no longer be cancelled")
			return
		}
	} else if appt.Status.IsTerminal() {
		utils.UnprocessableEntity(c, "This appointment is already closed")
		return
	}

	var req CancelRequest
	_ = c.ShouldBindJSON(&req)

	userID, _, _ := requester(c)
	oldStatus := appt.Status

	appt.Status = models.StatusCancelled
	appt.CancellationReason = req.Reason
	appt.CancelledAt = &now
	if err := h.DB.Save(appt).Error; err != nil {
		utils.InternalServerError(c, "Failed to cancel appointment: "+err.Error())
		return
	}

	h.closeOpenProposals(appt.ID, models.ProposalExpired, now)
	h.recordHistory(models.AppointmentHistory{
		AppointmentID: appt.ID, Action: models.HistoryCancelled,
		ActorID: &userID, ActorType: actor,
		OldStatus: oldStatus, NewStatus: appt.Status, Reason: req.Reason,
	})
	if actor == models.ActorStaff {
		h.notifyPatient(appt, models.NotificationAppointmentCancelled, "Appointment cancelled",
			fmt.Sprintf("Your appointment on %s at %s was cancelled by the clinic", appt.Date, appt.Time))
	} else {
		h.notifyStaff(models.NotificationAppointmentCancelled, "Appointment cancelled",
			fmt.Sprintf("%s %s cancelled their appointment on %s at %s",
				appt.PatientFirstName, appt.PatientLastName, appt.Date, appt.Time), appt.ID)
	}

	utils.Success(c, "Appointment cancelled", h.view(*appt, actor))
}

// UpdateStatusRequest closes out a past appointment.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=completed no_show"`
}

// UpdateStatus lets staff mark a confirmed appointment completed or no-show.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	appt, _, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	target := models.AppointmentStatus(req.Status)
	action := models.ActionComplete
	historyAction := models.HistoryCompleted
	if target == models.StatusNoShow {
		action = models.ActionNoShow
		historyAction = models.HistoryNoShow
	}
	if !actionPermitted(appt.Status, models.ActorStaff, action) {
		utils.UnprocessableEntity(c, fmt.Sprintf("Cannot mark a %s appointment as %s", appt.Status, target))
		return
	}

	userID, _, _ := requester(c)
	oldStatus := appt.Status
	appt.Status = target
	if err := h.DB.Save(appt).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return
	}

	h.recordHistory(models.AppointmentHistory{
		AppointmentID: appt.ID, Action: historyAction,
		ActorID: &userID, ActorType: models.ActorStaff,
		OldStatus: oldStatus, NewStatus: target,
	})

	utils.Success(c, "Appointment updated", h.view(*appt, models.ActorStaff))
}

// GetHistory returns the change timeline of an appointment, newest first.
func (h *AppointmentHandler) GetHistory(c *gin.Context) {
	appt, _, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	var history []models.AppointmentHistory
	if err := h.DB.Where("appointment_id = ?", appt.ID).
		Order("created_at DESC").Find(&history).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch history: "+err.Error())
		return
	}

	utils.Success(c, "History fetched successfully", history)
}

// SlotInfo is one entry of the availability grid for a day.
type SlotInfo struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// AvailableSlots returns the hourly booking grid for a date, with slots held
// by active appointments marked unavailable.
func (h *AppointmentHandler) AvailableSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		utils.BadRequest(c, "date query parameter is required")
		return
	}
	if _, err := time.ParseInLocation(models.DateLayout, date, time.Local); err != nil {
		utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	var booked []models.Appointment
	if err := h.DB.Select("time").
		Where("date = ? AND status IN ?", date, models.ActiveStatuses).
		Find(&booked).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch bookings: "+err.Error())
		return
	}
	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b.Time] = true
	}

	slots := make([]SlotInfo, 0, h.Cfg.Clinic.SlotsPerDay())
	for hour := h.Cfg.Clinic.OpeningHour; hour < h.Cfg.Clinic.ClosingHour; hour++ {
		t := fmt.Sprintf("%02d:00", hour)
		slots = append(slots, SlotInfo{Time: t, Available: !taken[t]})
	}

	utils.Success(c, "Slots fetched successfully", slots)
}
