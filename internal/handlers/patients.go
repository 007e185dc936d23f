package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-portal-server/internal/models"
	"clinic-portal-server/internal/utils"
)

// PatientHandler handles the staff-facing patient directory.
type PatientHandler struct {
	DB *gorm.DB
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB) *PatientHandler {
	return &PatientHandler{DB: db}
}

// CreatePatientRequest represents the request body for creating a patient
// account at the front desk.
type CreatePatientRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

// CreatePatient creates a patient account on the patient's behalf.
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req CreatePatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existingUser models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		utils.Conflict(c, "An account with this email already exists")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		Role:        models.RolePatient,
		IsActive:    true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create patient: "+err.Error())
		return
	}

	utils.Created(c, "Patient created successfully", user.Sanitize())
}

// GetPatients returns all patient accounts, optionally filtered by a search
// term matched against name and email.
func (h *PatientHandler) GetPatients(c *gin.Context) {
	query := h.DB.Where("role = ?", models.RolePatient).Order("last_name, first_name")

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ?", like, like, like)
	}

	var patients []models.User
	if err := query.Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(patients))
	for i, p := range patients {
		sanitized[i] = p.Sanitize()
	}

	utils.Success(c, "Patients fetched successfully", sanitized)
}

// GetPatientByID returns a single patient account.
func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	patientID := c.Param("id")

	var patient models.User
	if err := h.DB.Where("role = ?", models.RolePatient).First(&patient, "id = ?", patientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Patient fetched successfully", patient.Sanitize())
}

// UpdatePatientRequest represents the request body for updating a patient
// account.
type UpdatePatientRequest struct {
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email,omitempty"`
	PhoneNumber string     `json:"phoneNumber"`
	Address     string     `json:"address"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	IsActive    *bool      `json:"isActive"`
}

// UpdatePatient updates a patient account.
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	patientID := c.Param("id")

	var req UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var patient models.User
	if err := h.DB.Where("role = ?", models.RolePatient).First(&patient, "id = ?", patientID).Error; err != nil {
		utils.NotFound(c, "Patient not found")
		return
	}

	if req.FirstName != "" {
		patient.FirstName = req.FirstName
	}
	if req.LastName != "" {
		patient.LastName = req.LastName
	}
	if req.Email != "" && req.Email != patient.Email {
		var existingUser models.User
		if err := h.DB.Where("email = ? AND id != ?", req.Email, patient.ID).First(&existingUser).Error; err == nil {
			utils.Conflict(c, "New email is already in use")
			return
		} else if err != gorm.ErrRecordNotFound {
			utils.InternalServerError(c, "Database error checking email: "+err.Error())
			return
		}
		patient.Email = req.Email
	}
	if req.PhoneNumber != "" {
		patient.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		patient.Address = req.Address
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = req.DateOfBirth
	}
	if req.IsActive != nil {
		patient.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to update patient: "+err.Error())
		return
	}

	utils.Success(c, "Patient updated successfully", patient.Sanitize())
}

// DeactivatePatient disables a patient account. Accounts are never hard
// deleted so the appointment history stays attributable.
func (h *PatientHandler) DeactivatePatient(c *gin.Context) {
	patientID := c.Param("id")

	var patient models.User
	if err := h.DB.Where("role = ?", models.RolePatient).First(&patient, "id = ?", patientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	patient.IsActive = false
	if err := h.DB.Save(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to deactivate patient: "+err.Error())
		return
	}

	utils.Success(c, "Patient deactivated successfully", nil)
}

// GetPatientAppointments returns a patient's appointments, matched by account
// ID or booking email so pre-registration bookings are included.
func (h *PatientHandler) GetPatientAppointments(c *gin.Context) {
	patientID := c.Param("id")

	var patient models.User
	if err := h.DB.Where("role = ?", models.RolePatient).First(&patient, "id = ?", patientID).Error; err != nil {
		utils.NotFound(c, "Patient not found")
		return
	}

	var appts []models.Appointment
	if err := h.DB.Where("patient_id = ? OR patient_email = ?", patient.ID, patient.Email).
		Order("date DESC, time DESC").Find(&appts).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appts)
}

// PatientStats summarizes a patient's visit record.
type PatientStats struct {
	Total     int64      `json:"total"`
	Completed int64      `json:"completed"`
	Cancelled int64      `json:"cancelled"`
	NoShows   int64      `json:"noShows"`
	Upcoming  int64      `json:"upcoming"`
	LastVisit *time.Time `json:"lastVisit,omitempty"`
}

// GetPatientStats returns aggregate visit numbers for one patient.
func (h *PatientHandler) GetPatientStats(c *gin.Context) {
	patientID := c.Param("id")

	var patient models.User
	if err := h.DB.Where("role = ?", models.RolePatient).First(&patient, "id = ?", patientID).Error; err != nil {
		utils.NotFound(c, "Patient not found")
		return
	}

	base := func() *gorm.DB {
		return h.DB.Model(&models.Appointment{}).
			Where("patient_id = ? OR patient_email = ?", patient.ID, patient.Email)
	}

	countInto := func(q *gorm.DB, dest *int64) bool {
		if err := q.Count(dest).Error; err != nil {
			utils.InternalServerError(c, "Failed to compute stats: "+err.Error())
			return false
		}
		return true
	}

	stats := PatientStats{}
	if !countInto(base(), &stats.Total) {
		return
	}
	if !countInto(base().Where("status = ?", models.StatusCompleted), &stats.Completed) {
		return
	}
	if !countInto(base().Where("status = ?", models.StatusCancelled), &stats.Cancelled) {
		return
	}
	if !countInto(base().Where("status = ?", models.StatusNoShow), &stats.NoShows) {
		return
	}

	today := time.Now().Format(models.DateLayout)
	if !countInto(base().Where("date >= ? AND status IN ?", today, models.ActiveStatuses), &stats.Upcoming) {
		return
	}

	var lastCompleted models.Appointment
	if err := base().Where("status = ?", models.StatusCompleted).
		Order("date DESC, time DESC").First(&lastCompleted).Error; err == nil {
		if visit, err := lastCompleted.StartsAt(); err == nil {
			stats.LastVisit = &visit
		}
	}

	utils.Success(c, "Patient stats fetched successfully", stats)
}
