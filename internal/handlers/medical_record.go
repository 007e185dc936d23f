package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-portal-server/internal/middleware"
	"clinic-portal-server/internal/models"
	"clinic-portal-server/internal/utils"
)

// MedicalRecordHandler handles clinical notes. Staff write them, patients can
// read their own.
type MedicalRecordHandler struct {
	DB *gorm.DB
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(db *gorm.DB) *MedicalRecordHandler {
	return &MedicalRecordHandler{DB: db}
}

// CreateMedicalRecordRequest represents the request body for creating a medical record.
type CreateMedicalRecordRequest struct {
	PatientID  string `json:"patientId" binding:"required,uuid"`
	RecordType string `json:"recordType" binding:"required,oneof=consultation_note lab_result prescription follow_up_note"`
	RecordDate string `json:"recordDate" binding:"required"` // YYYY-MM-DD
	Title      string `json:"title" binding:"required"`
	Summary    string `json:"summary"`
	Details    string `json:"details"`
}

// CreateMedicalRecord creates a clinical note for a patient.
func (h *MedicalRecordHandler) CreateMedicalRecord(c *gin.Context) {
	var req CreateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	authorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	recordDate, err := time.ParseInLocation(models.DateLayout, req.RecordDate, time.Local)
	if err != nil {
		utils.BadRequest(c, "Invalid recordDate, expected YYYY-MM-DD")
		return
	}

	var patient models.User
	if err := h.DB.Where("role = ?", models.RolePatient).First(&patient, "id = ?", req.PatientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	record := models.MedicalRecord{
		PatientID:  patient.ID,
		AuthorID:   authorID,
		RecordType: models.MedicalRecordType(req.RecordType),
		RecordDate: recordDate,
		Title:      req.Title,
		Summary:    req.Summary,
		Details:    req.Details,
	}

	if err := h.DB.Create(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to create medical record: "+err.Error())
		return
	}

	utils.Created(c, "Medical record created successfully", record)
}

// GetMedicalRecords returns medical records. Staff may filter by patientId;
// patients always get their own.
func (h *MedicalRecordHandler) GetMedicalRecords(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Order("record_date DESC")
	if role.IsStaff() {
		if patientID := c.Query("patientId"); patientID != "" {
			query = query.Where("patient_id = ?", patientID)
		}
	} else {
		query = query.Where("patient_id = ?", userID)
	}

	var records []models.MedicalRecord
	if err := query.Find(&records).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medical records: "+err.Error())
		return
	}

	utils.Success(c, "Medical records fetched successfully", records)
}

// GetMedicalRecordByID returns one record, enforcing ownership for patients.
func (h *MedicalRecordHandler) GetMedicalRecordByID(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)

	var record models.MedicalRecord
	if err := h.DB.First(&record, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !role.IsStaff() && record.PatientID != userID {
		utils.NotFound(c, "Medical record not found")
		return
	}

	utils.Success(c, "Medical record fetched successfully", record)
}

// UpdateMedicalRecordRequest represents the request body for updating a record.
type UpdateMedicalRecordRequest struct {
	RecordType string `json:"recordType" binding:"omitempty,oneof=consultation_note lab_result prescription follow_up_note"`
	RecordDate string `json:"recordDate"`
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	Details    string `json:"details"`
}

// UpdateMedicalRecord updates a clinical note.
func (h *MedicalRecordHandler) UpdateMedicalRecord(c *gin.Context) {
	var req UpdateMedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var record models.MedicalRecord
	if err := h.DB.First(&record, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.RecordType != "" {
		record.RecordType = models.MedicalRecordType(req.RecordType)
	}
	if req.RecordDate != "" {
		recordDate, err := time.ParseInLocation(models.DateLayout, req.RecordDate, time.Local)
		if err != nil {
			utils.BadRequest(c, "Invalid recordDate, expected YYYY-MM-DD")
			return
		}
		record.RecordDate = recordDate
	}
	if req.Title != "" {
		record.Title = req.Title
	}
	if req.Summary != "" {
		record.Summary = req.Summary
	}
	if req.Details != "" {
		record.Details = req.Details
	}

	if err := h.DB.Save(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to update medical record: "+err.Error())
		return
	}

	utils.Success(c, "Medical record updated successfully", record)
}

// DeleteMedicalRecord removes a clinical note.
func (h *MedicalRecordHandler) DeleteMedicalRecord(c *gin.Context) {
	var record models.MedicalRecord
	if err := h.DB.First(&record, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Delete(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete medical record: "+err.Error())
		return
	}

	utils.Success(c, "Medical record deleted successfully", nil)
}
