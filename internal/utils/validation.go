package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"clinic-portal-server/internal/models"
)

// MaxBookingLead is how far in the future an appointment may be booked.
const MaxBookingLead = 180 * 24 * time.Hour // 6 months

// Validate performs validation on a struct.
func Validate(s interface{}) error {
	validate := validator.New()
	return validate.Struct(s)
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok {
		var errorMessages []string
		for _, e := range errs {
			errorMessages = append(errorMessages, fmt.Sprintf("field '%s' failed on the '%s' rule", e.Field(), e.Tag()))
		}
		return strings.Join(errorMessages, ", ")
	}
	return err.Error()
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		BadRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	if err := Validate(obj); err != nil {
		BadRequest(c, "Validation failed: "+FormatValidationError(err))
		return false
	}
	return true
}

// ValidateBookingSlot checks the date/time pair of a booking or proposal:
// well-formed, not in the past, not more than six months out, and inside the
// clinic's opening hours.
func ValidateBookingSlot(date, timeOfDay string, openingHour, closingHour int, now time.Time) error {
	slot, err := time.ParseInLocation(models.DateLayout+" "+models.TimeLayout, date+" "+timeOfDay, time.Local)
	if err != nil {
		return fmt.Errorf("invalid date or time format, expected YYYY-MM-DD and HH:MM")
	}
	if slot.Before(now) {
		return fmt.Errorf("the appointment date cannot be in the past")
	}
	if slot.After(now.Add(MaxBookingLead)) {
		return fmt.Errorf("the appointment date cannot be more than 6 months in the future")
	}
	if slot.Hour() < openingHour || slot.Hour() >= closingHour {
		return fmt.Errorf("the appointment time must be between %02d:00 and %02d:00", openingHour, closingHour)
	}
	return nil
}
