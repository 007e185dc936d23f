package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"clinic-portal-server/internal/config"
	"clinic-portal-server/internal/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func testClinicConfig() *config.Config {
	return &config.Config{
		Clinic: config.ClinicConfig{OpeningHour: 8, ClosingHour: 18},
	}
}

func testContext(t *testing.T, method, path, body string, id string, role models.Role, userID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: id}}
	c.Set("userID", userID)
	c.Set("userRole", role)
	c.Set("userEmail", "pat@example.com")
	return c, w
}

func appointmentRow(status models.AppointmentStatus, date, timeOfDay, proposedDate, proposedTime string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "status", "date", "time", "proposed_date", "proposed_time",
		"patient_id", "patient_email", "patient_first_name", "patient_last_name",
	}).AddRow(7, string(status), date, timeOfDay, proposedDate, proposedTime,
		"pat-1", "pat@example.com", "Ada", "Diallo")
}

// A date safely past the 24h cutoff but inside the booking horizon.
func nearFutureDate() string {
	return time.Now().AddDate(0, 0, 30).Format(models.DateLayout)
}

func TestModify_OccupiedSlotRejected(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewAppointmentHandler(db, testClinicConfig())

	farDate := time.Now().AddDate(0, 2, 0).Format(models.DateLayout)
	mock.ExpectQuery("SELECT \\* FROM `appointments`").
		WillReturnRows(appointmentRow(models.StatusConfirmed, farDate, "10:00", "", ""))
	// Another active appointment already holds the requested slot.
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	body := `{"date":"` + nearFutureDate() + `","time":"09:00"}`
	c, w := testContext(t, "POST", "/appointments/7/modify", body, "7", models.RolePatient, "pat-1")

	h.Modify(c)

	assert.Equal(t, 409, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRespondPropose_OccupiedSlotRejected(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewAppointmentHandler(db, testClinicConfig())

	mock.ExpectQuery("SELECT \\* FROM `appointments`").
		WillReturnRows(appointmentRow(models.StatusPending, nearFutureDate(), "10:00", "", ""))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	body := `{"action":"propose","proposedDate":"` + nearFutureDate() + `","proposedTime":"11:00"}`
	c, w := testContext(t, "POST", "/appointments/7/respond", body, "7", models.RoleAdmin, "staff-1")

	h.Respond(c)

	assert.Equal(t, 409, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterPropose_OccupiedSlotRejected(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewAppointmentHandler(db, testClinicConfig())

	mock.ExpectQuery("SELECT \\* FROM `appointments`").
		WillReturnRows(appointmentRow(models.StatusAwaitingPatientResponse, nearFutureDate(), "10:00", nearFutureDate(), "11:00"))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	body := `{"date":"` + nearFutureDate() + `","time":"14:00"}`
	c, w := testContext(t, "POST", "/appointments/7/counter-propose", body, "7", models.RolePatient, "pat-1")

	h.CounterPropose(c)

	assert.Equal(t, 409, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptProposal_SlotBookedSinceProposal(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewAppointmentHandler(db, testClinicConfig())

	// The clinic proposed a slot, then someone else booked it.
	mock.ExpectQuery("SELECT \\* FROM `appointments`").
		WillReturnRows(appointmentRow(models.StatusAwaitingPatientResponse, nearFutureDate(), "10:00", nearFutureDate(), "11:00"))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	c, w := testContext(t, "POST", "/appointments/7/accept", `{}`, "7", models.RolePatient, "pat-1")

	h.AcceptProposal(c)

	assert.Equal(t, 409, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
