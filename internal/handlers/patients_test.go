package handlers

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"clinic-portal-server/internal/models"
)

func TestGetPatientStats_SurfacesCountErrors(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewPatientHandler(db)

	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role"}).
			AddRow("pat-1", "pat@example.com", "patient"))

	// Total succeeds, the completed count fails. The failure must surface
	// rather than reporting zero completed visits.
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnError(errors.New("connection reset"))

	c, w := testContext(t, "GET", "/patients/pat-1/stats", "", "pat-1", models.RoleAdmin, "staff-1")

	h.GetPatientStats(c)

	assert.Equal(t, 500, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
