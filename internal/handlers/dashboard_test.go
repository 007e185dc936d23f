package handlers

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"clinic-portal-server/internal/models"
)

func TestGetStats_SurfacesAggregateErrors(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewDashboardHandler(db, testClinicConfig())

	// First aggregate succeeds, the second one fails mid-way. The handler
	// must report the failure instead of serving a dashboard of zeros.
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnError(errors.New("connection reset"))

	c, w := testContext(t, "GET", "/dashboard/stats", "", "", models.RoleAdmin, "staff-1")

	h.GetStats(c)

	assert.Equal(t, 500, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetChartData_SurfacesQueryErrors(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewDashboardHandler(db, testClinicConfig())

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WillReturnError(errors.New("connection reset"))

	c, w := testContext(t, "GET", "/dashboard/charts", "", "", models.RoleAdmin, "staff-1")

	h.GetChartData(c)

	assert.Equal(t, 500, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrend(t *testing.T) {
	assert.Equal(t, 0.0, trend(0, 0))
	assert.Equal(t, 100.0, trend(5, 0))
	assert.Equal(t, 50.0, trend(15, 10))
	assert.Equal(t, -50.0, trend(5, 10))
}
