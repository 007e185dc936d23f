package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-portal-server/internal/config"
	"clinic-portal-server/internal/models"
	"clinic-portal-server/internal/utils"
)

// DashboardHandler serves the admin portal's aggregate views.
type DashboardHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(db *gorm.DB, cfg *config.Config) *DashboardHandler {
	return &DashboardHandler{DB: db, Cfg: cfg}
}

// DashboardStats is the headline card set of the admin dashboard.
type DashboardStats struct {
	TodayTotal      int64   `json:"todayTotal"`
	TodayConfirmed  int64   `json:"todayConfirmed"`
	TodayPending    int64   `json:"todayPending"`
	PendingRequests int64   `json:"pendingRequests"`
	AwaitingReview  int64   `json:"awaitingReview"`
	TotalPatients   int64   `json:"totalPatients"`
	NewThisMonth    int64   `json:"newThisMonth"`
	MonthRevenue    float64 `json:"monthRevenue"`
	RevenueTrend    float64 `json:"revenueTrend"`
	BookingTrend    float64 `json:"bookingTrend"`
	FillRate        float64 `json:"fillRate"`

	RecentAppointments []models.Appointment `json:"recentAppointments"`
}

func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 1, 0)
}

// revenueBetween estimates fee income from confirmed and completed visits in
// the date range, using the configured fee schedule.
func (h *DashboardHandler) revenueBetween(from, to time.Time) (float64, error) {
	type row struct {
		ConsultationType string
		Count            int64
	}
	var rows []row
	err := h.DB.Model(&models.Appointment{}).
		Select("consultation_type, COUNT(*) AS count").
		Where("date >= ? AND date < ? AND status IN ?",
			from.Format(models.DateLayout), to.Format(models.DateLayout),
			[]models.AppointmentStatus{models.StatusConfirmed, models.StatusCompleted}).
		Group("consultation_type").
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}
	var total float64
	for _, r := range rows {
		total += float64(r.Count) * h.Cfg.Clinic.FeeFor(r.ConsultationType)
	}
	return total, nil
}

func trend(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - previous) / previous * 100
}

// GetStats returns the dashboard headline numbers.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	now := time.Now()
	today := now.Format(models.DateLayout)
	monthStart, nextMonth := monthBounds(now)
	lastMonthStart, _ := monthBounds(monthStart.AddDate(0, 0, -1))

	stats := DashboardStats{}
	appts := h.DB.Model(&models.Appointment{})

	// Each aggregate must surface its own failure; a silent zero on the
	// dashboard reads like an empty clinic.
	countInto := func(q *gorm.DB, dest *int64) bool {
		if err := q.Count(dest).Error; err != nil {
			utils.InternalServerError(c, "Failed to compute stats: "+err.Error())
			return false
		}
		return true
	}

	if !countInto(appts.Session(&gorm.Session{}).
		Where("date = ? AND status IN ?", today, models.ActiveStatuses), &stats.TodayTotal) {
		return
	}
	if !countInto(appts.Session(&gorm.Session{}).
		Where("date = ? AND status = ?", today, models.StatusConfirmed), &stats.TodayConfirmed) {
		return
	}
	if !countInto(appts.Session(&gorm.Session{}).
		Where("date = ? AND status = ?", today, models.StatusPending), &stats.TodayPending) {
		return
	}

	if !countInto(appts.Session(&gorm.Session{}).
		Where("status = ?", models.StatusPending), &stats.PendingRequests) {
		return
	}
	if !countInto(appts.Session(&gorm.Session{}).
		Where("status IN ?", []models.AppointmentStatus{
			models.StatusAwaitingAdminResponse, models.StatusModificationPending,
		}), &stats.AwaitingReview) {
		return
	}

	if !countInto(appts.Session(&gorm.Session{}).
		Distinct("patient_email"), &stats.TotalPatients) {
		return
	}

	if !countInto(h.DB.Model(&models.User{}).
		Where("role = ? AND created_at >= ? AND created_at < ?",
			models.RolePatient, monthStart, nextMonth), &stats.NewThisMonth) {
		return
	}

	monthRevenue, err := h.revenueBetween(monthStart, nextMonth)
	if err != nil {
		utils.InternalServerError(c, "Failed to compute revenue: "+err.Error())
		return
	}
	lastMonthRevenue, err := h.revenueBetween(lastMonthStart, monthStart)
	if err != nil {
		utils.InternalServerError(c, "Failed to compute revenue: "+err.Error())
		return
	}
	stats.MonthRevenue = monthRevenue
	stats.RevenueTrend = trend(monthRevenue, lastMonthRevenue)

	var monthBookings, lastMonthBookings int64
	if !countInto(appts.Session(&gorm.Session{}).
		Where("date >= ? AND date < ?",
			monthStart.Format(models.DateLayout), nextMonth.Format(models.DateLayout)), &monthBookings) {
		return
	}
	if !countInto(appts.Session(&gorm.Session{}).
		Where("date >= ? AND date < ?",
			lastMonthStart.Format(models.DateLayout), monthStart.Format(models.DateLayout)), &lastMonthBookings) {
		return
	}
	stats.BookingTrend = trend(float64(monthBookings), float64(lastMonthBookings))

	// Fill rate: occupied slots today against the bookable grid.
	if slots := h.Cfg.Clinic.SlotsPerDay(); slots > 0 {
		stats.FillRate = float64(stats.TodayTotal) / float64(slots) * 100
	}

	if err := h.DB.Order("created_at DESC").Limit(10).
		Find(&stats.RecentAppointments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch recent appointments: "+err.Error())
		return
	}

	utils.Success(c, "Dashboard stats fetched successfully", stats)
}

// DayPoint is one day of the booking evolution chart.
type DayPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// StatusSlice is one wedge of the status distribution chart.
type StatusSlice struct {
	Status models.AppointmentStatus `json:"status"`
	Label  string                   `json:"label"`
	Count  int64                    `json:"count"`
}

// MonthRevenuePoint is one bar of the revenue chart.
type MonthRevenuePoint struct {
	Month   string  `json:"month"` // YYYY-MM
	Revenue float64 `json:"revenue"`
}

// ChartData bundles the three dashboard charts.
type ChartData struct {
	BookingsLastWeek   []DayPoint          `json:"bookingsLastWeek"`
	StatusDistribution []StatusSlice       `json:"statusDistribution"`
	RevenueByMonth     []MonthRevenuePoint `json:"revenueByMonth"`
}

// GetChartData returns the last week's booking evolution, the current status
// distribution and six months of estimated revenue.
func (h *DashboardHandler) GetChartData(c *gin.Context) {
	now := time.Now()
	data := ChartData{}

	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format(models.DateLayout)
		var count int64
		if err := h.DB.Model(&models.Appointment{}).
			Where("date = ?", day).Count(&count).Error; err != nil {
			utils.InternalServerError(c, "Failed to compute chart data: "+err.Error())
			return
		}
		data.BookingsLastWeek = append(data.BookingsLastWeek, DayPoint{Date: day, Count: count})
	}

	type statusRow struct {
		Status models.AppointmentStatus
		Count  int64
	}
	var statusRows []statusRow
	if err := h.DB.Model(&models.Appointment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		utils.InternalServerError(c, "Failed to compute chart data: "+err.Error())
		return
	}
	for _, r := range statusRows {
		data.StatusDistribution = append(data.StatusDistribution, StatusSlice{
			Status: r.Status,
			Label:  r.Status.Display().Label,
			Count:  r.Count,
		})
	}

	monthStart, _ := monthBounds(now)
	for i := 5; i >= 0; i-- {
		from := monthStart.AddDate(0, -i, 0)
		to := from.AddDate(0, 1, 0)
		revenue, err := h.revenueBetween(from, to)
		if err != nil {
			utils.InternalServerError(c, "Failed to compute chart data: "+err.Error())
			return
		}
		data.RevenueByMonth = append(data.RevenueByMonth, MonthRevenuePoint{
			Month:   from.Format("2006-01"),
			Revenue: revenue,
		})
	}

	utils.Success(c, "Chart data fetched successfully", data)
}
