package portalclient

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DashboardStats are the admin dashboard headline numbers.
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

	RecentAppointments []Appointment `json:"recentAppointments"`
}

// GetDashboardStats returns the dashboard headline numbers (staff only).
func (c *Client) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.do(ctx, http.MethodGet, "/dashboard/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// DayPoint is one day of the booking evolution chart.
type DayPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// StatusSlice is one wedge of the status distribution chart.
type StatusSlice struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

// MonthRevenuePoint is one bar of the revenue chart.
type MonthRevenuePoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// ChartData bundles the three dashboard charts.
type ChartData struct {
	BookingsLastWeek   []DayPoint          `json:"bookingsLastWeek"`
	StatusDistribution []StatusSlice       `json:"statusDistribution"`
	RevenueByMonth     []MonthRevenuePoint `json:"revenueByMonth"`
}

// GetChartData returns the dashboard chart series (staff only).
func (c *Client) GetChartData(ctx context.Context) (*ChartData, error) {
	var data ChartData
	if err := c.do(ctx, http.MethodGet, "/dashboard/charts", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PatientStats summarizes one patient's visit record.
type PatientStats struct {
	Total     int64      `json:"total"`
	Completed int64      `json:"completed"`
	Cancelled int64      `json:"cancelled"`
	NoShows   int64      `json:"noShows"`
	Upcoming  int64      `json:"upcoming"`
	LastVisit *time.Time `json:"lastVisit,omitempty"`
}

// GetPatientStats returns aggregate visit numbers for one patient (staff only).
func (c *Client) GetPatientStats(ctx context.Context, patientID string) (*PatientStats, error) {
	var stats PatientStats
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/patients/%s/stats", patientID), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Notification is one bell-menu entry.
type Notification struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	AppointmentID *uint      `json:"appointmentId,omitempty"`
	IsRead        bool       `json:"isRead"`
	ReadAt        *time.Time `json:"readAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Notifications returns the caller's notifications, newest first.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	path := "/notifications"
	if unreadOnly {
		path += "?unread=true"
	}
	var notifications []Notification
	if err := c.do(ctx, http.MethodGet, path, nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead acknowledges one notification.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/notifications/"+id+"/read", nil, nil)
}
