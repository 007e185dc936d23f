package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-portal-server/internal/config"
	"clinic-portal-server/internal/handlers"
	"clinic-portal-server/internal/middleware"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)
	appointmentHandler := handlers.NewAppointmentHandler(db, cfg)
	dashboardHandler := handlers.NewDashboardHandler(db, cfg)
	patientHandler := handlers.NewPatientHandler(db)
	notificationHandler := handlers.NewNotificationHandler(db)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(db)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		authRoutes.Use(middleware.AuthThrottleMiddleware(cfg.AuthThrottle))
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.RefreshToken)
			authRoutes.POST("/logout", authHandler.Logout)
		}

		// Booking is open to visitors who have no account yet.
		public.POST("/appointments", appointmentHandler.CreateAppointment)
		public.GET("/appointments/slots", appointmentHandler.AvailableSlots)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("", appointmentHandler.ListAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointment)
			appointmentRoutes.GET("/:id/history", appointmentHandler.GetHistory)
			appointmentRoutes.POST("/:id/cancel", appointmentHandler.Cancel)

			// Patient side of the negotiation.
			appointmentRoutes.POST("/:id/accept", appointmentHandler.AcceptProposal)
			appointmentRoutes.POST("/:id/reject", appointmentHandler.RejectProposal)
			appointmentRoutes.POST("/:id/counter-propose", appointmentHandler.CounterPropose)
			appointmentRoutes.POST("/:id/modify", appointmentHandler.Modify)

			// Clinic side.
			appointmentRoutes.POST("/:id/respond", middleware.StaffOnly(), appointmentHandler.Respond)
			appointmentRoutes.PATCH("/:id/status", middleware.StaffOnly(), appointmentHandler.UpdateStatus)
		}

		dashboardRoutes := private.Group("/dashboard")
		dashboardRoutes.Use(middleware.StaffOnly())
		{
			dashboardRoutes.GET("/stats", dashboardHandler.GetStats)
			dashboardRoutes.GET("/charts", dashboardHandler.GetChartData)
		}

		patientRoutes := private.Group("/patients")
		patientRoutes.Use(middleware.StaffOnly())
		{
			patientRoutes.POST("", patientHandler.CreatePatient)
			patientRoutes.GET("", patientHandler.GetPatients)
			patientRoutes.GET("/:id", patientHandler.GetPatientByID)
			patientRoutes.PUT("/:id", patientHandler.UpdatePatient)
			patientRoutes.DELETE("/:id", patientHandler.DeactivatePatient)
			patientRoutes.GET("/:id/appointments", patientHandler.GetPatientAppointments)
			patientRoutes.GET("/:id/stats", patientHandler.GetPatientStats)
		}

		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotifications)
			notificationRoutes.GET("/unread-count", notificationHandler.GetUnreadCount)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkRead)
			notificationRoutes.POST("/read-all", notificationHandler.MarkAllRead)
		}

		medicalRecordRoutes := private.Group("/medical-records")
		{
			medicalRecordRoutes.POST("", middleware.StaffOnly(), medicalRecordHandler.CreateMedicalRecord)
			medicalRecordRoutes.GET("", medicalRecordHandler.GetMedicalRecords)
			medicalRecordRoutes.GET("/:id", medicalRecordHandler.GetMedicalRecordByID)
			medicalRecordRoutes.PUT("/:id", middleware.StaffOnly(), medicalRecordHandler.UpdateMedicalRecord)
			medicalRecordRoutes.DELETE("/:id", middleware.StaffOnly(), medicalRecordHandler.DeleteMedicalRecord)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
