package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	Database                  DatabaseConfig
	Clinic                    ClinicConfig
	AuthThrottle              ThrottleConfig
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// ClinicConfig holds the booking grid and the fee schedule used for the
// dashboard revenue estimates.
type ClinicConfig struct {
	OpeningHour    int // first bookable hour, inclusive
	ClosingHour    int // last bookable hour, exclusive
	FeeGeneral     float64
	FeeSpecialized float64
	FeeFollowUp    float64
	FeeEmergency   float64
}

// ThrottleConfig holds the per-IP rate limit applied to the auth endpoints.
type ThrottleConfig struct {
	RatePerSecond float64
	Burst         int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "clinic_portal"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	jwtExpMinutes, err := getEnvInt("JWT_EXPIRATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}

	jwtRefreshExpHours, err := getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	openingHour, err := getEnvInt("CLINIC_OPENING_HOUR", 8)
	if err != nil {
		return nil, err
	}
	closingHour, err := getEnvInt("CLINIC_CLOSING_HOUR", 18)
	if err != nil {
		return nil, err
	}
	if closingHour <= openingHour {
		return nil, fmt.Errorf("CLINIC_CLOSING_HOUR (%d) must be after CLINIC_OPENING_HOUR (%d)", closingHour, openingHour)
	}

	clinic := ClinicConfig{
		OpeningHour:    openingHour,
		ClosingHour:    closingHour,
		FeeGeneral:     getEnvFloat("FEE_GENERAL", 15000),
		FeeSpecialized: getEnvFloat("FEE_SPECIALIZED", 25000),
		FeeFollowUp:    getEnvFloat("FEE_FOLLOW_UP", 10000),
		FeeEmergency:   getEnvFloat("FEE_EMERGENCY", 30000),
	}

	throttleBurst, err := getEnvInt("AUTH_THROTTLE_BURST", 10)
	if err != nil {
		return nil, err
	}

	// Return complete configuration
	return &Config{
		Port:                      getEnv("PORT", "8000"),
		Origin:                    getEnv("ORIGIN", "http://localhost:3000"),
		Environment:               getEnv("APP_ENV", "development"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		Database:                  dbConfig,
		Clinic:                    clinic,
		AuthThrottle:              ThrottleConfig{RatePerSecond: getEnvFloat("AUTH_THROTTLE_RATE", 1), Burst: throttleBurst},
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
	}, nil
}

// FeeFor returns the configured fee for a consultation type, 0 when unknown.
func (c ClinicConfig) FeeFor(consultationType string) float64 {
	switch consultationType {
	case "generale":
		return c.FeeGeneral
	case "specialisee":
		return c.FeeSpecialized
	case "suivi":
		return c.FeeFollowUp
	case "urgence":
		return c.FeeEmergency
	}
	return 0
}

// SlotsPerDay returns the number of bookable hourly slots in a working day.
func (c ClinicConfig) SlotsPerDay() int {
	return c.ClosingHour - c.OpeningHour
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
