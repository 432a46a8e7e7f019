// Package config loads process-wide settings from environment variables
// with sane defaults. Command-line flags in cmd/server override these.
package config

import (
	"os"
	"strconv"

	"github.com/jfemon8/Meal-Management-sub005/calendar"
	"github.com/jfemon8/Meal-Management-sub005/core"
	"github.com/jfemon8/Meal-Management-sub005/meal"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Meals    MealConfig
	Calendar CalendarConfig
	Charges  ChargeConfig
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the SQLite configuration.
// Path ":memory:" runs fully in memory.
type DatabaseConfig struct {
	Path string
}

// MealConfig holds the toggle-window cutoffs.
type MealConfig struct {
	LunchCutoffHour  int
	DinnerCutoffHour int
}

func (c MealConfig) Cutoffs() meal.CutoffHours {
	return meal.CutoffHours{Lunch: c.LunchCutoffHour, Dinner: c.DinnerCutoffHour}
}

// CalendarConfig holds the default-off policy.
type CalendarConfig struct {
	FridayOff       bool
	SaturdayOff     bool
	OddSaturdayOff  bool
	EvenSaturdayOff bool
	GovernmentOff   bool
	OptionalOff     bool
	ReligiousOff    bool
}

func (c CalendarConfig) WeekendPolicy() calendar.WeekendPolicy {
	return calendar.WeekendPolicy{
		FridayOff:       c.FridayOff,
		SaturdayOff:     c.SaturdayOff,
		OddSaturdayOff:  c.OddSaturdayOff,
		EvenSaturdayOff: c.EvenSaturdayOff,
	}
}

func (c CalendarConfig) HolidayPolicy() calendar.HolidayPolicy {
	return calendar.HolidayPolicy{
		GovernmentOff: c.GovernmentOff,
		OptionalOff:   c.OptionalOff,
		ReligiousOff:  c.ReligiousOff,
	}
}

// ChargeConfig holds ledger-side knobs.
type ChargeConfig struct {
	// LowBalanceThreshold triggers a notification when a balance drops
	// below it. Currency units, parsed as a decimal string.
	LowBalanceThreshold string

	// SchedulerIntervalMinutes is how often the month-end scheduler wakes
	// up to look for finalized, uncharged months. 0 disables it.
	SchedulerIntervalMinutes int
}

func (c ChargeConfig) Threshold() core.Money {
	return core.MustParseMoney(c.LowBalanceThreshold)
}

// Load reads the configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "meals.db"),
		},
		Meals: MealConfig{
			LunchCutoffHour:  getEnvAsInt("LUNCH_CUTOFF_HOUR", 9),
			DinnerCutoffHour: getEnvAsInt("DINNER_CUTOFF_HOUR", 17),
		},
		Calendar: CalendarConfig{
			FridayOff:       getEnvAsBool("FRIDAY_OFF", true),
			SaturdayOff:     getEnvAsBool("SATURDAY_OFF", false),
			OddSaturdayOff:  getEnvAsBool("ODD_SATURDAY_OFF", true),
			EvenSaturdayOff: getEnvAsBool("EVEN_SATURDAY_OFF", false),
			GovernmentOff:   getEnvAsBool("GOVERNMENT_HOLIDAY_OFF", true),
			OptionalOff:     getEnvAsBool("OPTIONAL_HOLIDAY_OFF", false),
			ReligiousOff:    getEnvAsBool("RELIGIOUS_HOLIDAY_OFF", false),
		},
		Charges: ChargeConfig{
			LowBalanceThreshold:      getEnv("LOW_BALANCE_THRESHOLD", "100"),
			SchedulerIntervalMinutes: getEnvAsInt("CHARGE_SCHEDULER_INTERVAL_MINUTES", 60),
		},
	}
}

// Helper functions to read environment variables.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
