package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jfemon8/Meal-Management-sub005/config"
)

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "meals.db", cfg.Database.Path)
	assert.Equal(t, 9, cfg.Meals.LunchCutoffHour)
	assert.Equal(t, 17, cfg.Meals.DinnerCutoffHour)

	policy := cfg.Calendar.WeekendPolicy()
	assert.True(t, policy.FridayOff)
	assert.False(t, policy.SaturdayOff)
	assert.True(t, policy.OddSaturdayOff)
	assert.False(t, policy.EvenSaturdayOff)
}

func TestLoad_WeekendOverrides(t *testing.T) {
	// An even-Saturday rotation is the mirror of the default odd one; both
	// halves must be reachable from the environment.

	t.Setenv("ODD_SATURDAY_OFF", "false")
	t.Setenv("EVEN_SATURDAY_OFF", "true")
	t.Setenv("FRIDAY_OFF", "false")
	t.Setenv("SATURDAY_OFF", "true")

	policy := config.Load().Calendar.WeekendPolicy()
	assert.False(t, policy.FridayOff)
	assert.True(t, policy.SaturdayOff)
	assert.False(t, policy.OddSaturdayOff)
	assert.True(t, policy.EvenSaturdayOff)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("FRIDAY_OFF", "maybe")

	cfg := config.Load()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Calendar.FridayOff)
}
