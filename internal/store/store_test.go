package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemberAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		dob  time.Time
		want int
	}{
		{"birthday passed this year", time.Date(1985, 3, 10, 0, 0, 0, 0, time.UTC), 39},
		{"birthday later this year", time.Date(1985, 9, 10, 0, 0, 0, 0, time.UTC), 38},
		{"birthday this month, passed", time.Date(1985, 6, 1, 0, 0, 0, 0, time.UTC), 39},
		{"birthday this month, not yet", time.Date(1985, 6, 15, 0, 0, 0, 0, time.UTC), 38},
		{"newborn", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Member{DateOfBirth: tt.dob}
			assert.Equal(t, tt.want, m.Age(now))
		})
	}
}

func TestFormatMemberNumber(t *testing.T) {
	now := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "MIL-2024-001234", FormatMemberNumber(now, 1234))
	assert.Equal(t, "MIL-2024-000001", FormatMemberNumber(now, 1))
	assert.Equal(t, "MIL-2024-1234567", FormatMemberNumber(now, 1234567))
}

func TestNextEffectiveDate(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"mid-month",
			time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC),
			time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"first of month",
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"december rolls into next year",
			time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextEffectiveDate(tt.now))
		})
	}
}

func TestTerminationDate(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"mid-month runs to month end",
			time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC),
			time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			"february",
			time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			"leap february",
			time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TerminationDate(tt.now)
			assert.Equal(t, tt.want, got)
			// A termination scheduled today is still in the future when
			// the sweep compares against the current date.
			assert.False(t, got.Before(time.Date(tt.now.Year(), tt.now.Month(), tt.now.Day(), 0, 0, 0, 0, time.UTC)))
		})
	}
}

func TestSeedBenefitCatalog(t *testing.T) {
	codes := map[string]bool{}
	for _, b := range seedBenefits {
		assert.False(t, codes[b.PlanCode], "duplicate plan code %s", b.PlanCode)
		codes[b.PlanCode] = true

		assert.NotEmpty(t, b.Name)
		assert.NotEmpty(t, b.Category)
		assert.Greater(t, b.CoverageAmount, 0.0)
		assert.Greater(t, b.MonthlyPremium, 0.0)
		assert.GreaterOrEqual(t, b.MinAge, 18)
		assert.Greater(t, b.MaxAge, b.MinAge)
	}

	assert.Len(t, seedBenefits, 8)
	assert.True(t, codes["SGLI-400"])
	assert.True(t, codes["STL-500"])
}
