package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var seedBenefits = []Benefit{
	{
		Name:               "Servicemembers' Group Life Insurance",
		Description:        "Low-cost term life insurance coverage for active duty members.",
		Category:           CategoryLifeInsurance,
		CoverageAmount:     400000,
		MonthlyPremium:     25.00,
		MinAge:             18,
		MaxAge:             65,
		RequiresActiveDuty: true,
		PlanCode:           "SGLI-400",
	},
	{
		Name:           "Family Servicemembers' Group Life Insurance",
		Description:    "Life insurance coverage for spouses and dependent children.",
		Category:       CategoryLifeInsurance,
		CoverageAmount: 100000,
		MonthlyPremium: 15.00,
		MinAge:         18,
		MaxAge:         65,
		PlanCode:       "FSGLI-100",
	},
	{
		Name:           "Veterans' Group Life Insurance",
		Description:    "Renewable term life insurance for veterans after separation.",
		Category:       CategoryLifeInsurance,
		CoverageAmount: 250000,
		MonthlyPremium: 35.00,
		MinAge:         18,
		MaxAge:         75,
		PlanCode:       "VGLI-250",
	},
	{
		Name:           "Service-Disabled Veterans Insurance",
		Description:    "Life insurance for veterans with service-connected disabilities.",
		Category:       CategoryLifeInsurance,
		CoverageAmount: 10000,
		MonthlyPremium: 8.00,
		MinAge:         18,
		MaxAge:         70,
		PlanCode:       "SDVI-10",
	},
	{
		Name:               "Military Disability Protection Plus",
		Description:        "Monthly income protection for service-related disabilities.",
		Category:           CategoryDisability,
		CoverageAmount:     5000,
		MonthlyPremium:     45.00,
		Deductible:         250,
		MinAge:             18,
		MaxAge:             60,
		RequiresActiveDuty: true,
		PlanCode:           "MDP-PLUS",
	},
	{
		Name:           "Accident Protection Plan",
		Description:    "Lump-sum benefits for covered accidental injuries.",
		Category:       CategoryAccident,
		CoverageAmount: 50000,
		MonthlyPremium: 12.00,
		Deductible:     100,
		MinAge:         18,
		MaxAge:         65,
		PlanCode:       "APP-50",
	},
	{
		Name:           "Critical Illness Shield",
		Description:    "Lump-sum payment on diagnosis of a covered critical illness.",
		Category:       CategoryCriticalIllness,
		CoverageAmount: 75000,
		MonthlyPremium: 28.00,
		MinAge:         18,
		MaxAge:         65,
		PlanCode:       "CIS-75",
	},
	{
		Name:           "Supplemental Term Life 500",
		Description:    "Additional term life coverage beyond group limits.",
		Category:       CategorySupplemental,
		CoverageAmount: 500000,
		MonthlyPremium: 55.00,
		MinAge:         21,
		MaxAge:         55,
		PlanCode:       "STL-500",
	},
}

// Seed loads the demo benefit catalog, a demo member, and two enrollments.
// It is idempotent: existing plan codes and the demo email are left alone.
func (s *Store) Seed(ctx context.Context) error {
	for _, b := range seedBenefits {
		if _, err := s.pool.Exec(ctx, `
			insert into benefits (
				name, description, category, coverage_amount, monthly_premium, deductible,
				min_age, max_age, requires_active_duty, plan_code, is_active, effective_date
			) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true, current_date)
			on conflict (plan_code) do nothing`,
			b.Name, b.Description, b.Category, b.CoverageAmount, b.MonthlyPremium, b.Deductible,
			b.MinAge, b.MaxAge, b.RequiresActiveDuty, b.PlanCode,
		); err != nil {
			return fmt.Errorf("seed benefit %s: %w", b.PlanCode, err)
		}
	}

	if _, err := s.GetMemberByEmail(ctx, "john.doe@military.mil"); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	serviceStart := time.Date(2005, 8, 1, 0, 0, 0, 0, time.UTC)
	member, err := s.CreateMember(ctx, NewMemberParams{
		Email:            "john.doe@military.mil",
		Password:         "password123",
		FirstName:        "John",
		LastName:         "Doe",
		DateOfBirth:      time.Date(1985, 6, 15, 0, 0, 0, 0, time.UTC),
		Phone:            "910-555-0142",
		Address:          "1200 Bragg Blvd",
		City:             "Fort Liberty",
		State:            "NC",
		ZipCode:          "28310",
		MilitaryBranch:   "Army",
		ServiceStartDate: &serviceStart,
		Rank:             "Sergeant First Class",
		IsActiveDuty:     true,
	})
	if err != nil {
		return fmt.Errorf("seed member: %w", err)
	}
	if err := s.UpdateMembershipStatus(ctx, member.ID, StatusActive); err != nil {
		return fmt.Errorf("seed member status: %w", err)
	}

	for _, code := range []string{"SGLI-400", "APP-50"} {
		benefit, err := s.GetBenefitByPlanCode(ctx, code)
		if err != nil {
			return fmt.Errorf("seed enrollment %s: %w", code, err)
		}
		if _, err := s.CreateEnrollment(ctx, NewEnrollmentParams{
			MemberID:                member.ID,
			BenefitID:               benefit.ID,
			CoverageAmount:          benefit.CoverageAmount,
			MonthlyPremium:          benefit.MonthlyPremium,
			BeneficiaryName:         "Jane Doe",
			BeneficiaryRelationship: "Spouse",
		}); err != nil && !errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("seed enrollment %s: %w", code, err)
		}
	}

	return nil
}
