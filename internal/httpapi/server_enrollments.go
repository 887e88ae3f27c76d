package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/valorlife/membercenter/internal/observability"
	"github.com/valorlife/membercenter/internal/store"
	"github.com/valorlife/membercenter/pkg/membertools"
)

func (s *server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid member id")
		return
	}

	activeOnly := r.URL.Query().Get("include_inactive") != "true"
	enrollments, err := s.store.ListEnrollments(r.Context(), memberID, activeOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(enrollments),
		"enrollments": enrollments,
	})
}

type createEnrollmentRequest struct {
	PlanCode                string  `json:"plan_code"`
	CoverageAmount          float64 `json:"coverage_amount,omitempty"`
	BeneficiaryName         string  `json:"beneficiary_name,omitempty"`
	BeneficiaryRelationship string  `json:"beneficiary_relationship,omitempty"`
}

func (s *server) handleCreateEnrollment(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid member id")
		return
	}

	var req createEnrollmentRequest
	if !readJSON(w, r, &req, 16*1024) {
		return
	}
	if strings.TrimSpace(req.PlanCode) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "plan_code is required")
		return
	}
	if req.CoverageAmount < 0 {
		writeErrorMessage(w, http.StatusBadRequest, "coverage_amount cannot be negative")
		return
	}

	member, err := s.store.GetMember(r.Context(), memberID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	benefit, err := s.store.GetBenefitByPlanCode(r.Context(), req.PlanCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !benefit.IsActive {
		writeErrorMessage(w, http.StatusBadRequest, "this plan is not open for enrollment")
		return
	}

	enrolled, err := s.store.HasActiveEnrollment(r.Context(), member.ID, benefit.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	eligibility := membertools.CheckEligibility(member, benefit, enrolled, membertools.Deps{Store: s.store, Now: time.Now})
	if !eligibility.Eligible {
		observability.RecordEnrollmentOperation("create", false)
		observability.RecordEnrollmentAudit(r.Context(), "create", member.MemberNumber, "failure", map[string]interface{}{
			"plan_code": benefit.PlanCode,
			"reasons":   eligibility.Reasons,
		})
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "not eligible for this plan",
			"reasons": eligibility.Reasons,
		})
		return
	}

	coverage := req.CoverageAmount
	if coverage == 0 {
		coverage = benefit.CoverageAmount
	}

	premium, err := membertools.MonthlyPremium(benefit.Category, coverage, member.Age(time.Now()), member.IsActiveDuty)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	enrollment, err := s.store.CreateEnrollment(r.Context(), store.NewEnrollmentParams{
		MemberID:                member.ID,
		BenefitID:               benefit.ID,
		CoverageAmount:          coverage,
		MonthlyPremium:          premium,
		BeneficiaryName:         req.BeneficiaryName,
		BeneficiaryRelationship: req.BeneficiaryRelationship,
	})
	if err != nil {
		observability.RecordEnrollmentOperation("create", false)
		s.writeError(w, r, err)
		return
	}

	observability.RecordEnrollmentOperation("create", true)
	observability.RecordEnrollmentAudit(r.Context(), "create", member.MemberNumber, "success", map[string]interface{}{
		"plan_code":       benefit.PlanCode,
		"enrollment_id":   enrollment.ID,
		"coverage_amount": coverage,
	})
	writeJSON(w, http.StatusCreated, enrollment)
}

func (s *server) handleCancelEnrollment(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid member id")
		return
	}
	enrollmentID, err := pathID(r, "enrollmentID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid enrollment id")
		return
	}

	if err := s.store.CancelEnrollment(r.Context(), memberID, enrollmentID); err != nil {
		observability.RecordEnrollmentOperation("cancel", false)
		s.writeError(w, r, err)
		return
	}

	observability.RecordEnrollmentOperation("cancel", true)
	observability.RecordEnrollmentAudit(r.Context(), "cancel", "", "success", map[string]interface{}{
		"member_id":     memberID,
		"enrollment_id": enrollmentID,
	})
	w.WriteHeader(http.StatusNoContent)
}
