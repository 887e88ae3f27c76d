package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valorlife/membercenter/internal/store"
)

func (s *server) handleListBenefits(w http.ResponseWriter, r *http.Request) {
	filter := store.BenefitFilter{
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: r.URL.Query().Get("include_inactive") != "true",
	}

	benefits, err := s.store.ListBenefits(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(benefits),
		"benefits": benefits,
	})
}

func (s *server) handleGetBenefit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "benefitID")
	if err != nil {
		// Fall back to plan code lookup, e.g. /api/benefits/SGLI-400
		benefit, lookupErr := s.store.GetBenefitByPlanCode(r.Context(), chi.URLParam(r, "benefitID"))
		if lookupErr != nil {
			s.writeError(w, r, lookupErr)
			return
		}
		writeJSON(w, http.StatusOK, benefit)
		return
	}

	benefit, err := s.store.GetBenefit(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, benefit)
}
