package httpapi

import (
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/valorlife/membercenter/internal/observability"
	"github.com/valorlife/membercenter/internal/store"
)

const dateLayout = "2006-01-02"

type createMemberRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	ZipCode     string `json:"zip_code,omitempty"`

	MilitaryBranch   string `json:"military_branch,omitempty"`
	ServiceStartDate string `json:"service_start_date,omitempty"`
	ServiceEndDate   string `json:"service_end_date,omitempty"`
	Rank             string `json:"rank,omitempty"`
	IsActiveDuty     bool   `json:"is_active_duty,omitempty"`
}

func (req *createMemberRequest) validate() string {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "a valid email is required"
	}
	if len(req.Password) < 8 {
		return "password must be at least 8 characters"
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return "first_name and last_name are required"
	}
	if _, err := time.Parse(dateLayout, req.DateOfBirth); err != nil {
		return "date_of_birth must be YYYY-MM-DD"
	}
	if req.MilitaryBranch != "" && !isKnownBranch(req.MilitaryBranch) {
		return "unknown military_branch"
	}
	return ""
}

func isKnownBranch(branch string) bool {
	for _, b := range store.MilitaryBranches {
		if b == branch {
			return true
		}
	}
	return false
}

func parseOptionalDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if !readJSON(w, r, &req, 64*1024) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeErrorMessage(w, http.StatusBadRequest, msg)
		return
	}

	dob, _ := time.Parse(dateLayout, req.DateOfBirth)
	serviceStart, err := parseOptionalDate(req.ServiceStartDate)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "service_start_date must be YYYY-MM-DD")
		return
	}
	serviceEnd, err := parseOptionalDate(req.ServiceEndDate)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "service_end_date must be YYYY-MM-DD")
		return
	}

	member, err := s.store.CreateMember(r.Context(), store.NewMemberParams{
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Password:    req.Password,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		DateOfBirth: dob,
		Phone:       req.Phone,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		ZipCode:     req.ZipCode,

		MilitaryBranch:   req.MilitaryBranch,
		ServiceStartDate: serviceStart,
		ServiceEndDate:   serviceEnd,
		Rank:             req.Rank,
		IsActiveDuty:     req.IsActiveDuty,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

func (s *server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "memberID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid member id")
		return
	}

	member, err := s.store.GetMember(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (s *server) handleGetMemberByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(chi.URLParam(r, "email"))
	if email == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email is required")
		return
	}

	member, err := s.store.GetMemberByEmail(r.Context(), email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !readJSON(w, r, &req, 16*1024) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	member, err := s.store.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		observability.RecordSecurityAudit(r.Context(), "login", email, "failure", nil)
		s.writeError(w, r, err)
		return
	}
	observability.RecordSecurityAudit(r.Context(), "login", member.MemberNumber, "success", nil)
	writeJSON(w, http.StatusOK, member)
}

func (s *server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "memberID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid member id")
		return
	}

	dashboard, err := s.store.GetDashboard(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
