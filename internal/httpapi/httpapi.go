// Package httpapi exposes the member center REST and WebSocket surface.
package httpapi

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/valorlife/membercenter/internal/store"
	"github.com/valorlife/membercenter/pkg/conversation"
	"github.com/valorlife/membercenter/pkg/crew"
	"github.com/valorlife/membercenter/pkg/moderation"
)

// Store is the member data access the handlers need.
type Store interface {
	Ping(ctx context.Context) error

	CreateMember(ctx context.Context, p store.NewMemberParams) (*store.Member, error)
	GetMember(ctx context.Context, id int64) (*store.Member, error)
	GetMemberByEmail(ctx context.Context, email string) (*store.Member, error)
	Authenticate(ctx context.Context, email, password string) (*store.Member, error)
	GetDashboard(ctx context.Context, memberID int64) (*store.Dashboard, error)

	ListBenefits(ctx context.Context, filter store.BenefitFilter) ([]store.Benefit, error)
	GetBenefit(ctx context.Context, id int64) (*store.Benefit, error)
	GetBenefitByPlanCode(ctx context.Context, code string) (*store.Benefit, error)

	ListEnrollments(ctx context.Context, memberID int64, activeOnly bool) ([]store.EnrollmentDetail, error)
	HasActiveEnrollment(ctx context.Context, memberID, benefitID int64) (bool, error)
	CreateEnrollment(ctx context.Context, p store.NewEnrollmentParams) (*store.EnrollmentDetail, error)
	CancelEnrollment(ctx context.Context, memberID, enrollmentID int64) error
}

// ChatService answers a chat message through the agent crew.
type ChatService interface {
	Process(ctx context.Context, req crew.Request) (*crew.Response, error)
}

// Conversations persists chat history between requests.
type Conversations interface {
	NewConversationID() (string, error)
	AppendMessage(ctx context.Context, conversationID string, msg conversation.Message) error
	History(ctx context.Context, conversationID string) ([]conversation.Message, error)
}

// Deps wires the handlers to their collaborators.
type Deps struct {
	Store          Store
	Chat           ChatService
	Conversations  Conversations
	Moderation     *moderation.Guard // optional, PII-only guard when nil
	Logger         zerolog.Logger
	AllowedOrigins []string
	RateLimitRPS   int
}
