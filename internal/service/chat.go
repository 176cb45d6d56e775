package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/llm"
	"github.com/JesseOrSomething/ZenCode/internal/model"
	"github.com/JesseOrSomething/ZenCode/internal/repository"
	"github.com/JesseOrSomething/ZenCode/internal/session"
)

// ChatService admits a question through the session gate, calls the LLM with
// the trimmed conversation context, and records the reply.
type ChatService interface {
	Send(ctx context.Context, in ChatInput) (*ChatOutput, error)
}

// ChatInput is one incoming chat request after identity resolution.
type ChatInput struct {
	UserID         uuid.UUID // uuid.Nil for anonymous callers
	GuestKey       string    // ephemeral key identifying an anonymous caller
	ConversationID string    // empty requests a new conversation
	Message        string
	Image          string // optional data URL
}

// ChatOutput carries either the reply or a quota denial.
type ChatOutput struct {
	Admitted       bool
	Limit          int // daily limit that applied, for denial messaging
	Remaining      int
	Reply          string
	ConversationID string
}

type ChatServiceImpl struct {
	gate   *session.Gate
	users  repository.UserRepository
	client llm.Client
	system string
}

// NewChatService constructs ChatService. system is prepended to every LLM
// call as the assistant persona.
func NewChatService(gate *session.Gate, users repository.UserRepository, client llm.Client, system string) *ChatServiceImpl {
	return &ChatServiceImpl{gate: gate, users: users, client: client, system: system}
}

// Send validates the request, runs it through the gate, and on admission
// produces the assistant reply. Denial is a result, not an error.
func (s *ChatServiceImpl) Send(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	if in.Message == "" {
		return nil, fmt.Errorf("%w: message is required", errs.ErrValidation)
	}
	if in.Image != "" && !strings.HasPrefix(in.Image, "data:image/") {
		return nil, fmt.Errorf("%w: invalid image format", errs.ErrValidation)
	}

	identity, tier, err := s.resolveCaller(ctx, in)
	if err != nil {
		return nil, err
	}

	conversationID := in.ConversationID
	if conversationID == "" {
		cid, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		conversationID = cid.String()
	}

	turn := model.Turn{
		Role:      model.RoleUser,
		Content:   in.Message,
		ImageURL:  in.Image,
		CreatedAt: time.Now().UTC(),
	}
	decision, err := s.gate.Evaluate(identity, tier, conversationID, turn)
	if err != nil {
		return nil, err
	}
	if !decision.Admitted {
		return &ChatOutput{
			Admitted:       false,
			Limit:          s.gate.FreeLimit(),
			Remaining:      0,
			ConversationID: conversationID,
		}, nil
	}

	reply, err := s.client.Complete(ctx, s.system, decision.Context)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RecordReply(conversationID, model.Turn{
		Role:      model.RoleAssistant,
		Content:   reply,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	return &ChatOutput{
		Admitted:       true,
		Limit:          s.gate.FreeLimit(),
		Remaining:      decision.Remaining,
		Reply:          reply,
		ConversationID: conversationID,
	}, nil
}

// resolveCaller maps the request to a ledger identity and tier. Authenticated
// callers use their user ID and stored plan; anonymous callers are free-tier
// under their ephemeral guest key.
func (s *ChatServiceImpl) resolveCaller(ctx context.Context, in ChatInput) (identity string, tier model.PlanID, err error) {
	if in.UserID != uuid.Nil {
		u, err := s.users.GetByID(ctx, in.UserID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return "", "", errs.ErrUnauthorized
			}
			return "", "", err
		}
		tier := u.Plan
		if !tier.Valid() {
			tier = model.PlanFree
		}
		return u.ID.String(), tier, nil
	}
	if in.GuestKey == "" {
		return "", "", errs.ErrInvalidIdentity
	}
	return "guest:" + in.GuestKey, model.PlanFree, nil
}
