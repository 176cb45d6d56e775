package session

import (
	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
)

// Gate composes the ledger with a tier policy to admit or deny incoming chat
// requests, and hands admitted callers their trimmed conversation context.
//
// Per (identity, day) a free-tier caller moves Fresh -> Active -> Exhausted;
// Exhausted clears only via day rollover, detected lazily by the ledger.
// Pro-tier callers never touch the ledger.
type Gate struct {
	ledger    *Ledger
	windows   *Windows
	freeLimit int
}

// NewGate constructs a gate enforcing freeLimit questions per day for the
// free tier.
func NewGate(ledger *Ledger, windows *Windows, freeLimit int) *Gate {
	return &Gate{ledger: ledger, windows: windows, freeLimit: freeLimit}
}

// FreeLimit returns the configured free-tier daily limit.
func (g *Gate) FreeLimit() int { return g.freeLimit }

// Evaluate decides whether the request identified by (identity, tier) may ask
// another question, and on admission appends turn to the conversation window
// and returns the window snapshot as LLM context. Denial mutates nothing, so
// repeated denied attempts consume no quota.
func (g *Gate) Evaluate(identity string, tier model.PlanID, conversationID string, turn model.Turn) (model.Decision, error) {
	if conversationID == "" {
		return model.Decision{}, errs.ErrInvalidConversation
	}

	remaining := model.UnlimitedDaily
	if tier != model.PlanPro {
		count, admitted, err := g.ledger.Consume(identity, g.freeLimit)
		if err != nil {
			return model.Decision{}, err
		}
		if !admitted {
			return model.Decision{
				Admitted:  false,
				Reason:    model.DenyDailyLimit,
				Remaining: 0,
			}, nil
		}
		remaining = g.freeLimit - count
		if remaining < 0 {
			remaining = 0
		}
	}

	w, err := g.windows.Get(conversationID)
	if err != nil {
		return model.Decision{}, err
	}
	w.Append(turn)
	return model.Decision{
		Admitted:  true,
		Remaining: remaining,
		Context:   w.Snapshot(),
	}, nil
}

// RecordReply appends the assistant's reply to the conversation window. The
// caller invokes it only after the external LLM call has resolved.
func (g *Gate) RecordReply(conversationID string, reply model.Turn) error {
	w, err := g.windows.Get(conversationID)
	if err != nil {
		return err
	}
	w.Append(reply)
	return nil
}
