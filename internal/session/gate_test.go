package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
)

func newTestGate(day string, freeLimit, capacity int) (*Gate, *fakeClock, *Ledger, *Windows) {
	clk := &fakeClock{day: day}
	l := NewLedger(clk)
	ws := NewWindows(capacity)
	return NewGate(l, ws, freeLimit), clk, l, ws
}

func TestGate_FreeTierLimitEnforcement(t *testing.T) {
	t.Parallel()

	g, _, _, _ := newTestGate("2025-03-01", 3, 20)

	// Calls 1..3 admitted with remaining 2,1,0.
	for i, wantRemaining := range []int{2, 1, 0} {
		d, err := g.Evaluate("u1", model.PlanFree, "c1", userTurn(fmt.Sprintf("q%d", i+1)))
		if err != nil {
			t.Fatalf("Evaluate(%d): %v", i+1, err)
		}
		if !d.Admitted || d.Remaining != wantRemaining {
			t.Fatalf("call %d: admitted=%v remaining=%d, want true/%d", i+1, d.Admitted, d.Remaining, wantRemaining)
		}
	}

	// Call 4 denied.
	d, err := g.Evaluate("u1", model.PlanFree, "c1", userTurn("q4"))
	if err != nil {
		t.Fatalf("Evaluate(4): %v", err)
	}
	if d.Admitted || d.Reason != model.DenyDailyLimit || d.Remaining != 0 {
		t.Fatalf("call 4: %+v", d)
	}
	if len(d.Context) != 0 {
		t.Fatalf("denied decision carries context: %+v", d.Context)
	}
}

func TestGate_DenialMutatesNothing(t *testing.T) {
	t.Parallel()

	g, _, ledger, windows := newTestGate("2025-03-01", 1, 20)

	if d, _ := g.Evaluate("u1", model.PlanFree, "c1", userTurn("q1")); !d.Admitted {
		t.Fatalf("first call must be admitted")
	}
	recBefore, _ := ledger.Peek("u1")
	w, _ := windows.Get("c1")
	lenBefore := w.Len()

	// Repeated denials are idempotent: no quota burn, no window growth.
	for i := 0; i < 3; i++ {
		d, err := g.Evaluate("u1", model.PlanFree, "c1", userTurn("again"))
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if d.Admitted {
			t.Fatalf("call past limit admitted")
		}
	}

	recAfter, _ := ledger.Peek("u1")
	if recAfter.Count != recBefore.Count {
		t.Fatalf("denied calls consumed quota: %d -> %d", recBefore.Count, recAfter.Count)
	}
	if w.Len() != lenBefore {
		t.Fatalf("denied calls grew window: %d -> %d", lenBefore, w.Len())
	}
}

func TestGate_ProTierSkipsLedger(t *testing.T) {
	t.Parallel()

	g, _, ledger, _ := newTestGate("2025-03-01", 3, 20)

	for i := 0; i < 10; i++ {
		d, err := g.Evaluate("pro-user", model.PlanPro, "c1", userTurn(fmt.Sprintf("q%d", i)))
		if err != nil {
			t.Fatalf("Evaluate(%d): %v", i, err)
		}
		if !d.Admitted || d.Remaining != model.UnlimitedDaily {
			t.Fatalf("pro call %d: %+v", i, d)
		}
	}

	// The ledger must never have been touched for the pro identity.
	if usage := ledger.Export(); len(usage) != 0 {
		t.Fatalf("pro tier consulted ledger: %+v", usage)
	}
}

func TestGate_DayRolloverReadmits(t *testing.T) {
	t.Parallel()

	g, clk, _, _ := newTestGate("2025-03-01", 3, 20)

	for i := 0; i < 3; i++ {
		if d, _ := g.Evaluate("u1", model.PlanFree, "c1", userTurn("q")); !d.Admitted {
			t.Fatalf("call %d denied under limit", i+1)
		}
	}
	if d, _ := g.Evaluate("u1", model.PlanFree, "c1", userTurn("q")); d.Admitted {
		t.Fatalf("exhausted caller admitted")
	}

	clk.set("2025-03-02")

	d, err := g.Evaluate("u1", model.PlanFree, "c1", userTurn("q"))
	if err != nil {
		t.Fatalf("Evaluate after rollover: %v", err)
	}
	if !d.Admitted || d.Remaining != 2 {
		t.Fatalf("after rollover: %+v", d)
	}
}

func TestGate_AnonymousKeyBehavesLikeNamedIdentity(t *testing.T) {
	t.Parallel()

	g, _, _, _ := newTestGate("2025-03-01", 2, 20)

	// An ephemeral guest key is just another ledger identity.
	const guest = "guest:3f7a"
	for i := 0; i < 2; i++ {
		if d, _ := g.Evaluate(guest, model.PlanFree, "c1", userTurn("q")); !d.Admitted {
			t.Fatalf("guest call %d denied under limit", i+1)
		}
	}
	if d, _ := g.Evaluate(guest, model.PlanFree, "c1", userTurn("q")); d.Admitted {
		t.Fatalf("guest admitted past limit")
	}

	// A different identity is unaffected.
	if d, _ := g.Evaluate("u9", model.PlanFree, "c1", userTurn("q")); !d.Admitted {
		t.Fatalf("independent identity denied")
	}
}

func TestGate_ContextAndRecordReply(t *testing.T) {
	t.Parallel()

	g, _, _, windows := newTestGate("2025-03-01", 10, 4)

	d, err := g.Evaluate("u1", model.PlanFree, "c1", userTurn("hello"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(d.Context) != 1 || d.Context[0].Content != "hello" {
		t.Fatalf("context: %+v", d.Context)
	}

	if err := g.RecordReply("c1", model.Turn{Role: model.RoleAssistant, Content: "hi"}); err != nil {
		t.Fatalf("RecordReply: %v", err)
	}

	d, _ = g.Evaluate("u1", model.PlanFree, "c1", userTurn("how are you"))
	want := []string{"hello", "hi", "how are you"}
	if len(d.Context) != len(want) {
		t.Fatalf("context len=%d, want %d", len(d.Context), len(want))
	}
	for i, turn := range d.Context {
		if turn.Content != want[i] {
			t.Fatalf("context[%d]=%q, want %q", i, turn.Content, want[i])
		}
	}

	// The window keeps evicting oldest-first past capacity.
	_ = g.RecordReply("c1", model.Turn{Role: model.RoleAssistant, Content: "fine"})
	d, _ = g.Evaluate("u1", model.PlanFree, "c1", userTurn("good"))
	w, _ := windows.Get("c1")
	if w.Len() != 4 {
		t.Fatalf("window len=%d, want 4", w.Len())
	}
}

func TestGate_Validation(t *testing.T) {
	t.Parallel()

	g, _, ledger, _ := newTestGate("2025-03-01", 3, 20)

	if _, err := g.Evaluate("u1", model.PlanFree, "", userTurn("q")); !errors.Is(err, errs.ErrInvalidConversation) {
		t.Fatalf("want ErrInvalidConversation, got %v", err)
	}
	if _, err := g.Evaluate("", model.PlanFree, "c1", userTurn("q")); !errors.Is(err, errs.ErrInvalidIdentity) {
		t.Fatalf("want ErrInvalidIdentity, got %v", err)
	}
	if err := g.RecordReply("", model.Turn{Role: model.RoleAssistant}); !errors.Is(err, errs.ErrInvalidConversation) {
		t.Fatalf("want ErrInvalidConversation, got %v", err)
	}

	// Validation failures happen before any mutation.
	if usage := ledger.Export(); len(usage) != 0 {
		t.Fatalf("validation error mutated ledger: %+v", usage)
	}
}
