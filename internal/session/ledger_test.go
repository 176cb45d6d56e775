package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	day string
}

func (c *fakeClock) Today() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

func (c *fakeClock) set(day string) {
	c.mu.Lock()
	c.day = day
	c.mu.Unlock()
}

func TestLedger_LazyCreateAndSameDayStability(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{day: "2025-03-01"}
	l := NewLedger(clk)

	rec, err := l.GetAndMaybeReset("u1")
	if err != nil {
		t.Fatalf("GetAndMaybeReset: %v", err)
	}
	if rec.Count != 0 || rec.Day != "2025-03-01" {
		t.Fatalf("fresh record: %+v", rec)
	}

	if _, err := l.Increment("u1"); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if n, _ := l.Increment("u1"); n != 2 {
		t.Fatalf("count=%d, want 2", n)
	}

	// Repeated reads within the same day must not reset the count.
	for i := 0; i < 5; i++ {
		rec, err = l.GetAndMaybeReset("u1")
		if err != nil {
			t.Fatalf("GetAndMaybeReset(%d): %v", i, err)
		}
		if rec.Count != 2 {
			t.Fatalf("spurious reset on read %d: %+v", i, rec)
		}
	}
}

func TestLedger_DayRolloverResets(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{day: "2025-03-01"}
	l := NewLedger(clk)

	for i := 0; i < 3; i++ {
		if _, err := l.Increment("u1"); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}

	clk.set("2025-03-02")

	rec, err := l.Peek("u1")
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if rec.Count != 0 || rec.Day != "2025-03-02" {
		t.Fatalf("rollover record: %+v", rec)
	}

	if n, _ := l.Increment("u1"); n != 1 {
		t.Fatalf("count after rollover=%d, want 1", n)
	}
}

func TestLedger_EmptyIdentity(t *testing.T) {
	t.Parallel()

	l := NewLedger(&fakeClock{day: "2025-03-01"})

	if _, err := l.GetAndMaybeReset(""); !errors.Is(err, errs.ErrInvalidIdentity) {
		t.Fatalf("want ErrInvalidIdentity, got %v", err)
	}
	if _, err := l.Increment(""); !errors.Is(err, errs.ErrInvalidIdentity) {
		t.Fatalf("want ErrInvalidIdentity, got %v", err)
	}
	if _, _, err := l.Consume("", 3); !errors.Is(err, errs.ErrInvalidIdentity) {
		t.Fatalf("want ErrInvalidIdentity, got %v", err)
	}
}

func TestLedger_ConsumeAtomicUnderConcurrency(t *testing.T) {
	t.Parallel()

	const limit = 50
	const callers = 200

	l := NewLedger(&fakeClock{day: "2025-03-01"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, err := l.Consume("u1", limit); err == nil && ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Fatalf("admitted=%d, want exactly %d", admitted, limit)
	}
	rec, _ := l.Peek("u1")
	if rec.Count != limit {
		t.Fatalf("count=%d, want %d (no lost updates)", rec.Count, limit)
	}
}

func TestLedger_ExportRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{day: "2025-03-01"}
	l := NewLedger(clk)
	_, _ = l.Increment("u1")
	_, _ = l.Increment("u1")
	_, _ = l.Increment("u2")

	snap := l.Export()
	if len(snap) != 2 || snap["u1"].Count != 2 || snap["u2"].Count != 1 {
		t.Fatalf("export: %+v", snap)
	}

	restored := NewLedger(clk)
	restored.Restore(snap)
	if rec, _ := restored.Peek("u1"); rec.Count != 2 {
		t.Fatalf("restored u1: %+v", rec)
	}

	// A restored record from a past day resets on first access.
	stale := NewLedger(clk)
	stale.Restore(map[string]model.UsageRecord{"u3": {Count: 7, Day: "2025-02-27"}})
	if rec, _ := stale.Peek("u3"); rec.Count != 0 || rec.Day != "2025-03-01" {
		t.Fatalf("stale restore not reset: %+v", rec)
	}
}
