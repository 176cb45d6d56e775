package session

import (
	"sync"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
)

// Window is a bounded ordered buffer of turns for a single conversation.
// Appends beyond capacity evict oldest-first, so the most recent turns are
// preserved as context for the LLM call.
type Window struct {
	mu       sync.Mutex
	capacity int
	turns    []model.Turn
}

func newWindow(capacity int) *Window {
	return &Window{capacity: capacity}
}

// Append adds turn at the end, evicting from the front when over capacity.
func (w *Window) Append(turn model.Turn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = append(w.turns, turn)
	if over := len(w.turns) - w.capacity; over > 0 {
		w.turns = append(w.turns[:0], w.turns[over:]...)
	}
}

// Snapshot returns the turns in chronological order, oldest first.
func (w *Window) Snapshot() []model.Turn {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

// IsEmpty reports whether the window holds no turns.
func (w *Window) IsEmpty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.turns) == 0
}

// Len returns the current number of turns.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.turns)
}

// Windows is the registry of conversation windows, keyed by conversation id.
// Each window is exclusively owned by its conversation.
type Windows struct {
	mu       sync.RWMutex
	capacity int
	byID     map[string]*Window
}

// NewWindows constructs a registry whose windows hold at most capacity turns.
func NewWindows(capacity int) *Windows {
	return &Windows{capacity: capacity, byID: make(map[string]*Window)}
}

// Get returns the window for conversationID, creating it on first use.
func (ws *Windows) Get(conversationID string) (*Window, error) {
	if conversationID == "" {
		return nil, errs.ErrInvalidConversation
	}
	ws.mu.RLock()
	w, ok := ws.byID[conversationID]
	ws.mu.RUnlock()
	if ok {
		return w, nil
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if w, ok = ws.byID[conversationID]; !ok {
		w = newWindow(ws.capacity)
		ws.byID[conversationID] = w
	}
	return w, nil
}

// Export copies all windows' turns for snapshotting.
func (ws *Windows) Export() map[string][]model.Turn {
	ws.mu.RLock()
	ids := make([]string, 0, len(ws.byID))
	for id := range ws.byID {
		ids = append(ids, id)
	}
	ws.mu.RUnlock()

	out := make(map[string][]model.Turn, len(ids))
	for _, id := range ids {
		ws.mu.RLock()
		w := ws.byID[id]
		ws.mu.RUnlock()
		if w != nil {
			out[id] = w.Snapshot()
		}
	}
	return out
}

// Restore replaces the registry content from a snapshot, re-trimming each
// conversation to the configured capacity.
func (ws *Windows) Restore(conversations map[string][]model.Turn) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for id, turns := range conversations {
		if id == "" {
			continue
		}
		w := newWindow(ws.capacity)
		for _, t := range turns {
			w.turns = append(w.turns, t)
		}
		if over := len(w.turns) - w.capacity; over > 0 {
			w.turns = w.turns[over:]
		}
		ws.byID[id] = w
	}
}
