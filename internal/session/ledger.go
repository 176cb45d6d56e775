package session

import (
	"hash/fnv"
	"sync"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
)

const ledgerShards = 32

// Ledger tracks per-identity daily question counts. A record's Day always
// equals Today() after any read or write: reads that observe a stale day
// reset the count before returning. Records are guarded by sharded mutexes
// so concurrent callers with different identities do not contend.
type Ledger struct {
	clock  Clock
	shards [ledgerShards]ledgerShard
}

type ledgerShard struct {
	mu   sync.Mutex
	recs map[string]*model.UsageRecord
}

// NewLedger constructs an empty ledger using the given clock.
func NewLedger(clock Clock) *Ledger {
	l := &Ledger{clock: clock}
	for i := range l.shards {
		l.shards[i].recs = make(map[string]*model.UsageRecord)
	}
	return l
}

func (l *Ledger) shard(identity string) *ledgerShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return &l.shards[h.Sum32()%ledgerShards]
}

// resetIfStale must be called with the shard lock held.
func (l *Ledger) resetIfStale(s *ledgerShard, identity string) *model.UsageRecord {
	today := l.clock.Today()
	rec, ok := s.recs[identity]
	if !ok || rec.Day != today {
		rec = &model.UsageRecord{Count: 0, Day: today}
		s.recs[identity] = rec
	}
	return rec
}

// GetAndMaybeReset returns the record for identity, creating it on first use
// and resetting the count when the stored day is stale.
func (l *Ledger) GetAndMaybeReset(identity string) (model.UsageRecord, error) {
	if identity == "" {
		return model.UsageRecord{}, errs.ErrInvalidIdentity
	}
	s := l.shard(identity)
	s.mu.Lock()
	defer s.mu.Unlock()
	return *l.resetIfStale(s, identity), nil
}

// Peek is the read-only variant of GetAndMaybeReset. The stale-day reset is
// still applied, it is a correctness requirement rather than an optimization.
func (l *Ledger) Peek(identity string) (model.UsageRecord, error) {
	return l.GetAndMaybeReset(identity)
}

// Increment adds one to today's count for identity and returns the new count.
func (l *Ledger) Increment(identity string) (int, error) {
	if identity == "" {
		return 0, errs.ErrInvalidIdentity
	}
	s := l.shard(identity)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := l.resetIfStale(s, identity)
	rec.Count++
	return rec.Count, nil
}

// Consume performs check-then-increment as a single atomic unit: if today's
// count is below limit it increments and admits, otherwise it leaves the
// record untouched. Two concurrent callers with the same identity can never
// both be admitted past the limit.
func (l *Ledger) Consume(identity string, limit int) (count int, admitted bool, err error) {
	if identity == "" {
		return 0, false, errs.ErrInvalidIdentity
	}
	s := l.shard(identity)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := l.resetIfStale(s, identity)
	if rec.Count >= limit {
		return rec.Count, false, nil
	}
	rec.Count++
	return rec.Count, true, nil
}

// Export copies the ledger state for snapshotting.
func (l *Ledger) Export() map[string]model.UsageRecord {
	out := make(map[string]model.UsageRecord)
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for id, rec := range s.recs {
			out[id] = *rec
		}
		s.mu.Unlock()
	}
	return out
}

// Restore replaces the ledger state from a snapshot. Stale days are not
// corrected here; the lazy reset on next access handles them.
func (l *Ledger) Restore(usage map[string]model.UsageRecord) {
	for id, rec := range usage {
		if id == "" {
			continue
		}
		s := l.shard(id)
		cpy := rec
		s.mu.Lock()
		s.recs[id] = &cpy
		s.mu.Unlock()
	}
}
