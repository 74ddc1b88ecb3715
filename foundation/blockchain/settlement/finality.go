package settlement

import "sync"

// Tracker holds the batches submitted for settlement and their finality
// status. now() is always passed in by the caller rather than read from
// the wall clock directly, matching the injected now() boundary the
// settlement loop is driven by.
type Tracker struct {
	mu sync.RWMutex

	challengeWindowSeconds int64
	batches                map[uint64]*Batch
	latestFinalized        uint64
}

// NewTracker constructs a tracker with the given challenge window.
func NewTracker(challengeWindowSeconds int64) *Tracker {
	return &Tracker{
		challengeWindowSeconds: challengeWindowSeconds,
		batches:                make(map[uint64]*Batch),
	}
}

// Submit records batch as Pending as of now.
func (t *Tracker) Submit(batch Batch, now int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	batch.Status = Pending
	batch.SubmittedAt = now
	t.batches[batch.BatchID] = &batch
}

// Get returns a copy of the tracked batch, if any.
func (t *Tracker) Get(batchID uint64) (Batch, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b, ok := t.batches[batchID]
	if !ok {
		return Batch{}, false
	}
	return *b, true
}

// AdvanceClock finalizes every Pending batch whose challenge window has
// elapsed as of now, and returns the highest end_block among blocks
// belonging to a batch finalized by this call or any prior one (§4.6).
func (t *Tracker) AdvanceClock(now int64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, b := range t.batches {
		if b.Status == Pending && now-b.SubmittedAt > t.challengeWindowSeconds {
			b.Status = Finalized
			if b.EndBlock > t.latestFinalized {
				t.latestFinalized = b.EndBlock
			}
		}
	}

	return t.latestFinalized
}

// LatestFinalizedBlock returns the highest block number covered by a
// finalized batch, or zero if none has finalized yet.
func (t *Tracker) LatestFinalizedBlock() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latestFinalized
}
