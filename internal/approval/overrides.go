// Package approval holds locally made approval edits that have not yet been
// folded into freshly fetched transaction data.
package approval

import (
	"sync"

	"approvals/internal/core"
)

// Changed is emitted whenever an approval intent is applied locally.
type Changed struct {
	TransactionID string
	Approved      bool
}

// Reader looks up a pending override.
type Reader interface {
	Get(transactionID string) (approved bool, ok bool)
}

// Sink receives approval changes. The owner of the canonical override map
// implements it; everyone else only emits.
type Sink interface {
	Record(Changed)
}

// Overrides is the canonical transaction id -> approved map.
type Overrides struct {
	mu     sync.RWMutex
	values map[string]bool
}

var (
	_ Reader = (*Overrides)(nil)
	_ Sink   = (*Overrides)(nil)
)

func NewOverrides() *Overrides {
	return &Overrides{values: make(map[string]bool)}
}

func (o *Overrides) Get(transactionID string) (bool, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[transactionID]
	return v, ok
}

func (o *Overrides) Record(c Changed) {
	if c.TransactionID == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values[c.TransactionID] = c.Approved
}

// Clear drops all overrides and reports how many were pending.
func (o *Overrides) Clear() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := len(o.values)
	o.values = make(map[string]bool)
	return n
}

func (o *Overrides) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.values)
}

// Snapshot returns a copy of the pending overrides.
func (o *Overrides) Snapshot() map[string]bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]bool, len(o.values))
	for k, v := range o.values {
		out[k] = v
	}
	return out
}

// Apply returns a copy of txs where every transaction with a pending
// override carries the override value. txs itself is not modified.
func Apply(txs []core.Transaction, r Reader) []core.Transaction {
	out := core.CloneTransactions(txs)
	if r == nil {
		return out
	}
	for i := range out {
		if v, ok := r.Get(out[i].ID); ok {
			out[i].Approved = v
		}
	}
	return out
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Changed)

func (f SinkFunc) Record(c Changed) { f(c) }
