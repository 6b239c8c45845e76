package services

import (
	"encoding/json"
	"sort"
	"sync"
)

const OutcomeSuccess = "SUCCESS"

// Failure reasons that callers match on.
const (
	ReasonBatchNotFound     = "batch does not exist"
	ReasonBatchLookupFailed = "batch lookup failed"
	ReasonBatchNotOngoing   = "batch is not in an ongoing state"
	ReasonCourseMismatch    = "course does not match batch"
)

// OutcomeLedger maps a result key (content id, batch id, or assessment tag)
// to SUCCESS or a failure reason. A failure is never replaced by a success,
// and the first failure recorded for a key is the one kept.
type OutcomeLedger struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewOutcomeLedger() *OutcomeLedger {
	return &OutcomeLedger{entries: map[string]string{}}
}

func (l *OutcomeLedger) Succeed(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[key]; ok {
		return
	}
	l.entries[key] = OutcomeSuccess
}

func (l *OutcomeLedger) Fail(key, reason string) {
	if reason == "" || reason == OutcomeSuccess {
		reason = "failed"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.entries[key]; ok && prev != OutcomeSuccess {
		return
	}
	l.entries[key] = reason
}

func (l *OutcomeLedger) Get(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.entries[key]
	return v, ok
}

func (l *OutcomeLedger) Entries() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

func (l *OutcomeLedger) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for k := range l.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (l *OutcomeLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Failed counts entries that did not succeed.
func (l *OutcomeLedger) Failed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, v := range l.entries {
		if v != OutcomeSuccess {
			n++
		}
	}
	return n
}

// AllFailed reports whether the ledger has entries and none of them succeeded.
func (l *OutcomeLedger) AllFailed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return false
	}
	for _, v := range l.entries {
		if v == OutcomeSuccess {
			return false
		}
	}
	return true
}

func (l *OutcomeLedger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Entries())
}
