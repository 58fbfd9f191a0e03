// Package ledger keeps a bounded, ordered log of progress events per job.
//
// The [Ledger] is the only state shared between a running job and the callers polling it.
// A map-level [sync.RWMutex] guards creation and lookup of entries, and each entry carries its
// own mutex so appends for one job never contend with reads of another.
package ledger

import (
	"sort"
	"sync"
	"time"
)

// DefaultCapacity is the number of events retained per job.
const DefaultCapacity = 100

// Severity classifies an [Event].
type Severity string

const (
	Info    Severity = "info"
	Warning Severity = "warning"
	Error   Severity = "error"
	Success Severity = "success"
)

// Event is a single progress message.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"type"`
	Message   string    `json:"message"`
}

// NewEvent stamps message with the current time.
func NewEvent(severity Severity, message string) Event {
	return Event{Timestamp: time.Now(), Severity: severity, Message: message}
}

type entry struct {
	mu     sync.Mutex
	events []Event
}

// Ledger maps job ids to capped event logs.
type Ledger struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*entry
}

// New creates a [Ledger] retaining at most capacity events per job; non-positive values use [DefaultCapacity].
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{capacity: capacity, entries: make(map[string]*entry)}
}

// Capacity returns the per-job event cap.
func (l *Ledger) Capacity() int { return l.capacity }

// Register creates an empty entry for jobID if none exists.
func (l *Ledger) Register(jobID string) {
	l.entry(jobID)
}

// Append adds event to the end of jobID's log, creating the log on first use and evicting the oldest
// events once the cap is exceeded.
func (l *Ledger) Append(jobID string, event Event) {
	e := l.entry(jobID)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.events = append(e.events, event)
	// reslicing from the front keeps append amortized O(1); the next
	// reallocation copies only the retained window
	if over := len(e.events) - l.capacity; over > 0 {
		e.events = e.events[over:]
	}
}

// Query returns a copy of jobID's events in emission order.
//
// Unknown ids yield an empty, non-nil slice.
func (l *Ledger) Query(jobID string) []Event {
	l.mu.RLock()
	e, ok := l.entries[jobID]
	l.mu.RUnlock()
	if !ok {
		return []Event{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// Len returns the number of retained events for jobID.
func (l *Ledger) Len(jobID string) int {
	l.mu.RLock()
	e, ok := l.entries[jobID]
	l.mu.RUnlock()
	if !ok {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

// Jobs returns the registered job ids, sorted.
func (l *Ledger) Jobs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Ledger) entry(jobID string) *entry {
	l.mu.RLock()
	e, ok := l.entries[jobID]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[jobID]; !ok {
		e = &entry{}
		l.entries[jobID] = e
	}
	return e
}
