// Package health tracks the indexer status shown to users as a banner.
package health

import (
	"sync"
	"time"
)

// Status is the indicator state. An empty Message means healthy.
type Status struct {
	Message   string    `json:"message,omitempty"`
	Healthy   bool      `json:"healthy"`
	UpdatedAt time.Time `json:"updatedAt"`
	Ticket    uint64    `json:"-"`
}

// Listener receives every applied transition.
type Listener func(prev, next Status)

// Indicator is a monotonic status holder. Each query takes a ticket with
// Begin and reports with Clear or SetError; a report whose ticket is older
// than the last applied one is dropped, so the most recently started query wins.
type Indicator struct {
	mu        sync.Mutex
	next      uint64
	applied   uint64
	status    Status
	listeners []Listener
	now       func() time.Time
}

// NewIndicator returns a healthy indicator.
func NewIndicator() *Indicator {
	return &Indicator{status: Status{Healthy: true}, now: time.Now}
}

// Begin issues the next ticket.
func (i *Indicator) Begin() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.next++
	return i.next
}

// Clear marks the indexer healthy.
func (i *Indicator) Clear(ticket uint64) bool {
	return i.apply(ticket, "")
}

// SetError records a user-facing error message.
func (i *Indicator) SetError(ticket uint64, msg string) bool {
	return i.apply(ticket, msg)
}

// Subscribe registers fn for transitions. Listeners run synchronously
// outside the lock and must not block.
func (i *Indicator) Subscribe(fn Listener) {
	i.mu.Lock()
	i.listeners = append(i.listeners, fn)
	i.mu.Unlock()
}

// Snapshot returns the current status.
func (i *Indicator) Snapshot() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

func (i *Indicator) apply(ticket uint64, msg string) bool {
	i.mu.Lock()
	if ticket < i.applied {
		i.mu.Unlock()
		return false
	}
	prev := i.status
	i.applied = ticket
	i.status = Status{
		Message:   msg,
		Healthy:   msg == "",
		UpdatedAt: i.now(),
		Ticket:    ticket,
	}
	next := i.status
	listeners := append([]Listener(nil), i.listeners...)
	i.mu.Unlock()

	for _, fn := range listeners {
		fn(prev, next)
	}
	return true
}
