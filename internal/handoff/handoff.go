// Package handoff implements the "register or buffer" hand-off of a registry
// snapshot to its consumer.
//
// A Slot receives exactly one snapshot. If a registration callback is
// attached at that moment, the callback is invoked with it. Otherwise the
// snapshot is parked in the slot's pending position for later pickup. The two
// outcomes are mutually exclusive: a snapshot that reached the callback is
// never also pending, and a pending snapshot never reaches the callback
// through the slot.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/implreg"
	"github.com/specialistvlad/implgrid/internal/metrics"
)

var (
	// ErrAlreadyDelivered is returned by a second Deliver on the same slot.
	ErrAlreadyDelivered = errors.New("snapshot already delivered")
	// ErrNilSnapshot is returned when Deliver is given no registry.
	ErrNilSnapshot = errors.New("snapshot must not be nil")
)

// Receiver is the registration callback a snapshot is handed to.
type Receiver interface {
	Register(ctx context.Context, reg *implreg.Registry) error
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(ctx context.Context, reg *implreg.Registry) error

// Register calls f.
func (f ReceiverFunc) Register(ctx context.Context, reg *implreg.Registry) error {
	return f(ctx, reg)
}

// Outcome describes which route a delivery took.
type Outcome int

const (
	// OutcomeNone means nothing has been delivered yet.
	OutcomeNone Outcome = iota
	// OutcomeRegistered means the callback received the snapshot.
	OutcomeRegistered
	// OutcomeBuffered means the snapshot waits in the pending position.
	OutcomeBuffered
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeRegistered:
		return "registered"
	case OutcomeBuffered:
		return "buffered"
	default:
		return "none"
	}
}

// Slot is a single-use hand-off point. The zero value is ready to use.
type Slot struct {
	mu       sync.Mutex
	receiver Receiver
	outcome  Outcome
	pending  *implreg.Registry
	metrics  *metrics.Metrics
}

// NewSlot returns a Slot that reports outcomes to m, which may be nil.
func NewSlot(m *metrics.Metrics) *Slot {
	return &Slot{metrics: m}
}

// Attach installs the registration callback. Attaching after delivery has no
// effect on an already buffered snapshot; it stays pending for pickup.
func (s *Slot) Attach(r Receiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiver = r
}

// Deliver hands reg to the attached callback, or buffers it when none is
// attached. It succeeds at most once per slot. A nil reg is rejected without
// using up the slot.
func (s *Slot) Deliver(ctx context.Context, reg *implreg.Registry) (Outcome, error) {
	if reg == nil {
		return OutcomeNone, ErrNilSnapshot
	}
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	if s.outcome != OutcomeNone {
		s.mu.Unlock()
		return OutcomeNone, ErrAlreadyDelivered
	}
	receiver := s.receiver
	if receiver == nil {
		s.outcome = OutcomeBuffered
		s.pending = reg
		s.mu.Unlock()

		logger.Debug("No receiver attached, snapshot buffered.", "trait", reg.Trait().Name)
		s.metrics.Handoff(OutcomeBuffered.String())
		return OutcomeBuffered, nil
	}
	// Claimed before the callback runs so that concurrent deliveries cannot
	// reach the receiver twice.
	s.outcome = OutcomeRegistered
	s.mu.Unlock()

	logger.Debug("Handing snapshot to receiver.", "trait", reg.Trait().Name)
	if err := receiver.Register(ctx, reg); err != nil {
		s.metrics.Handoff("failed")
		return OutcomeRegistered, fmt.Errorf("registering implementors for %q: %w", reg.Trait().Name, err)
	}
	s.metrics.Handoff(OutcomeRegistered.String())
	return OutcomeRegistered, nil
}

// Pending returns the buffered snapshot, if the slot took the buffer route.
func (s *Slot) Pending() (*implreg.Registry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.pending != nil
}

// Invoked reports whether the callback was invoked for this slot.
func (s *Slot) Invoked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome == OutcomeRegistered
}

// Outcome returns the route the delivery took so far.
func (s *Slot) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}
