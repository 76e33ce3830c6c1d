package orchestrator

import (
	"slices"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/operations"
	"github.com/meow-stack/factory-sim/internal/types"
)

// Slot binds one operation to its handler for the lifetime of a run.
// A disabled slot never invokes its handler; the operation is reported as
// pending instead so an external agent can perform it.
type Slot struct {
	Op      types.Operation
	Handler operations.Handler
	Enabled bool
}

// Registry holds one slot per operation in execution order. It is resolved
// once when a run starts.
type Registry struct {
	slots []Slot
}

// NewRegistry resolves handlers and the disabled set into slots. Every
// enabled operation must have a handler.
func NewRegistry(handlers []operations.Handler, disabled []types.Operation) (*Registry, error) {
	byOp := make(map[types.Operation]operations.Handler, len(handlers))
	for _, h := range handlers {
		byOp[h.Operation()] = h
	}
	for _, op := range disabled {
		if !op.Valid() {
			return nil, simerrors.ConfigUnknownOperation(string(op))
		}
	}

	r := &Registry{slots: make([]Slot, 0, len(types.Operations))}
	for _, op := range types.Operations {
		s := Slot{Op: op, Handler: byOp[op], Enabled: !slices.Contains(disabled, op)}
		if s.Enabled && s.Handler == nil {
			return nil, simerrors.HandlerMissing(string(op))
		}
		r.slots = append(r.slots, s)
	}
	return r, nil
}

// Slots returns the slots in execution order.
func (r *Registry) Slots() []Slot {
	return slices.Clone(r.slots)
}

// Slot returns the slot for op.
func (r *Registry) Slot(op types.Operation) (Slot, bool) {
	for _, s := range r.slots {
		if s.Op == op {
			return s, true
		}
	}
	return Slot{}, false
}

// Disabled lists the disabled operations in execution order.
func (r *Registry) Disabled() []types.Operation {
	out := []types.Operation{}
	for _, s := range r.slots {
		if !s.Enabled {
			out = append(out, s.Op)
		}
	}
	return out
}

// Plan splits today's due operations into the slots to invoke and the
// operations to leave pending, both in execution order.
func (r *Registry) Plan(due []types.Operation) (invoke []Slot, pending []types.Operation) {
	pending = []types.Operation{}
	for _, s := range r.slots {
		if !slices.Contains(due, s.Op) {
			continue
		}
		if s.Enabled {
			invoke = append(invoke, s)
		} else {
			pending = append(pending, s.Op)
		}
	}
	return invoke, pending
}
