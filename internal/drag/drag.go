// Package drag tracks the one drag gesture the UI can have in flight.
package drag

import (
	"context"
	"errors"
	"fmt"

	"github.com/gravitas-games/invmirror/internal/transaction"
)

var (
	// ErrStaleDragTarget cancels a drag whose source slot was replaced by
	// a host push while it was being dragged.
	ErrStaleDragTarget = errors.New("drag: source slot changed")

	// ErrNotDragging is returned by Drop when no drag is active.
	ErrNotDragging = errors.New("drag: no drag in progress")

	// ErrHostEnded cancels a drag on closeInventory or endDrag.
	ErrHostEnded = errors.New("drag: ended by host")
)

// Phase of the drag session.
type Phase string

const (
	NoDrag    Phase = "none"
	Dragging  Phase = "dragging"
	Dropped   Phase = "dropped"
	Cancelled Phase = "cancelled"
)

// DraggingOpacity is applied to the source slot while it is being dragged.
const DraggingOpacity = 0.4

// Session is the state of the current or last drag.
type Session struct {
	Phase  Phase
	Source transaction.Ref
	Hover  *transaction.Ref
	// Dimmed sources are still draggable; the host has the final word.
	Dimmed bool
	Reason error
}

// Visual is what the renderer needs to draw the drag. It carries no state
// commitment.
type Visual struct {
	Active    bool
	Source    transaction.Key
	Opacity   float64
	Highlight *transaction.Key
	Dimmed    bool
}

// Submitter receives the intent of a successful drop.
type Submitter interface {
	Submit(ctx context.Context, in transaction.Intent) (transaction.Record, error)
}

// Controller owns the drag session. Like the engine it is driven from the
// event loop only.
type Controller struct {
	session Session
	submit  Submitter
}

// NewController creates a controller with no drag in progress.
func NewController(s Submitter) *Controller {
	return &Controller{session: Session{Phase: NoDrag}, submit: s}
}

// Session returns a copy of the current session.
func (c *Controller) Session() Session { return c.session }

// Active reports whether a drag is in progress.
func (c *Controller) Active() bool { return c.session.Phase == Dragging }

// Begin starts dragging source. Empty slots cannot be picked up.
func (c *Controller) Begin(source transaction.Ref, dimmed bool) error {
	if !transaction.CanDragSource(source.Slot, source.Kind) {
		return fmt.Errorf("%w: %s is empty", transaction.ErrIneligible, source.Key())
	}
	c.session = Session{Phase: Dragging, Source: source, Dimmed: dimmed}
	return nil
}

// Hover highlights the slot under the pointer, or clears it with nil.
func (c *Controller) Hover(target *transaction.Ref) {
	if c.session.Phase != Dragging {
		return
	}
	if target != nil && !transaction.CanDrop(c.session.Source, *target) {
		target = nil
	}
	c.session.Hover = target
}

// Drop releases the drag over target. A legal drop forwards the intent to
// the submitter; anything else cancels.
func (c *Controller) Drop(ctx context.Context, target transaction.Ref, count int) (transaction.Record, error) {
	if c.session.Phase != Dragging {
		return transaction.Record{}, ErrNotDragging
	}
	source := c.session.Source
	c.session.Hover = nil

	if !transaction.CanDrop(source, target) {
		c.session.Phase = Cancelled
		return transaction.Record{}, fmt.Errorf("%w: cannot drop %s onto %s", transaction.ErrIneligible, source.Key(), target.Key())
	}

	c.session.Phase = Dropped
	return c.submit.Submit(ctx, transaction.Intent{
		Kind:   transaction.KindFor(source.Kind),
		Source: source,
		Target: &target,
		Count:  count,
	})
}

// Release ends the drag anywhere that is not a slot.
func (c *Controller) Release() {
	if c.session.Phase == Dragging {
		c.session.Phase = Cancelled
		c.session.Hover = nil
	}
}

// ForceCancel ends an active drag regardless of pointer state.
func (c *Controller) ForceCancel(reason error) bool {
	if c.session.Phase != Dragging {
		return false
	}
	c.session.Phase = Cancelled
	c.session.Hover = nil
	c.session.Reason = reason
	return true
}

// CancelIfTouched force-cancels the drag when a push replaced its source.
func (c *Controller) CancelIfTouched(touched map[transaction.Key]bool) (transaction.Key, bool) {
	if c.session.Phase != Dragging {
		return transaction.Key{}, false
	}
	k := c.session.Source.Key()
	if !touched[k] {
		return transaction.Key{}, false
	}
	c.ForceCancel(ErrStaleDragTarget)
	return k, true
}

// Visual returns the cosmetic drag state.
func (c *Controller) Visual() Visual {
	if c.session.Phase != Dragging {
		return Visual{Opacity: 1}
	}
	v := Visual{
		Active:  true,
		Source:  c.session.Source.Key(),
		Opacity: DraggingOpacity,
		Dimmed:  c.session.Dimmed,
	}
	if c.session.Hover != nil {
		k := c.session.Hover.Key()
		v.Highlight = &k
	}
	return v
}
