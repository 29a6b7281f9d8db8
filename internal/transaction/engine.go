// Package transaction turns completed interactions into host requests and
// tracks each one until a host push settles it. The engine never changes
// slot contents: the UI only moves an item once the host says it moved.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/gravitas-games/invmirror/internal/bridge"
	"github.com/gravitas-games/invmirror/internal/journal"
	"github.com/gravitas-games/invmirror/internal/network"
	"github.com/gravitas-games/invmirror/pkg/inventory"
)

// DefaultPendingTTL bounds how long a request acknowledged with ok=true can
// wait for the push that settles it.
const DefaultPendingTTL = 30 * time.Second

// Sender writes requests to the host.
type Sender interface {
	Send(ctx context.Context, event string, payload any) (<-chan bridge.Result, error)
}

// Scheduler runs fn on the event loop that owns the engine.
type Scheduler interface {
	Post(fn func())
}

// Notifier shows a transient, non-blocking notice.
type Notifier interface {
	Notice(text string)
}

// DragSession is the drag in progress, if any.
type DragSession interface {
	// CancelIfTouched force-cancels an active drag whose source is in
	// touched and returns that source.
	CancelIfTouched(touched map[Key]bool) (Key, bool)
}

// Recorder receives every settled transaction.
type Recorder interface {
	WriteOutcome(journal.Outcome) error
}

// Options wire an Engine.
type Options struct {
	Sender     Sender
	Scheduler  Scheduler
	Drag       DragSession
	Notifier   Notifier
	Journal    Recorder
	PendingTTL time.Duration
	Now        func() time.Time
}

// Engine is driven from a single event loop and is not safe for
// concurrent use. Responses arrive on other goroutines and re-enter
// through the Scheduler.
type Engine struct {
	sender  Sender
	sched   Scheduler
	drag    DragSession
	notify  Notifier
	journal Recorder
	ttl     time.Duration
	now     func() time.Time

	seq     uint64
	pending map[uint64]*Record
}

// NewEngine creates an engine. Sender and Scheduler are required.
func NewEngine(opts Options) *Engine {
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = DefaultPendingTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		sender:  opts.Sender,
		sched:   opts.Scheduler,
		drag:    opts.Drag,
		notify:  opts.Notifier,
		journal: opts.Journal,
		ttl:     opts.PendingTTL,
		now:     opts.Now,
		pending: make(map[uint64]*Record),
	}
}

// SetDrag injects the drag session once the controller exists.
func (e *Engine) SetDrag(d DragSession) { e.drag = d }

// Check applies the local gates. A failure wraps ErrIneligible.
func (e *Engine) Check(in Intent) error {
	src := in.Source
	if !CanDragSource(src.Slot, src.Kind) {
		return fmt.Errorf("%w: %s slot %d is empty", ErrIneligible, src.Kind, src.Slot.Slot)
	}

	switch in.Kind {
	case network.KindUse:
		if in.Target != nil || src.Kind != inventory.TypePlayer {
			return fmt.Errorf("%w: only player items can be used", ErrIneligible)
		}
		return nil
	case network.KindMove, network.KindBuy, network.KindCraft:
		if in.Kind != KindFor(src.Kind) {
			return fmt.Errorf("%w: %s from %s inventory", ErrIneligible, in.Kind, src.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrIneligible, in.Kind)
	}

	if in.Target == nil {
		// Quick move. Buying and crafting always need a destination.
		if in.Kind != network.KindMove {
			return fmt.Errorf("%w: %s needs a target slot", ErrIneligible, in.Kind)
		}
		return nil
	}
	if !CanDrop(src, *in.Target) {
		return fmt.Errorf("%w: cannot drop %s onto %s", ErrIneligible, src.Key(), in.Target.Key())
	}
	return nil
}

// Submit emits exactly one request for an eligible intent and tracks it as
// pending. Ineligible intents return ErrIneligible and send nothing.
func (e *Engine) Submit(ctx context.Context, in Intent) (Record, error) {
	if err := e.Check(in); err != nil {
		return Record{}, err
	}

	e.seq++
	rec := &Record{
		Seq:     e.seq,
		Intent:  in,
		Keys:    in.Keys(),
		State:   StatePending,
		Started: e.now(),
	}

	ch, err := e.sender.Send(ctx, in.Kind.EventFor(), in.Request())
	if err != nil {
		state := StateRejected
		if errors.Is(err, bridge.ErrClosed) {
			state = StateLost
		}
		if state == StateRejected && e.notify != nil {
			e.notify.Notice(noticeFor(in.Kind))
		}
		e.finish(rec, state, err)
		return *rec, err
	}

	e.pending[rec.Seq] = rec
	seq := rec.Seq
	go func() {
		r := <-ch
		e.sched.Post(func() { e.resolve(seq, r) })
	}()
	return *rec, nil
}

func noticeFor(kind network.Kind) string {
	switch kind {
	case network.KindBuy:
		return "Purchase could not be sent"
	case network.KindCraft:
		return "Craft could not be sent"
	case network.KindUse:
		return "Item could not be used"
	default:
		return "Move could not be sent"
	}
}

// resolve handles the host's answer. ok=true says nothing about slot
// contents, so the record keeps waiting for the push.
func (e *Engine) resolve(seq uint64, r bridge.Result) {
	rec, ok := e.pending[seq]
	if !ok {
		// A push already settled it.
		return
	}
	rec.RequestID = r.ID

	switch {
	case r.Err == nil:
		return
	case errors.Is(r.Err, bridge.ErrBridgeTimeout), errors.Is(r.Err, bridge.ErrClosed):
		e.finish(rec, StateLost, r.Err)
	default:
		if e.notify != nil {
			var hostErr *bridge.HostError
			if errors.As(r.Err, &hostErr) && hostErr.Message != "" {
				e.notify.Notice(hostErr.Message)
			} else {
				e.notify.Notice(noticeFor(rec.Intent.Kind))
			}
		}
		e.finish(rec, StateRejected, r.Err)
	}
}

// Settle is called after a push replaced the touched slots. A drag whose
// source was touched is force-cancelled; pending records naming a touched
// slot are committed, or superseded when they share a slot with that drag.
func (e *Engine) Settle(touched []Key) []Record {
	if len(touched) == 0 {
		return nil
	}
	set := make(map[Key]bool, len(touched))
	for _, k := range touched {
		set[k] = true
	}

	var superseded map[Key]bool
	if e.drag != nil {
		if k, ok := e.drag.CancelIfTouched(set); ok {
			superseded = map[Key]bool{k: true}
		}
	}

	var settled []Record
	for _, rec := range e.sortedPending() {
		if !rec.touches(set) {
			continue
		}
		state := StateCommitted
		if superseded != nil && rec.touches(superseded) {
			state = StateSuperseded
		}
		e.finish(rec, state, nil)
		settled = append(settled, *rec)
	}
	return settled
}

// Sweep folds records that have waited longer than the pending TTL into
// lost. It is safe to call on every tick.
func (e *Engine) Sweep() []Record {
	now := e.now()
	var lost []Record
	for _, rec := range e.sortedPending() {
		if now.Sub(rec.Started) < e.ttl {
			continue
		}
		e.finish(rec, StateLost, bridge.ErrBridgeTimeout)
		lost = append(lost, *rec)
	}
	return lost
}

// Pending returns the records still waiting, oldest first.
func (e *Engine) Pending() []Record {
	recs := e.sortedPending()
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = *r
	}
	return out
}

// IsPending reports whether any in-flight request involves k.
func (e *Engine) IsPending(k Key) bool {
	for _, rec := range e.pending {
		for _, rk := range rec.Keys {
			if rk == k {
				return true
			}
		}
	}
	return false
}

func (e *Engine) sortedPending() []*Record {
	recs := make([]*Record, 0, len(e.pending))
	for _, r := range e.pending {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
	return recs
}

// finish moves a record to a terminal state and folds it back to idle.
func (e *Engine) finish(rec *Record, state State, err error) {
	delete(e.pending, rec.Seq)
	rec.State = state
	rec.Err = err
	rec.Settled = e.now()

	if state != StateCommitted {
		log.Printf("Transaction %d %s %s: %v", rec.Seq, rec.Intent.Kind, state, err)
	}
	if e.journal == nil {
		return
	}
	o := journal.Outcome{
		Time:      rec.Settled,
		Seq:       rec.Seq,
		RequestID: rec.RequestID,
		Kind:      string(rec.Intent.Kind),
		Source:    rec.Intent.Source.Key().String(),
		State:     string(state),
		LatencyMS: rec.Settled.Sub(rec.Started).Milliseconds(),
	}
	if rec.Intent.Target != nil {
		o.Target = rec.Intent.Target.Key().String()
	}
	if err != nil {
		o.Error = err.Error()
	}
	if werr := e.journal.WriteOutcome(o); werr != nil {
		log.Printf("Failed to journal transaction %d: %v", rec.Seq, werr)
	}
}
