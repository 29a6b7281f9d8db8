// Package app wires the bridge, mirror, transaction engine and drag
// controller onto one event loop. Every push, gesture and timer runs as a
// function on that loop, so none of the wired components need locks.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gravitas-games/invmirror/internal/bridge"
	"github.com/gravitas-games/invmirror/internal/drag"
	"github.com/gravitas-games/invmirror/internal/eligibility"
	"github.com/gravitas-games/invmirror/internal/network"
	"github.com/gravitas-games/invmirror/internal/reconcile"
	"github.com/gravitas-games/invmirror/internal/transaction"
)

// ErrStopped is returned by gestures once the loop has exited.
var ErrStopped = errors.New("app: event loop stopped")

// NoticeDuration is how long a transient notice stays in the view.
const NoticeDuration = 4 * time.Second

// Bridge is the host channel the app runs on.
type Bridge interface {
	Subscribe(event string, h bridge.Handler) (unsubscribe func())
	Notify(event string, payload any) error
	Send(ctx context.Context, event string, payload any) (<-chan bridge.Result, error)
}

// Options configure an App.
type Options struct {
	TooltipDelay   time.Duration
	HotbarDuration time.Duration
	PendingTTL     time.Duration
	SweepInterval  time.Duration
	Journal        transaction.Recorder
}

type notice struct {
	text    string
	expires time.Time
}

// App is the UI core.
type App struct {
	opts   Options
	bridge Bridge

	store    *reconcile.Store
	listener *reconcile.Listener
	engine   *transaction.Engine
	drag     *drag.Controller
	memo     *eligibility.Memo

	events  chan func()
	stopped chan struct{}
	ctx     context.Context
	unsubs  []func()

	// Loop-owned UI state.
	hotbarVisible bool
	hotbarGen     int
	hotbarTimer   *time.Timer
	noBackdrop    bool
	tooltip       *Tooltip
	tooltipGen    int
	tooltipTimer  *time.Timer
	search        [2]string
	amount        int
	notices       []notice
}

// New wires an App and subscribes it to every host push. Start the bridge
// after New so the init push lands on a subscriber.
func New(b Bridge, opts Options) *App {
	if opts.TooltipDelay <= 0 {
		opts.TooltipDelay = 500 * time.Millisecond
	}
	if opts.HotbarDuration <= 0 {
		opts.HotbarDuration = 3 * time.Second
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Second
	}

	a := &App{
		opts:    opts,
		bridge:  b,
		store:   reconcile.NewStore(),
		memo:    eligibility.NewMemo(),
		events:  make(chan func(), 256),
		stopped: make(chan struct{}),
		ctx:     context.Background(),
	}
	a.engine = transaction.NewEngine(transaction.Options{
		Sender:     b,
		Scheduler:  a,
		Notifier:   a,
		Journal:    opts.Journal,
		PendingTTL: opts.PendingTTL,
	})
	a.drag = drag.NewController(a.engine)
	a.engine.SetDrag(a.drag)
	a.listener = reconcile.NewListener(a.store, a.engine)

	a.on(network.EventInit, a.listener.HandleInit)
	a.on(network.EventSetupInventory, a.listener.HandleSetup)
	a.on(network.EventRefreshSlots, a.listener.HandleRefresh)
	a.on(network.EventCloseInventory, a.handleClose)
	a.on(network.EventToggleHotbar, a.handleToggleHotbar)
	a.on(network.EventSetNoBackdrop, a.handleSetNoBackdrop)
	a.on(network.EventEndDrag, a.handleEndDrag)
	return a
}

// on subscribes h so that it runs on the loop, in push order.
func (a *App) on(event string, h func(json.RawMessage)) {
	a.unsubs = append(a.unsubs, a.bridge.Subscribe(event, func(raw json.RawMessage) {
		a.Post(func() { h(raw) })
	}))
}

// Store exposes the mirror for read-only consumers.
func (a *App) Store() *reconcile.Store { return a.store }

// Post queues fn to run on the loop. It never runs fn inline.
func (a *App) Post(fn func()) {
	select {
	case a.events <- fn:
	case <-a.stopped:
	}
}

// do runs fn on the loop and waits for it.
func (a *App) do(fn func()) error {
	done := make(chan struct{})
	select {
	case a.events <- func() { fn(); close(done) }:
	case <-a.stopped:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-a.stopped:
		return ErrStopped
	}
}

// Run announces the UI to the host and processes events until ctx ends.
func (a *App) Run(ctx context.Context) error {
	defer close(a.stopped)
	defer func() {
		for _, unsub := range a.unsubs {
			unsub()
		}
		a.stopTimers()
	}()
	a.ctx = ctx

	if err := a.bridge.Notify(network.EventUILoaded, struct{}{}); err != nil {
		log.Printf("Failed to announce UI: %v", err)
	}

	sweep := time.NewTicker(a.opts.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case fn := <-a.events:
			fn()
		case <-sweep.C:
			a.engine.Sweep()
			a.expireNotices()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Notice implements transaction.Notifier.
func (a *App) Notice(text string) {
	log.Printf("Notice: %s", text)
	a.notices = append(a.notices, notice{text: text, expires: time.Now().Add(NoticeDuration)})
}

func (a *App) expireNotices() {
	now := time.Now()
	kept := a.notices[:0]
	for _, n := range a.notices {
		if now.Before(n.expires) {
			kept = append(kept, n)
		}
	}
	a.notices = kept
}

func (a *App) handleClose(json.RawMessage) {
	a.drag.ForceCancel(drag.ErrHostEnded)
	if right := a.store.Inventory(reconcile.Right); right != nil {
		a.memo.Forget(right.ID)
	}
	a.listener.Close()
	a.clearTooltip()
	a.noBackdrop = false
	a.search[reconcile.Right] = ""
}

func (a *App) handleEndDrag(json.RawMessage) {
	a.drag.ForceCancel(drag.ErrHostEnded)
}

func (a *App) handleSetNoBackdrop(raw json.RawMessage) {
	var on bool
	if err := json.Unmarshal(raw, &on); err != nil {
		log.Printf("Failed to parse setNoBackdrop push: %v", err)
		return
	}
	a.noBackdrop = on
}

// handleToggleHotbar shows the hotbar for a while, or hides it at once if
// it is already showing.
func (a *App) handleToggleHotbar(json.RawMessage) {
	a.hotbarGen++
	if a.hotbarTimer != nil {
		a.hotbarTimer.Stop()
		a.hotbarTimer = nil
	}
	if a.hotbarVisible {
		a.hotbarVisible = false
		return
	}
	a.hotbarVisible = true
	gen := a.hotbarGen
	a.hotbarTimer = time.AfterFunc(a.opts.HotbarDuration, func() {
		a.Post(func() {
			if a.hotbarGen == gen {
				a.hotbarVisible = false
				a.hotbarTimer = nil
			}
		})
	})
}

func (a *App) stopTimers() {
	if a.hotbarTimer != nil {
		a.hotbarTimer.Stop()
	}
	if a.tooltipTimer != nil {
		a.tooltipTimer.Stop()
	}
}
