// Package bridge is the single channel between the UI core and the host:
// correlated request/response calls, fire-and-forget notifies, and an
// ordered stream of host pushes.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gravitas-games/invmirror/internal/network"
)

var (
	// ErrBridgeTimeout means the host did not answer in time. The request
	// is lost, not failed: it may still be applied, and the next push is
	// authoritative. Never retry on it.
	ErrBridgeTimeout = errors.New("bridge: request timed out")

	// ErrBridgeRejected means the request never left: its payload is
	// malformed. Responses with ok=false wrap it as well.
	ErrBridgeRejected = errors.New("bridge: request rejected")

	// ErrClosed is returned once the bridge has shut down.
	ErrClosed = errors.New("bridge: closed")
)

// DefaultTimeout is the response window when none is configured.
const DefaultTimeout = 10 * time.Second

// Result is the single outcome of a request.
type Result struct {
	ID      string
	Event   string
	Payload json.RawMessage
	// Err is nil when the host answered ok=true. A HostError when it
	// answered ok=false, ErrBridgeTimeout or ErrClosed otherwise.
	Err error
}

// HostError is an ok=false response.
type HostError struct {
	Event   string
	Message string
}

func (e *HostError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("host declined %s", e.Event)
	}
	return fmt.Sprintf("host declined %s: %s", e.Event, e.Message)
}

func (e *HostError) Unwrap() error { return ErrBridgeRejected }

// Handler receives the raw payload of a push.
type Handler func(payload json.RawMessage)

// Options configure a Bridge.
type Options struct {
	// Timeout is the response window per request.
	Timeout time.Duration
	// Validator checks outbound payloads. Nil compiles the embedded schemas.
	Validator *Validator
}

type pendingRequest struct {
	event string
	ch    chan Result
	timer *time.Timer
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bridge multiplexes requests and pushes over one Conn.
type Bridge struct {
	conn      Conn
	timeout   time.Duration
	validator *Validator

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*pendingRequest
	subs    map[string][]subscription
	nextSub uint64

	pushes chan network.ServerMessage

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// New wraps conn. Subscribe before Start so no push is missed.
func New(conn Conn, opts Options) (*Bridge, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Validator == nil {
		v, err := NewValidator()
		if err != nil {
			return nil, err
		}
		opts.Validator = v
	}
	return &Bridge{
		conn:      conn,
		timeout:   opts.Timeout,
		validator: opts.Validator,
		pending:   make(map[string]*pendingRequest),
		subs:      make(map[string][]subscription),
		pushes:    make(chan network.ServerMessage, 256),
		done:      make(chan struct{}),
	}, nil
}

// Start launches the read and dispatch goroutines.
func (b *Bridge) Start() {
	b.startOnce.Do(func() {
		go b.readPump()
		go b.dispatchPump()
	})
}

// Done is closed when the bridge shuts down.
func (b *Bridge) Done() <-chan struct{} { return b.done }

// Send validates and writes a request. A malformed payload fails here with
// ErrBridgeRejected and nothing is written. Otherwise the returned channel
// delivers exactly one Result.
func (b *Bridge) Send(ctx context.Context, event string, payload any) (<-chan Result, error) {
	body, err := b.validator.Validate(event, payload)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	req := &pendingRequest{event: event, ch: make(chan Result, 1)}

	b.mu.Lock()
	select {
	case <-b.done:
		b.mu.Unlock()
		return nil, ErrClosed
	default:
	}
	b.pending[id] = req
	req.timer = time.AfterFunc(b.timeout, func() { b.expire(id) })
	b.mu.Unlock()

	err = b.write(network.ClientMessage{
		Type:    network.FrameRequest,
		ID:      id,
		Event:   event,
		Payload: body,
	})
	if err != nil {
		b.mu.Lock()
		if _, ok := b.pending[id]; ok {
			delete(b.pending, id)
			req.timer.Stop()
		}
		b.mu.Unlock()
		return nil, err
	}
	return req.ch, nil
}

// Call sends a request and waits for its result.
func (b *Bridge) Call(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	ch, err := b.Send(ctx, event, payload)
	if err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.Payload, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Notify writes a fire-and-forget event.
func (b *Bridge) Notify(event string, payload any) error {
	body, err := b.validator.Validate(event, payload)
	if err != nil {
		return err
	}
	return b.write(network.ClientMessage{
		Type:    network.FrameNotify,
		Event:   event,
		Payload: body,
	})
}

// Subscribe registers a push handler. Handlers run on the bridge's single
// dispatch goroutine in host emission order. The returned func removes it.
func (b *Bridge) Subscribe(event string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	b.subs[event] = append(b.subs[event], subscription{id: id, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[event]
		for i, s := range subs {
			if s.id == id {
				b.subs[event] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Close shuts the bridge down and fails every pending request with ErrClosed.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		close(b.done)
		pending := b.pending
		b.pending = make(map[string]*pendingRequest)
		b.mu.Unlock()

		for id, req := range pending {
			req.timer.Stop()
			req.ch <- Result{ID: id, Event: req.event, Err: ErrClosed}
		}
		err = b.conn.Close()
	})
	return err
}

func (b *Bridge) write(msg network.ClientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeRejected, err)
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", msg.Event, err)
	}
	return nil
}

func (b *Bridge) expire(id string) {
	b.mu.Lock()
	req, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()
	if ok {
		req.ch <- Result{ID: id, Event: req.event, Err: ErrBridgeTimeout}
	}
}

// readPump reads frames from the host until the connection fails.
func (b *Bridge) readPump() {
	defer b.Close()

	for {
		_, message, err := b.conn.ReadMessage()
		if err != nil {
			select {
			case <-b.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("Host read error: %v", err)
				}
			}
			return
		}

		var msg network.ServerMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Failed to parse host message: %v", err)
			continue
		}

		switch msg.Type {
		case network.FrameResponse:
			b.resolve(msg)
		case network.FramePush:
			select {
			case b.pushes <- msg:
			case <-b.done:
				return
			}
		default:
			log.Printf("Unknown host frame type: %s", msg.Type)
		}
	}
}

func (b *Bridge) resolve(msg network.ServerMessage) {
	b.mu.Lock()
	req, ok := b.pending[msg.ID]
	if ok {
		delete(b.pending, msg.ID)
	}
	b.mu.Unlock()

	if !ok {
		log.Printf("Dropping late response %s", msg.ID)
		return
	}
	req.timer.Stop()

	r := Result{ID: msg.ID, Event: req.event, Payload: msg.Payload}
	if !msg.OK {
		r.Err = &HostError{Event: req.event, Message: msg.Error}
	}
	req.ch <- r
}

// dispatchPump delivers pushes one at a time, in arrival order.
func (b *Bridge) dispatchPump() {
	for {
		select {
		case msg := <-b.pushes:
			b.mu.Lock()
			subs := append([]subscription(nil), b.subs[msg.Event]...)
			b.mu.Unlock()

			if len(subs) == 0 {
				log.Printf("No handler for push %s", msg.Event)
				continue
			}
			for _, s := range subs {
				s.handler(msg.Payload)
			}
		case <-b.done:
			return
		}
	}
}
