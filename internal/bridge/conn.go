package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from the host. init pushes carry the
	// whole item catalog, so this is much larger than what the host accepts.
	maxMessageSize = 1 << 20
)

// Conn is the message transport under a Bridge. *websocket.Conn satisfies
// it; NewPipe provides an in-memory pair.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dial connects to the host websocket endpoint, authenticating with a
// bearer token. The connection keeps itself alive with pings until closed.
func Dial(ctx context.Context, url, token string) (Conn, error) {
	if err := checkToken(token); err != nil {
		return nil, err
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	ws, resp, err := d.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial host (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial host: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c := &wsConn{Conn: ws, done: make(chan struct{})}
	go c.keepAlive()
	return c, nil
}

// checkToken rejects tokens that are already expired so the UI doesn't
// dial just to be refused. The signature is the host's business.
func checkToken(token string) error {
	if token == "" {
		return nil
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("failed to parse host token: %w", err)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("host token: %w", jwt.ErrTokenExpired)
	}
	return nil
}

type wsConn struct {
	*websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsConn) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Printf("Host ping failed: %v", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.Conn.Close()
}

// errPipeClosed is returned by a pipe end after either end closed.
var errPipeClosed = errors.New("bridge: pipe closed")

// NewPipe returns two connected in-memory Conns. Closing either end closes
// both.
func NewPipe() (Conn, Conn) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeConn{in: ba, out: ab, done: done, once: once},
		&pipeConn{in: ab, out: ba, done: done, once: once}
}

type pipeConn struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

func (p *pipeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-p.in:
		return websocket.TextMessage, b, nil
	case <-p.done:
		return 0, nil, errPipeClosed
	}
}

func (p *pipeConn) WriteMessage(messageType int, data []byte) error {
	b := append([]byte(nil), data...)
	select {
	case <-p.done:
		return errPipeClosed
	default:
	}
	select {
	case p.out <- b:
		return nil
	case <-p.done:
		return errPipeClosed
	}
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
