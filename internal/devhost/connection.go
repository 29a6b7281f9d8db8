package devhost

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gravitas-games/invmirror/internal/network"
	"github.com/gravitas-games/invmirror/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection is one UI attached to the development host
type Connection struct {
	// WebSocket connection
	ws *websocket.Conn

	// Server reference
	server *Server

	// Player information (set after authentication)
	player *models.Player

	// Buffered channel for outbound messages
	send      chan []byte
	closeOnce sync.Once
}

// NewConnection creates a new connection
func NewConnection(ws *websocket.Conn, server *Server, player *models.Player) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		player: player,
		send:   make(chan []byte, 256),
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the session
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Failed to parse client message: %v", err)
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			// Server shutting down
			return
		}
	}
}

// handleMessage routes frames by type and event
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	log.Printf("Received %s %s from %s", msg.Type, msg.Event, c.player.Username)

	switch msg.Type {
	case network.FrameNotify:
		c.handleNotify(msg)

	case network.FrameRequest:
		c.handleRequest(msg)

	default:
		log.Printf("Unknown frame type: %s", msg.Type)
	}
}

func (c *Connection) handleNotify(msg *network.ClientMessage) {
	switch msg.Event {
	case network.EventUILoaded:
		c.handleUILoaded()

	case network.EventLockControls:
		var locked bool
		if err := json.Unmarshal(msg.Payload, &locked); err != nil {
			log.Printf("Failed to parse lockControls from %s: %v", c.player.Username, err)
			return
		}
		log.Printf("Controls locked for %s: %v", c.player.Username, locked)

	case network.EventTransferFocusToCrafting:
		log.Printf("Focus handed to crafting for %s", c.player.Username)

	default:
		log.Printf("Unknown notify event: %s", msg.Event)
	}
}

// handleUILoaded brings a freshly loaded UI up to date
func (c *Connection) handleUILoaded() {
	opening, setup, err := c.server.session.Open(c.player.ID)
	if err != nil {
		log.Printf("Failed to open inventories: %v", err)
		return
	}
	c.Push(network.EventInit, opening)
	if setup != nil {
		c.Push(network.EventSetupInventory, setup)
	}
}

func (c *Connection) handleRequest(msg *network.ClientMessage) {
	switch msg.Event {
	case network.EventSwapItems, network.EventBuyItem, network.EventCraftItem, network.EventUseItem:
	default:
		c.Respond(msg.ID, msg.Event, "unknown request")
		return
	}

	var req network.TransferRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.Respond(msg.ID, msg.Event, "invalid transfer request")
		return
	}
	if req.Kind.EventFor() != msg.Event {
		c.Respond(msg.ID, msg.Event, "transfer kind does not match event")
		return
	}

	updates, closeUI, err := c.server.session.Transfer(c.player.ID, req)
	if err != nil {
		log.Printf("Transfer %s rejected for %s: %v", req.Kind, c.player.Username, err)
		c.Respond(msg.ID, msg.Event, err.Error())
		return
	}

	c.Respond(msg.ID, msg.Event, "")
	if len(updates) > 0 {
		c.Push(network.EventRefreshSlots, network.RefreshSlotsPayload{Items: updates})
	}
	if closeUI {
		c.Push(network.EventCloseInventory, struct{}{})
	}
}

// Respond answers a request. An empty errText means ok.
func (c *Connection) Respond(id, event, errText string) {
	c.SendMessage(&network.ServerMessage{
		Type:  network.FrameResponse,
		ID:    id,
		Event: event,
		OK:    errText == "",
		Error: errText,
	})
}

// Push sends a host push event
func (c *Connection) Push(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s push: %v", event, err)
		return
	}
	c.SendMessage(&network.ServerMessage{Type: network.FramePush, Event: event, Payload: raw})
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("Send buffer full, dropping message")
	}
}

// Close closes the connection
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.player != nil {
			c.server.session.RemovePlayer(c.player.ID)
		}
		close(c.send)
		c.ws.Close()
	})
}
