package devhost

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gravitas-games/invmirror/internal/network"
	"github.com/gravitas-games/invmirror/pkg/inventory"
	"github.com/gravitas-games/invmirror/pkg/models"
)

// Session holds the inventories of every connected development player.
// Each player gets a private clone of the fixture.
type Session struct {
	ID        string
	CreatedAt time.Time

	fixture *Fixture
	catalog *inventory.Catalog

	// Player management
	players     map[string]*models.Player // playerID -> Player
	connections map[string]*Connection    // playerID -> Connection
	states      map[string]*playerState   // playerID -> inventories
	mu          sync.RWMutex
}

// NewSession creates a session seeded from fixture
func NewSession(id string, fixture *Fixture) *Session {
	log.Printf("Creating session: %s", id)

	catalog := inventory.NewCatalog()
	catalog.Merge(fixture.Items)

	return &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		fixture:     fixture,
		catalog:     catalog,
		players:     make(map[string]*models.Player),
		connections: make(map[string]*Connection),
		states:      make(map[string]*playerState),
	}
}

// AddPlayer adds a player to the session with fresh inventories
func (s *Session) AddPlayer(player *models.Player, conn *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[player.ID]; exists {
		return fmt.Errorf("player %s already connected", player.ID)
	}

	left, right := s.fixture.clone()
	if len(player.Groups) > 0 {
		left.Groups = player.Groups
	}
	s.players[player.ID] = player
	s.connections[player.ID] = conn
	s.states[player.ID] = &playerState{catalog: s.catalog, player: player, left: left, right: right}

	log.Printf("Player %s (%s) joined session %s", player.Username, player.ID, s.ID)
	return nil
}

// RemovePlayer removes a player from the session
func (s *Session) RemovePlayer(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if player, exists := s.players[playerID]; exists {
		log.Printf("Player %s (%s) left session %s", player.Username, playerID, s.ID)
		delete(s.players, playerID)
		delete(s.connections, playerID)
		delete(s.states, playerID)
	}
}

// PlayerCount returns how many players are connected
func (s *Session) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// DisconnectAll closes every attached UI and returns how many there were.
// Closing a connection removes its player.
func (s *Session) DisconnectAll() int {
	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		if c != nil {
			conns = append(conns, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
	return len(conns)
}

// Open returns the pushes that bring a freshly loaded UI up to date: init
// with the player inventory, then setupInventory when something is open on
// the right.
func (s *Session) Open(playerID string) (network.InitPayload, *network.SetupInventoryPayload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[playerID]
	if !ok {
		return network.InitPayload{}, nil, fmt.Errorf("player %s not in session", playerID)
	}
	opening := network.InitPayload{
		Locale:        s.fixture.Locale,
		Items:         s.fixture.Items,
		LeftInventory: st.left.Clone(),
		ImagePath:     s.fixture.ImagePath,
	}
	if st.right == nil {
		return opening, nil, nil
	}
	return opening, &network.SetupInventoryPayload{RightInventory: st.right.Clone()}, nil
}

// Transfer applies a transfer request to the player's inventories and
// returns the slots it replaced. closeUI is true when the host should close
// the inventory afterwards; the right inventory is already discarded then.
func (s *Session) Transfer(playerID string, req network.TransferRequest) (updates network.SlotUpdates, closeUI bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[playerID]
	if !ok {
		return nil, false, fmt.Errorf("player %s not in session", playerID)
	}
	if updates, err = st.apply(req); err != nil {
		return nil, false, err
	}
	if st.closing {
		st.right = nil
	}
	return updates, st.closing, nil
}
