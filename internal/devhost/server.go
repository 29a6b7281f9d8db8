// Package devhost is a development stand-in for the game host. It speaks the
// bridge protocol over a websocket, serves fixture inventories and applies
// naive transfer rules so the UI core can be run and tested end to end.
package devhost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/gravitas-games/invmirror/internal/config"
	"github.com/gravitas-games/invmirror/pkg/models"
)

const shutdownGrace = 10 * time.Second

// Server is the development host. Connections live in its single session.
type Server struct {
	config   config.DevHostConfig
	session  *Session
	upgrader websocket.Upgrader
	auth     *JWTValidator
	redis    *redis.Client
	httpSrv  *http.Server
	started  time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a development host serving fixture. Redis is only dialled
// when the token blacklist is enabled.
func New(cfg config.DevHostConfig, fixture *Fixture) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		config:  cfg,
		session: NewSession("main", fixture),
		started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Development only.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	var err error
	if srv.redis, err = dialRedis(ctx, cfg.Redis); err != nil {
		cancel()
		return nil, err
	}
	if srv.auth, err = NewJWTValidator(cfg, srv.redis); err != nil {
		srv.closeRedis()
		cancel()
		return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
	}

	log.Printf("Development host ready, fixture inventory %s", fixture.Left.ID)
	return srv, nil
}

func dialRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}
	log.Printf("Token blacklist backed by Redis at %s", cfg.Address)
	return client, nil
}

// Validator exposes the token validator, mainly to issue development tokens.
func (s *Server) Validator() *JWTValidator { return s.auth }

// Session returns the shared session.
func (s *Server) Session() *Session { return s.session }

// Handler returns the HTTP routes: the bridge socket and a health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       time.Minute,
	}
	log.Printf("Bridge socket on ws://%s/ws", addr)

	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, drops every connected UI and
// releases Redis.
func (s *Server) Shutdown() error {
	s.cancel()

	var errs []error
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if n := s.session.DisconnectAll(); n > 0 {
		log.Printf("Disconnected %d UI(s)", n)
	}
	if err := s.closeRedis(); err != nil {
		errs = append(errs, fmt.Errorf("redis close: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Server) closeRedis() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}

// authenticate resolves the player behind a socket request.
func (s *Server) authenticate(r *http.Request) (*models.Player, error) {
	token := extractTokenFromHeader(r)
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	return s.auth.ValidateToken(token)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	player, err := s.authenticate(r)
	if err != nil {
		log.Printf("Refused socket from %s: %v", r.RemoteAddr, err)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed for %s: %v", player.Username, err)
		return
	}

	player.Connected = true
	player.ConnectedAt = time.Now()
	player.SessionID = s.session.ID

	conn := NewConnection(ws, s, player)
	if err := s.session.AddPlayer(player, conn); err != nil {
		log.Printf("Refused %s: %v", player.Username, err)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		ws.Close()
		return
	}

	log.Printf("UI attached: %s (%s)", player.Username, r.RemoteAddr)
	conn.Handle()
	log.Printf("UI detached: %s", player.Username)
}

type healthStatus struct {
	Status  string `json:"status"`
	Session string `json:"session"`
	Players int    `json:"players"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthStatus{
		Status:  "ok",
		Session: s.session.ID,
		Players: s.session.PlayerCount(),
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}
