package devhost

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gravitas-games/invmirror/internal/config"
	"github.com/gravitas-games/invmirror/pkg/models"
)

// ErrUnauthorized wraps every token rejection.
var ErrUnauthorized = errors.New("devhost: unauthorized")

// JWTValidator handles JWT token validation
type JWTValidator struct {
	issuer string
	secret []byte
	prefix string
	redis  *redis.Client
	ctx    context.Context
}

// Claims represents the JWT claims a development token carries
type Claims struct {
	UserID    int64          `json:"user_id"`
	Username  string         `json:"username"`
	Groups    map[string]int `json:"groups,omitempty"`
	Activated int64          `json:"activated"`
	jwt.RegisteredClaims
}

// NewJWTValidator creates a validator for HS256 tokens. redisClient may be
// nil, in which case the blacklist is not consulted.
func NewJWTValidator(cfg config.DevHostConfig, redisClient *redis.Client) (*JWTValidator, error) {
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	log.Println("JWT validator initialized")
	return &JWTValidator{
		issuer: cfg.JWT.Issuer,
		secret: []byte(cfg.JWT.Secret),
		prefix: cfg.Redis.BlacklistPrefix,
		redis:  redisClient,
		ctx:    context.Background(),
	}, nil
}

// IssueToken signs a token for a development player.
func (v *JWTValidator) IssueToken(userID int64, username string, groups map[string]int, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		Groups:    groups,
		Activated: now.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ValidateToken validates a JWT token and returns player information
func (v *JWTValidator) ValidateToken(tokenString string) (*models.Player, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse token: %w", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}

	player := &models.Player{
		ID:        strconv.FormatInt(claims.UserID, 10),
		Username:  claims.Username,
		Groups:    claims.Groups,
		Activated: claims.Activated,
	}
	if player.IsBanned() {
		return nil, fmt.Errorf("%w: user is banned", ErrUnauthorized)
	}
	if !player.IsActive() {
		return nil, fmt.Errorf("%w: user not activated", ErrUnauthorized)
	}

	if v.redis != nil {
		key := v.prefix + player.ID
		n, err := v.redis.Exists(v.ctx, key).Result()
		if err != nil {
			// Don't fail authentication if Redis is down
			log.Printf("Warning: Failed to check blacklist: %v", err)
		} else if n > 0 {
			return nil, fmt.Errorf("%w: token is blacklisted", ErrUnauthorized)
		}
	}

	return player, nil
}

// extractTokenFromHeader extracts the JWT from a WebSocket upgrade request
func extractTokenFromHeader(r *http.Request) string {
	// Sec-WebSocket-Protocol: "access_token, <token>"
	if protocols := r.Header.Get("Sec-WebSocket-Protocol"); protocols != "" {
		parts := strings.Split(protocols, ",")
		if len(parts) == 2 && strings.TrimSpace(parts[0]) == "access_token" {
			return strings.TrimSpace(parts[1])
		}
	}

	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return token
	}

	// Query parameter (less secure, but supported)
	return r.URL.Query().Get("token")
}
