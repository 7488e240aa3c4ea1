package auth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionIssuer is the iss claim of every session token.
const SessionIssuer = "fi-dashboard"

const defaultSessionTTL = 8 * time.Hour

// Claims is the body of a session token. Holding a valid token is what
// "Unlocked" means to the API.
type Claims struct {
	jwt.RegisteredClaims
	State GateState `json:"state"`
}

type SessionConfig struct {
	// SigningKey signs tokens with HS256. Empty means a random per-process
	// key, so every restart locks all open pages.
	SigningKey []byte
	TTL        time.Duration
}

// Sessions issues and verifies session tokens.
type Sessions struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewSessions(cfg SessionConfig) (*Sessions, error) {
	key := cfg.SigningKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating session key: %w", err)
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Sessions{key: key, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for a freshly unlocked gate.
func (s *Sessions) Issue() (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    SessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		State: Unlocked,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return token, exp, nil
}

// Parse verifies a token and returns its claims.
func (s *Sessions) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(SessionIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.State != Unlocked {
		return nil, fmt.Errorf("session is not unlocked")
	}
	return claims, nil
}
