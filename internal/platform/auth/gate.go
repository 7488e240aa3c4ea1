package auth

import (
	"crypto/subtle"
	"errors"
)

// GateState is the access gate's position. The dashboard content is only
// reachable while Unlocked.
type GateState string

const (
	Locked   GateState = "locked"
	Unlocked GateState = "unlocked"
)

// ErrIncorrectPassword is the only failure a submission can produce. Its
// message is shown to the user verbatim.
var ErrIncorrectPassword = errors.New("Incorrect password")

// Gate holds the shared access secret.
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Submit checks text against the secret. An exact match unlocks; anything
// else keeps the gate Locked and returns ErrIncorrectPassword. Submitting to
// an unlocked gate is a no-op.
func (g *Gate) Submit(s GateState, text string) (GateState, error) {
	if s == Unlocked {
		return Unlocked, nil
	}
	if len(g.secret) == 0 || subtle.ConstantTimeCompare([]byte(text), g.secret) != 1 {
		return Locked, ErrIncorrectPassword
	}
	return Unlocked, nil
}

// Lock signs out.
func (g *Gate) Lock(GateState) GateState {
	return Locked
}
