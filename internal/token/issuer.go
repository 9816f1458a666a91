package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"linkchat/internal/model"
)

// tokenByteLength gives 192 bits of randomness per credential.
const tokenByteLength = 24

var (
	ErrInvalidToken = errors.New("invalid magic link token")
	ErrAlreadyUsed  = errors.New("magic link token already used")
	ErrExpired      = errors.New("magic link token expired")
)

// Issuer owns the process-wide one-time credential store. Tokens are
// keyed by value; consumption is an atomic check-and-set, so exactly one
// concurrent caller can win a given token.
type Issuer struct {
	mu     sync.Mutex
	tokens map[string]model.LinkToken
	now    func() time.Time
	log    zerolog.Logger
}

func NewIssuer(log zerolog.Logger) *Issuer {
	return NewIssuerWithNow(log, time.Now)
}

func NewIssuerWithNow(log zerolog.Logger, now func() time.Time) *Issuer {
	return &Issuer{
		tokens: make(map[string]model.LinkToken),
		now:    now,
		log:    log.With().Str("component", "token").Logger(),
	}
}

// Issue mints and stores a fresh token valid for the given number of
// minutes. A zero or negative validity yields an already-expired token,
// which callers can hand out but nobody can consume.
func (i *Issuer) Issue(validMinutes int) (model.LinkToken, error) {
	value, err := randomValue()
	if err != nil {
		return model.LinkToken{}, err
	}

	now := i.now()
	tok := model.LinkToken{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(validMinutes) * time.Minute),
	}

	i.mu.Lock()
	i.tokens[value] = tok
	i.mu.Unlock()

	i.log.Info().Time("expiresAt", tok.ExpiresAt).Msg("issued magic link token")
	return tok, nil
}

// ValidateAndConsume marks the token used and binds it to the session.
// The check and the set happen under one lock, so with N concurrent
// callers exactly one succeeds and the rest observe ErrAlreadyUsed.
func (i *Issuer) ValidateAndConsume(value, sessionID string) (model.LinkToken, error) {
	if value == "" {
		return model.LinkToken{}, ErrInvalidToken
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	tok, ok := i.tokens[value]
	if !ok {
		return model.LinkToken{}, ErrInvalidToken
	}
	if tok.Used {
		return model.LinkToken{}, ErrAlreadyUsed
	}
	if tok.Expired(i.now()) {
		return model.LinkToken{}, ErrExpired
	}

	tok.Used = true
	tok.SessionID = sessionID
	i.tokens[value] = tok
	return tok, nil
}

// Get is a read-only lookup for diagnostics; it never mutates the token.
func (i *Issuer) Get(value string) (model.LinkToken, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	tok, ok := i.tokens[value]
	return tok, ok
}

// Sweep removes every expired token, used or not. Used tokens that have
// not yet expired are retained and stay queryable. Safe to call
// repeatedly and concurrently with issuance and consumption.
func (i *Issuer) Sweep() {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	removed := 0
	for value, tok := range i.tokens {
		if tok.Expired(now) {
			delete(i.tokens, value)
			removed++
		}
	}
	if removed > 0 {
		i.log.Debug().Int("removed", removed).Msg("swept expired tokens")
	}
}

func randomValue() (string, error) {
	buf := make([]byte, tokenByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
