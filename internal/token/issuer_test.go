package token

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"linkchat/internal/logging"
)

func testIssuer(now *time.Time) *Issuer {
	return NewIssuerWithNow(logging.New(io.Discard, "error"), func() time.Time { return *now })
}

func TestIssue_ValuesAreUnique(t *testing.T) {
	now := time.Now()
	issuer := testIssuer(&now)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tok, err := issuer.Issue(60)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if tok.Value == "" || seen[tok.Value] {
			t.Fatalf("expected fresh unguessable value, got %q", tok.Value)
		}
		seen[tok.Value] = true
		if !tok.ExpiresAt.Equal(now.Add(60 * time.Minute)) {
			t.Fatalf("unexpected expiry %v", tok.ExpiresAt)
		}
	}
}

func TestValidateAndConsume_Lifecycle(t *testing.T) {
	now := time.Now()
	issuer := testIssuer(&now)

	tok, err := issuer.Issue(60)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	consumed, err := issuer.ValidateAndConsume(tok.Value, "session-1")
	if err != nil {
		t.Fatalf("ValidateAndConsume: %v", err)
	}
	if !consumed.Used || consumed.SessionID != "session-1" {
		t.Fatalf("token not bound to session: %+v", consumed)
	}

	if _, err := issuer.ValidateAndConsume(tok.Value, "session-2"); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}

	// The consumed token stays queryable until it expires.
	if got, ok := issuer.Get(tok.Value); !ok || got.SessionID != "session-1" {
		t.Fatalf("consumed token should remain queryable, got %+v ok=%v", got, ok)
	}
}

func TestValidateAndConsume_InvalidInputs(t *testing.T) {
	now := time.Now()
	issuer := testIssuer(&now)

	if _, err := issuer.ValidateAndConsume("", "s"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty value, got %v", err)
	}
	if _, err := issuer.ValidateAndConsume("unknown", "s"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown value, got %v", err)
	}
}

func TestValidateAndConsume_Expired(t *testing.T) {
	now := time.Now()
	issuer := testIssuer(&now)

	tok, err := issuer.Issue(1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := issuer.ValidateAndConsume(tok.Value, "s"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestIssue_NonPositiveValidityIsBornExpired(t *testing.T) {
	now := time.Now()
	issuer := testIssuer(&now)

	tok, err := issuer.Issue(0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	now = now.Add(time.Millisecond)
	if _, err := issuer.ValidateAndConsume(tok.Value, "s"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestValidateAndConsume_SingleWinner(t *testing.T) {
	now := time.Now()
	issuer := testIssuer(&now)

	tok, err := issuer.Issue(60)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const callers = 32
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = issuer.ValidateAndConsume(tok.Value, "s")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrAlreadyUsed):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	now := time.Now()
	issuer := testIssuer(&now)

	short, _ := issuer.Issue(1)
	long, _ := issuer.Issue(60)
	if _, err := issuer.ValidateAndConsume(long.Value, "s"); err != nil {
		t.Fatalf("ValidateAndConsume: %v", err)
	}

	now = now.Add(5 * time.Minute)
	issuer.Sweep()
	issuer.Sweep() // idempotent

	if _, ok := issuer.Get(short.Value); ok {
		t.Fatalf("expired token must be swept")
	}
	if _, ok := issuer.Get(long.Value); !ok {
		t.Fatalf("used but unexpired token must survive the sweep")
	}
}
