package authcore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	authcore "github.com/vocalis-health/authcore"
	"github.com/vocalis-health/authcore/store/memstore"
)

func TestRefreshIssuesNewPair(t *testing.T) {
	env := newTestEngine(t, nil)

	reg := mustRegister(t, env, "alice@example.com", "password123")

	env.clock.Advance(time.Hour)
	result, err := env.engine.Refresh(context.Background(), reg.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if result.AccountID != reg.AccountID {
		t.Fatalf("AccountID = %q, want %q", result.AccountID, reg.AccountID)
	}

	claims, err := env.engine.ValidateAccess(result.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess error: %v", err)
	}
	if claims.AccountID != reg.AccountID {
		t.Fatalf("claims.AccountID = %q, want %q", claims.AccountID, reg.AccountID)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEngine(t, nil)

	reg := mustRegister(t, env, "bob@example.com", "password123")

	if _, err := env.engine.Refresh(context.Background(), reg.AccessToken); !errors.Is(err, authcore.ErrTokenInvalid) {
		t.Fatalf("Refresh(access token) = %v, want ErrTokenInvalid", err)
	}
}

func TestRefreshExpired(t *testing.T) {
	env := newTestEngine(t, nil)

	reg := mustRegister(t, env, "carol@example.com", "password123")

	env.clock.Advance(8 * 24 * time.Hour)
	if _, err := env.engine.Refresh(context.Background(), reg.RefreshToken); !errors.Is(err, authcore.ErrTokenExpired) {
		t.Fatalf("expired refresh = %v, want ErrTokenExpired", err)
	}
}

func TestRefreshGarbageToken(t *testing.T) {
	env := newTestEngine(t, nil)

	for _, tok := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, err := env.engine.Refresh(context.Background(), tok); !errors.Is(err, authcore.ErrTokenInvalid) {
			t.Fatalf("Refresh(%q) = %v, want ErrTokenInvalid", tok, err)
		}
	}
}

func TestRefreshUnknownAccount(t *testing.T) {
	env := newTestEngine(t, nil)

	reg := mustRegister(t, env, "dave@example.com", "password123")

	// Same signing key, empty store: the signature verifies but the subject
	// account no longer exists.
	other, err := authcore.New().
		WithConfig(testEngineConfig()).
		WithRepository(memstore.New()).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	t.Cleanup(other.Close)

	if _, err := other.Refresh(context.Background(), reg.RefreshToken); !errors.Is(err, authcore.ErrAccountNotFound) {
		t.Fatalf("refresh for removed account = %v, want ErrAccountNotFound", err)
	}
}
