// Package memstore provides an in-process AccountRepository backed by a map.
// It mirrors the semantics the engine requires from a real backend (email
// uniqueness on insert, atomic partial updates) and exists for tests and
// examples, not production.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	authcore "github.com/vocalis-health/authcore"
)

// Repository is a map-backed authcore.AccountRepository. Safe for concurrent
// use; all returned accounts are copies, so callers cannot mutate stored
// state without going through Update.
type Repository struct {
	mu      sync.Mutex
	byID    map[string]*authcore.Account
	byEmail map[string]string
}

func New() *Repository {
	return &Repository{
		byID:    make(map[string]*authcore.Account),
		byEmail: make(map[string]string),
	}
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*authcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	out := *account
	return &out, nil
}

func (r *Repository) Insert(ctx context.Context, account *authcore.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.Email]; exists {
		return authcore.ErrEmailExists
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	stored := *account
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

func (r *Repository) Update(ctx context.Context, id string, update authcore.AccountUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return authcore.ErrAccountNotFound
	}
	update.ApplyTo(account)
	return nil
}
