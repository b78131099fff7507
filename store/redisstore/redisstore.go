// Package redisstore implements authcore.AccountRepository on Redis.
//
// Layout: one JSON-encoded hash record per account under
// <prefix>:acct:<id>, plus an email index key <prefix>:email:<email>
// holding the account ID. Insert and Update run under WATCH so the email
// uniqueness constraint and partial updates stay atomic without in-process
// locking; a lost race is retried a bounded number of times.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	authcore "github.com/vocalis-health/authcore"
)

const maxTxRetries = 4

// record is the wire form of an account. Field tags are short on purpose;
// the record never leaves Redis.
type record struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"ph"`
	Role          string    `json:"role"`
	Active        bool      `json:"active"`
	EmailVerified bool      `json:"verified"`
	VerifDigest   string    `json:"vd,omitempty"`
	VerifExpires  time.Time `json:"vexp,omitempty"`
	ResetDigest   string    `json:"rd,omitempty"`
	ResetExpires  time.Time `json:"rexp,omitempty"`
	LastLoginAt   time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Repository is a Redis-backed authcore.AccountRepository.
type Repository struct {
	rdb    *redis.Client
	prefix string
}

// New returns a Repository using client. prefix namespaces all keys and
// defaults to "ac".
func New(client *redis.Client, prefix string) *Repository {
	if prefix == "" {
		prefix = "ac"
	}
	return &Repository{rdb: client, prefix: prefix}
}

func (r *Repository) accountKey(id string) string {
	return r.prefix + ":acct:" + id
}

func (r *Repository) emailKey(email string) string {
	return r.prefix + ":email:" + email
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	id, err := r.rdb.Get(ctx, r.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authcore.ErrAccountNotFound
		}
		return nil, fmt.Errorf("redisstore: email lookup: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *Repository) FindByID(ctx context.Context, id string) (*authcore.Account, error) {
	data, err := r.rdb.Get(ctx, r.accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authcore.ErrAccountNotFound
		}
		return nil, fmt.Errorf("redisstore: account lookup: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("redisstore: decode account %s: %w", id, err)
	}
	return decode(&rec), nil
}

// Insert persists account, assigning an ID when empty. The email index key is
// claimed and the record written in one transaction, so exactly one of two
// racing inserts for the same email succeeds.
func (r *Repository) Insert(ctx context.Context, account *authcore.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	emailKey := r.emailKey(account.Email)
	encoded, err := json.Marshal(encode(account))
	if err != nil {
		return fmt.Errorf("redisstore: encode account: %w", err)
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			_, err := tx.Get(ctx, emailKey).Result()
			if err == nil {
				return authcore.ErrEmailExists
			}
			if !errors.Is(err, redis.Nil) {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, emailKey, account.ID, 0)
				pipe.Set(ctx, r.accountKey(account.ID), encoded, 0)
				return nil
			})
			return err
		}, emailKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, authcore.ErrEmailExists) {
				return authcore.ErrEmailExists
			}
			return fmt.Errorf("redisstore: insert: %w", err)
		}
		return nil
	}
	return authcore.ErrEmailExists
}

// Update applies a partial update to one account as a single atomic write.
// The read-modify-write runs under WATCH on the account key; a concurrent
// writer triggers a bounded retry with a fresh read.
func (r *Repository) Update(ctx context.Context, id string, update authcore.AccountUpdate) error {
	key := r.accountKey(id)

	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var rec record
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("decode account %s: %w", id, err)
			}

			account := decode(&rec)
			update.ApplyTo(account)

			encoded, err := json.Marshal(encode(account))
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return authcore.ErrAccountNotFound
			}
			return fmt.Errorf("redisstore: update: %w", err)
		}
		return nil
	}
	return fmt.Errorf("redisstore: update %s: %w", id, redis.TxFailedErr)
}

func encode(a *authcore.Account) *record {
	return &record{
		ID:            a.ID,
		Email:         a.Email,
		PasswordHash:  a.PasswordHash,
		Role:          string(a.Role),
		Active:        a.Active,
		EmailVerified: a.EmailVerified,
		VerifDigest:   a.VerificationDigest,
		VerifExpires:  a.VerificationExpiresAt,
		ResetDigest:   a.ResetDigest,
		ResetExpires:  a.ResetExpiresAt,
		LastLoginAt:   a.LastLoginAt,
		CreatedAt:     a.CreatedAt,
	}
}

func decode(rec *record) *authcore.Account {
	return &authcore.Account{
		ID:                    rec.ID,
		Email:                 rec.Email,
		PasswordHash:          rec.PasswordHash,
		Role:                  authcore.Role(rec.Role),
		Active:                rec.Active,
		EmailVerified:         rec.EmailVerified,
		VerificationDigest:    rec.VerifDigest,
		VerificationExpiresAt: rec.VerifExpires,
		ResetDigest:           rec.ResetDigest,
		ResetExpiresAt:        rec.ResetExpires,
		LastLoginAt:           rec.LastLoginAt,
		CreatedAt:             rec.CreatedAt,
	}
}
