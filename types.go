package authcore

import (
	"context"
	"time"
)

// Role is the coarse authorization class carried in token claims. Role
// assignment beyond the registration default is an administrative action
// outside this package.
type Role string

const (
	RoleUser   Role = "user"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

func validRole(r Role) bool {
	switch r {
	case RoleUser, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Account is the persisted credential record, one per registered user. The
// engine treats it as a plain value: all behavior (hashing, comparison,
// expiry) lives in the engine and its collaborators.
//
// VerificationDigest and ResetDigest hold SHA-256 digests of outstanding
// secrets, never the secrets themselves. An empty digest means no secret is
// outstanding.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool

	EmailVerified         bool
	VerificationDigest    string
	VerificationExpiresAt time.Time

	ResetDigest    string
	ResetExpiresAt time.Time

	LastLoginAt time.Time
	CreatedAt   time.Time
}

// AccountUpdate is a partial update applied to an account in one atomic
// repository write. Nil fields are untouched; a pointer to the zero value
// clears the field. Flows never issue more than one update per call.
type AccountUpdate struct {
	PasswordHash          *string
	EmailVerified         *bool
	VerificationDigest    *string
	VerificationExpiresAt *time.Time
	ResetDigest           *string
	ResetExpiresAt        *time.Time
	LastLoginAt           *time.Time
}

// ApplyTo mutates a with the non-nil fields of u. Repository implementations
// use it so that partial-update semantics stay identical across backends.
func (u AccountUpdate) ApplyTo(a *Account) {
	if u.PasswordHash != nil {
		a.PasswordHash = *u.PasswordHash
	}
	if u.EmailVerified != nil {
		a.EmailVerified = *u.EmailVerified
	}
	if u.VerificationDigest != nil {
		a.VerificationDigest = *u.VerificationDigest
	}
	if u.VerificationExpiresAt != nil {
		a.VerificationExpiresAt = *u.VerificationExpiresAt
	}
	if u.ResetDigest != nil {
		a.ResetDigest = *u.ResetDigest
	}
	if u.ResetExpiresAt != nil {
		a.ResetExpiresAt = *u.ResetExpiresAt
	}
	if u.LastLoginAt != nil {
		a.LastLoginAt = *u.LastLoginAt
	}
}

// AccountRepository is the persistence contract the engine requires. All
// operations are atomic at single-account granularity; cross-request races on
// the same email are resolved by the repository's uniqueness constraint, not
// by in-process locking.
//
// Implementations return ErrAccountNotFound and ErrEmailExists from this
// package; any other error is treated as a backend failure.
type AccountRepository interface {
	// FindByEmail looks up an account by normalized email.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// FindByID looks up an account by its repository-assigned ID.
	FindByID(ctx context.Context, id string) (*Account, error)
	// Insert persists a new account, assigning Account.ID when empty.
	// Exactly one of two concurrent inserts with the same email succeeds;
	// the other observes ErrEmailExists.
	Insert(ctx context.Context, account *Account) error
	// Update applies a partial update to one account as a single write.
	Update(ctx context.Context, id string, update AccountUpdate) error
}

// EmailNotifier delivers verification and reset secrets to the account owner.
// Delivery is fire-and-forget from the engine's perspective: a failure after
// the secret has been persisted does not roll it back; the secret stays valid
// until it expires or is superseded.
type EmailNotifier interface {
	SendVerification(ctx context.Context, email, secret string) error
	SendPasswordReset(ctx context.Context, email, secret string) error
}

// Clock supplies the current time for expiry comparisons and token issuance.
// Injected so expiry logic is testable; defaults to time.Now.
type Clock func() time.Time

// RegisterRequest is the input for [Engine.Register]. Name is informational
// profile data stored alongside the credential record by the caller; the
// engine only validates and normalizes Email and Password.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// RegisterResult is returned by [Engine.Register]. The account starts
// unverified; the verification secret travels only through the notifier.
type RegisterResult struct {
	AccountID    string
	Role         Role
	AccessToken  string
	RefreshToken string
}

// LoginResult bundles the token pair returned by Login and Refresh.
type LoginResult struct {
	AccountID    string
	Role         Role
	AccessToken  string
	RefreshToken string
}
