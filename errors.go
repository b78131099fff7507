package authcore

import "errors"

// Sentinel errors returned by Engine flows. The boundary layer maps these to
// transport status codes; comparisons must use errors.Is because collaborator
// failures are wrapped with context.
var (
	// ErrInvalidInput reports a malformed request (missing email, empty
	// password, unknown role).
	ErrInvalidInput = errors.New("invalid input")
	// ErrPasswordPolicy reports a new password that does not satisfy the
	// configured policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrEmailExists reports a registration attempt for an email that is
	// already registered.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password, so
	// a failed login never reveals whether the account exists.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountInactive reports a login or refresh against an account that an
	// administrator has deactivated.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountNotFound reports an account that vanished between steps, e.g.
	// a refresh token whose subject has since been removed.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTokenInvalid reports a malformed or unmatched token or secret,
	// including replay of an already-consumed secret.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired reports a token or secret past its validity window.
	ErrTokenExpired = errors.New("token expired")
	// ErrBackendUnavailable reports a collaborator failure: repository,
	// hashing entropy, or a timed-out call. The flow performed no partial
	// account mutation.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady reports use of an Engine that was not built through
	// Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
