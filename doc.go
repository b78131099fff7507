// Package authcore implements the credential and session lifecycle for the
// Vocalis health platform: account registration, login, JWT access/refresh
// token issuance, email verification, and password reset.
//
// The package is the orchestration layer only. Persistence, email delivery,
// and the wall clock are collaborators supplied at construction time through
// [Builder]; HTTP routing and status-code mapping live with the caller. Engine
// methods return sentinel errors (ErrInvalidCredentials, ErrTokenExpired, ...)
// for the boundary layer to translate.
//
// # Security invariants
//
//   - Passwords are stored only as Argon2id PHC strings ([password.Argon2]).
//   - Email verification and password reset secrets are stored only as SHA-256
//     digests with a bounded validity window, are single-use, and are
//     invalidated when a newer secret is issued.
//   - Login, registration, and the request flows never reveal whether an email
//     is registered: unknown email and wrong password collapse into one
//     failure, and RequestPasswordReset / RequestEmailVerification always
//     report success.
//   - No secret, password, hash, or digest appears in results, audit events,
//     or error strings.
//
// Engine methods are safe for concurrent use after [Builder.Build]. Every flow
// performs at most one write to an account, issued as a single atomic update,
// so a failed flow leaves the account in its prior state.
package authcore
