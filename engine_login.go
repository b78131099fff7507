package authcore

import (
	"context"
	"errors"

	"github.com/vocalis-health/authcore/internal/metrics"
)

// Login verifies credentials and returns a fresh access+refresh token pair.
// Unknown email and wrong password are indistinguishable to the caller: both
// fail with ErrInvalidCredentials, and the unknown-email path burns a hash
// verification so timing does not leak account existence either. An account
// an administrator deactivated fails with ErrAccountInactive regardless of
// credential validity.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if !validEmail(email) || plaintext == "" {
		e.metricInc(metrics.LoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, "", ErrInvalidCredentials, map[string]string{"reason": "bad_input"})
		return nil, ErrInvalidCredentials
	}

	findCtx, cancel := e.backendCtx(ctx)
	account, err := e.repo.FindByEmail(findCtx, email)
	cancel()
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Equalize work with the found path before failing.
			_, _ = e.hasher.Verify(plaintext, e.dummyHash)
			e.metricInc(metrics.LoginFailure)
			e.emitAudit(ctx, auditEventLogin, false, "", ErrInvalidCredentials, map[string]string{"email": email})
			return nil, ErrInvalidCredentials
		}
		return nil, wrapBackendErr(err)
	}

	ok, err := e.hasher.Verify(plaintext, account.PasswordHash)
	if err != nil {
		// A malformed stored hash is corrupt state, not a credential failure.
		e.emitAudit(ctx, auditEventLogin, false, account.ID, ErrBackendUnavailable, map[string]string{"reason": "hash_malformed"})
		return nil, wrapBackendErr(err)
	}
	if !ok {
		e.metricInc(metrics.LoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, account.ID, ErrInvalidCredentials, map[string]string{"email": email})
		return nil, ErrInvalidCredentials
	}

	if !account.Active {
		e.metricInc(metrics.LoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, account.ID, ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	}
	if e.config.Account.RequireVerifiedLogin && !account.EmailVerified {
		e.metricInc(metrics.LoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, account.ID, ErrAccountInactive, map[string]string{"reason": "unverified"})
		return nil, ErrAccountInactive
	}

	loginAt := e.now()
	updateCtx, cancel := e.backendCtx(ctx)
	err = e.repo.Update(updateCtx, account.ID, AccountUpdate{LastLoginAt: &loginAt})
	cancel()
	if err != nil {
		return nil, wrapBackendErr(err)
	}

	accessToken, err := e.tokens.IssueAccess(account.ID, string(account.Role))
	if err != nil {
		return nil, wrapBackendErr(err)
	}
	refreshToken, err := e.tokens.IssueRefresh(account.ID, string(account.Role))
	if err != nil {
		return nil, wrapBackendErr(err)
	}

	e.metricInc(metrics.LoginSuccess)
	e.emitAudit(ctx, auditEventLogin, true, account.ID, nil, nil)

	return &LoginResult{
		AccountID:    account.ID,
		Role:         account.Role,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
