package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/vocalis-health/authcore/internal/metrics"
	"github.com/vocalis-health/authcore/token"
)

// RequestPasswordReset starts the reset flow for email. The caller always
// sees generic success: when the account exists, a fresh reset secret is
// persisted as a digest with a short validity window (superseding any prior
// one) and handed to the notifier; when it does not, nothing is created and
// the response is padded to the same timing. This is a deliberate
// anti-enumeration guarantee.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		e.emitAudit(ctx, auditEventResetRequest, false, "", ErrInvalidInput, map[string]string{"reason": "bad_email"})
		return ErrInvalidInput
	}

	findCtx, cancel := e.backendCtx(ctx)
	account, err := e.repo.FindByEmail(findCtx, email)
	cancel()
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			if err := sleepEnumerationDelay(ctx); err != nil {
				return err
			}
			e.metricInc(metrics.ResetRequest)
			e.emitAudit(ctx, auditEventResetRequest, true, "", nil, map[string]string{"email": email, "enumeration_safe": "true"})
			return nil
		}
		return wrapBackendErr(err)
	}

	secret, err := token.NewSecret(e.config.Reset.SecretLength)
	if err != nil {
		return wrapBackendErr(err)
	}

	digest := token.Digest(secret)
	expiresAt := e.now().Add(e.config.Reset.TTL)

	updateCtx, cancel := e.backendCtx(ctx)
	err = e.repo.Update(updateCtx, account.ID, AccountUpdate{
		ResetDigest:    &digest,
		ResetExpiresAt: &expiresAt,
	})
	cancel()
	if err != nil {
		e.emitAudit(ctx, auditEventResetRequest, false, account.ID, ErrBackendUnavailable, nil)
		return wrapBackendErr(err)
	}

	// Delivery failure does not roll the secret back; it expires on its own.
	notifyCtx, cancel := e.backendCtx(ctx)
	if err := e.notifier.SendPasswordReset(notifyCtx, email, secret); err != nil {
		e.emitAudit(ctx, auditEventResetRequest, true, account.ID, nil, map[string]string{"notify": "failed"})
	}
	cancel()

	e.metricInc(metrics.ResetRequest)
	e.emitAudit(ctx, auditEventResetRequest, true, account.ID, nil, nil)
	return nil
}

// ConfirmPasswordReset consumes a reset secret and installs newPassword. The
// stored digest is cleared in the same write that replaces the hash, so a
// consumed secret replays as ErrTokenInvalid. An expired secret fails with
// ErrTokenExpired and leaves the password hash untouched.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, email, secret, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if !validEmail(email) || secret == "" {
		e.metricInc(metrics.ResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, "", ErrTokenInvalid, map[string]string{"reason": "bad_input"})
		return ErrTokenInvalid
	}
	if err := e.checkPasswordPolicy(newPassword); err != nil {
		e.metricInc(metrics.ResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, "", err, map[string]string{"reason": "password_policy"})
		return err
	}

	findCtx, cancel := e.backendCtx(ctx)
	account, err := e.repo.FindByEmail(findCtx, email)
	cancel()
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(metrics.ResetFailure)
			e.emitAudit(ctx, auditEventResetConfirm, false, "", ErrTokenInvalid, nil)
			return ErrTokenInvalid
		}
		return wrapBackendErr(err)
	}

	if account.ResetDigest == "" {
		e.metricInc(metrics.ResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, account.ID, ErrTokenInvalid, map[string]string{"reason": "no_challenge"})
		return ErrTokenInvalid
	}
	if e.now().After(account.ResetExpiresAt) {
		e.metricInc(metrics.ResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, account.ID, ErrTokenExpired, nil)
		return ErrTokenExpired
	}
	if subtle.ConstantTimeCompare([]byte(token.Digest(secret)), []byte(account.ResetDigest)) != 1 {
		e.metricInc(metrics.ResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, account.ID, ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return wrapBackendErr(err)
	}

	var clearDigest string
	var clearExpiry time.Time
	updateCtx, cancel := e.backendCtx(ctx)
	err = e.repo.Update(updateCtx, account.ID, AccountUpdate{
		PasswordHash:   &newHash,
		ResetDigest:    &clearDigest,
		ResetExpiresAt: &clearExpiry,
	})
	cancel()
	if err != nil {
		e.emitAudit(ctx, auditEventResetConfirm, false, account.ID, ErrBackendUnavailable, nil)
		return wrapBackendErr(err)
	}

	e.metricInc(metrics.ResetSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, account.ID, nil, nil)
	return nil
}
