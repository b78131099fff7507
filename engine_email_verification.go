package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/vocalis-health/authcore/internal/metrics"
	"github.com/vocalis-health/authcore/token"
)

// RequestEmailVerification issues a fresh verification secret for email,
// superseding any outstanding one, and hands it to the notifier. The reply is
// generic success whether or not the account exists; the unknown-email path
// is padded so timing does not reveal the difference. Already-verified
// accounts are a silent no-op.
func (e *Engine) RequestEmailVerification(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		e.emitAudit(ctx, auditEventVerificationRequest, false, "", ErrInvalidInput, map[string]string{"reason": "bad_email"})
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
			e.metricInc(metrics.VerificationRequest)
			e.emitAudit(ctx, auditEventVerificationRequest, true, "", nil, map[string]string{"email": email, "enumeration_safe": "true"})
			return nil
		}
		return wrapBackendErr(err)
	}

	if account.EmailVerified {
		e.metricInc(metrics.VerificationRequest)
		e.emitAudit(ctx, auditEventVerificationRequest, true, account.ID, nil, map[string]string{"noop": "already_verified"})
		return nil
	}

	secret, err := token.NewSecret(e.config.Verification.SecretLength)
	if err != nil {
		return wrapBackendErr(err)
	}

	digest := token.Digest(secret)
	expiresAt := e.now().Add(e.config.Verification.TTL)

	// One write: the new digest replaces the old one, which invalidates any
	// previously issued secret.
	updateCtx, cancel := e.backendCtx(ctx)
	err = e.repo.Update(updateCtx, account.ID, AccountUpdate{
		VerificationDigest:    &digest,
		VerificationExpiresAt: &expiresAt,
	})
	cancel()
	if err != nil {
		e.emitAudit(ctx, auditEventVerificationRequest, false, account.ID, ErrBackendUnavailable, nil)
		return wrapBackendErr(err)
	}

	notifyCtx, cancel := e.backendCtx(ctx)
	if err := e.notifier.SendVerification(notifyCtx, email, secret); err != nil {
		e.emitAudit(ctx, auditEventVerificationRequest, true, account.ID, nil, map[string]string{"notify": "failed"})
	}
	cancel()

	e.metricInc(metrics.VerificationRequest)
	e.emitAudit(ctx, auditEventVerificationRequest, true, account.ID, nil, nil)
	return nil
}

// ConfirmEmailVerification consumes a verification secret. On success the
// account becomes verified and the stored digest is cleared, so replaying the
// same secret fails with ErrTokenInvalid. A secret past its window fails with
// ErrTokenExpired and mutates nothing. Verified state never regresses.
func (e *Engine) ConfirmEmailVerification(ctx context.Context, email, secret string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if !validEmail(email) || secret == "" {
		e.metricInc(metrics.VerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, "", ErrTokenInvalid, map[string]string{"reason": "bad_input"})
		return ErrTokenInvalid
	}

	findCtx, cancel := e.backendCtx(ctx)
	account, err := e.repo.FindByEmail(findCtx, email)
	cancel()
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(metrics.VerificationFailure)
			e.emitAudit(ctx, auditEventVerificationConfirm, false, "", ErrTokenInvalid, nil)
			return ErrTokenInvalid
		}
		return wrapBackendErr(err)
	}

	// An empty digest means no secret is outstanding: never issued, already
	// consumed, or superseded.
	if account.VerificationDigest == "" {
		e.metricInc(metrics.VerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, account.ID, ErrTokenInvalid, map[string]string{"reason": "no_challenge"})
		return ErrTokenInvalid
	}
	if e.now().After(account.VerificationExpiresAt) {
		e.metricInc(metrics.VerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, account.ID, ErrTokenExpired, nil)
		return ErrTokenExpired
	}
	if subtle.ConstantTimeCompare([]byte(token.Digest(secret)), []byte(account.VerificationDigest)) != 1 {
		e.metricInc(metrics.VerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, account.ID, ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	verified := true
	var clearDigest string
	var clearExpiry time.Time
	updateCtx, cancel := e.backendCtx(ctx)
	err = e.repo.Update(updateCtx, account.ID, AccountUpdate{
		EmailVerified:         &verified,
		VerificationDigest:    &clearDigest,
		VerificationExpiresAt: &clearExpiry,
	})
	cancel()
	if err != nil {
		e.emitAudit(ctx, auditEventVerificationConfirm, false, account.ID, ErrBackendUnavailable, nil)
		return wrapBackendErr(err)
	}

	e.metricInc(metrics.VerificationSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, account.ID, nil, nil)
	return nil
}
