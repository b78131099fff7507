package authcore

import (
	"context"
	"errors"

	"github.com/vocalis-health/authcore/internal/metrics"
	"github.com/vocalis-health/authcore/token"
)

// Register creates an account for req.Email and returns an access+refresh
// token pair. The account starts active, role=user, and unverified; a
// verification secret with a bounded validity window is persisted as a digest
// and handed to the notifier. A duplicate email fails with ErrEmailExists;
// the repository's uniqueness constraint decides races, so two concurrent
// registrations resolve without in-process locking.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		e.emitAudit(ctx, auditEventRegister, false, "", ErrInvalidInput, map[string]string{"reason": "bad_email"})
		return nil, ErrInvalidInput
	}
	if err := e.checkPasswordPolicy(req.Password); err != nil {
		e.emitAudit(ctx, auditEventRegister, false, "", err, map[string]string{"email": email, "reason": "password_policy"})
		return nil, err
	}

	passwordHash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventRegister, false, "", ErrBackendUnavailable, map[string]string{"email": email, "reason": "hash_failed"})
		return nil, wrapBackendErr(err)
	}

	secret, err := token.NewSecret(e.config.Verification.SecretLength)
	if err != nil {
		return nil, wrapBackendErr(err)
	}

	now := e.now()
	account := &Account{
		Email:                 email,
		PasswordHash:          passwordHash,
		Role:                  e.config.Account.DefaultRole,
		Active:                true,
		EmailVerified:         false,
		VerificationDigest:    token.Digest(secret),
		VerificationExpiresAt: now.Add(e.config.Verification.TTL),
		CreatedAt:             now,
	}

	insertCtx, cancel := e.backendCtx(ctx)
	err = e.repo.Insert(insertCtx, account)
	cancel()
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			e.metricInc(metrics.RegisterDuplicate)
			e.emitAudit(ctx, auditEventRegister, false, "", ErrEmailExists, map[string]string{"email": email})
			return nil, ErrEmailExists
		}
		e.emitAudit(ctx, auditEventRegister, false, "", ErrBackendUnavailable, map[string]string{"email": email, "reason": "insert_failed"})
		return nil, wrapBackendErr(err)
	}

	// The secret is already persisted; a delivery failure must not roll it
	// back. It stays valid until expiry or supersession.
	notifyCtx, cancel := e.backendCtx(ctx)
	if err := e.notifier.SendVerification(notifyCtx, email, secret); err != nil {
		e.emitAudit(ctx, auditEventRegister, true, account.ID, nil, map[string]string{"email": email, "notify": "failed"})
	}
	cancel()

	accessToken, err := e.tokens.IssueAccess(account.ID, string(account.Role))
	if err != nil {
		return nil, wrapBackendErr(err)
	}
	refreshToken, err := e.tokens.IssueRefresh(account.ID, string(account.Role))
	if err != nil {
		return nil, wrapBackendErr(err)
	}

	e.metricInc(metrics.RegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, true, account.ID, nil, map[string]string{"email": email, "role": string(account.Role)})

	return &RegisterResult{
		AccountID:    account.ID,
		Role:         account.Role,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
