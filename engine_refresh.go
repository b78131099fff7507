package authcore

import (
	"context"
	"errors"

	"github.com/vocalis-health/authcore/internal/metrics"
	"github.com/vocalis-health/authcore/token"
)

// Refresh exchanges a valid refresh token for a new access+refresh pair. The
// token is stateless, so the only repository work is confirming the subject
// account still exists and is active: a removed account fails with
// ErrAccountNotFound even when the signature is good. There is no rotation
// bookkeeping: an old refresh token stays valid until its own expiry, an
// accepted tradeoff for a stateless API tier.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		e.metricInc(metrics.RefreshFailure)
		mapped := mapTokenErr(err)
		e.emitAudit(ctx, auditEventRefresh, false, "", mapped, nil)
		return nil, mapped
	}

	findCtx, cancel := e.backendCtx(ctx)
	account, err := e.repo.FindByID(findCtx, claims.AccountID)
	cancel()
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(metrics.RefreshFailure)
			e.emitAudit(ctx, auditEventRefresh, false, claims.AccountID, ErrAccountNotFound, nil)
			return nil, ErrAccountNotFound
		}
		return nil, wrapBackendErr(err)
	}

	if !account.Active {
		e.metricInc(metrics.RefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, account.ID, ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	}

	// Role comes from the account record, not the old claims, so an
	// administrative role change takes effect on the next refresh.
	accessToken, err := e.tokens.IssueAccess(account.ID, string(account.Role))
	if err != nil {
		return nil, wrapBackendErr(err)
	}
	newRefresh, err := e.tokens.IssueRefresh(account.ID, string(account.Role))
	if err != nil {
		return nil, wrapBackendErr(err)
	}

	e.metricInc(metrics.RefreshSuccess)
	e.emitAudit(ctx, auditEventRefresh, true, account.ID, nil, nil)

	return &LoginResult{
		AccountID:    account.ID,
		Role:         account.Role,
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
	}, nil
}

func mapTokenErr(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
