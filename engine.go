package authcore

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	internalaudit "github.com/vocalis-health/authcore/internal/audit"
	"github.com/vocalis-health/authcore/internal/metrics"
	"github.com/vocalis-health/authcore/password"
	"github.com/vocalis-health/authcore/token"
)

// Engine orchestrates the credential lifecycle flows. Construct it through
// [Builder]; the zero value returns ErrEngineNotReady from every flow. All
// state is set before Build returns and never mutated afterwards, so methods
// are safe for concurrent use.
type Engine struct {
	config   Config
	repo     AccountRepository
	notifier EmailNotifier
	hasher   *password.Argon2
	tokens   *token.Service
	now      Clock
	audit    *internalaudit.Dispatcher
	metrics  *metrics.Metrics

	// dummyHash is verified against on the unknown-email login path so the
	// response time does not reveal whether the account exists.
	dummyHash string
}

func (e *Engine) ready() bool {
	return e != nil && e.repo != nil && e.hasher != nil && e.tokens != nil && e.now != nil
}

// Close stops the audit dispatcher after draining buffered events. Call once
// at shutdown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// ValidateAccess verifies a bearer access token and returns its claims. The
// check is pure and stateless, with no repository round-trip, so it is the hot
// path for resource servers. Expiry maps to ErrTokenExpired, everything else
// to ErrTokenInvalid.
func (e *Engine) ValidateAccess(tokenStr string) (*token.Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(tokenStr)
	if err != nil {
		return nil, mapTokenErr(err)
	}
	return claims, nil
}

// MetricsSnapshot returns a point-in-time copy of the flow counters, or nil
// when metrics are disabled.
func (e *Engine) MetricsSnapshot() metrics.Snapshot {
	if e == nil {
		return nil
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded under
// backpressure since startup.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id metrics.ID) {
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, accountID string, flowErr error, metadata map[string]string) {
	if e.audit == nil {
		return
	}

	event := internalaudit.Event{
		Timestamp: e.now(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if flowErr != nil {
		event.Error = flowErr.Error()
	}

	e.audit.Emit(ctx, event)
}

// backendCtx bounds one collaborator call with the configured timeout on top
// of the caller's context.
func (e *Engine) backendCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.BackendTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.BackendTimeout)
}

// wrapBackendErr maps a collaborator failure to ErrBackendUnavailable while
// preserving caller cancellation.
func wrapBackendErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Join(ErrBackendUnavailable, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}

func (e *Engine) checkPasswordPolicy(plaintext string) error {
	if len(plaintext) < e.config.Password.MinLength {
		return ErrPasswordPolicy
	}
	return nil
}

// sleepEnumerationDelay pads the not-found path of the request flows with
// 20–40ms of random latency so it is not distinguishable from the path that
// hits the repository and the notifier.
func sleepEnumerationDelay(ctx context.Context) error {
	const minMs, maxMs = int64(20), int64(40)

	n, err := rand.Int(rand.Reader, big.NewInt(maxMs-minMs+1))
	if err != nil {
		return err
	}

	timer := time.NewTimer(time.Duration(minMs+n.Int64()) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
