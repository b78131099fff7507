package authcore

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/vocalis-health/authcore/internal/audit"
	"github.com/vocalis-health/authcore/internal/metrics"
	"github.com/vocalis-health/authcore/password"
	"github.com/vocalis-health/authcore/token"
)

// noopNotifier stands in when no EmailNotifier is configured. Secrets are
// still persisted, so a notifier can be added later without schema changes.
type noopNotifier struct{}

func (noopNotifier) SendVerification(context.Context, string, string) error  { return nil }
func (noopNotifier) SendPasswordReset(context.Context, string, string) error { return nil }

// Builder assembles an Engine from configuration and collaborators. Build
// validates everything once; the returned Engine is immutable.
type Builder struct {
	config    Config
	repo      AccountRepository
	notifier  EmailNotifier
	clock     Clock
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with defaults.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the full configuration. Zero TTLs and work-factor
// fields are filled from defaults at Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRepository sets the account persistence collaborator. Required.
func (b *Builder) WithRepository(repo AccountRepository) *Builder {
	b.repo = repo
	return b
}

// WithNotifier sets the email delivery collaborator. Optional; without one,
// secrets are persisted but not delivered.
func (b *Builder) WithNotifier(n EmailNotifier) *Builder {
	b.notifier = n
	return b
}

// WithClock overrides the time source. Defaults to time.Now.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and collaborators and returns a ready
// Engine. A Builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.repo == nil {
		return nil, errors.New("account repository required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewService(token.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Leeway:     cfg.JWT.Leeway,
		Now:        clock,
	})
	if err != nil {
		return nil, err
	}

	// Hash a throwaway secret so failed lookups can burn the same work as a
	// real verification.
	dummySecret, err := token.NewSecret(32)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummySecret)
	if err != nil {
		return nil, err
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}

	engine := &Engine{
		config:    cfg,
		repo:      b.repo,
		notifier:  notifier,
		hasher:    hasher,
		tokens:    tokens,
		now:       clock,
		dummyHash: dummyHash,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: metrics.New(cfg.Metrics.Enabled),
	}

	b.built = true
	return engine, nil
}

// applyDefaults fills zero-valued fields so WithConfig callers only need to
// set what they change.
func applyDefaults(cfg *Config) {
	def := defaultConfig()

	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = def.JWT.AccessTTL
	}
	if cfg.JWT.RefreshTTL == 0 {
		cfg.JWT.RefreshTTL = def.JWT.RefreshTTL
	}
	if cfg.JWT.Leeway == 0 {
		cfg.JWT.Leeway = def.JWT.Leeway
	}
	if cfg.Password.Memory == 0 {
		cfg.Password.Memory = def.Password.Memory
	}
	if cfg.Password.Time == 0 {
		cfg.Password.Time = def.Password.Time
	}
	if cfg.Password.Parallelism == 0 {
		cfg.Password.Parallelism = def.Password.Parallelism
	}
	if cfg.Password.SaltLength == 0 {
		cfg.Password.SaltLength = def.Password.SaltLength
	}
	if cfg.Password.KeyLength == 0 {
		cfg.Password.KeyLength = def.Password.KeyLength
	}
	if cfg.Password.MinLength == 0 {
		cfg.Password.MinLength = def.Password.MinLength
	}
	if cfg.Account.DefaultRole == "" {
		cfg.Account.DefaultRole = def.Account.DefaultRole
	}
	if cfg.Verification.TTL == 0 {
		cfg.Verification.TTL = def.Verification.TTL
	}
	if cfg.Verification.SecretLength == 0 {
		cfg.Verification.SecretLength = def.Verification.SecretLength
	}
	if cfg.Reset.TTL == 0 {
		cfg.Reset.TTL = def.Reset.TTL
	}
	if cfg.Reset.SecretLength == 0 {
		cfg.Reset.SecretLength = def.Reset.SecretLength
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}
	if cfg.BackendTimeout == 0 {
		cfg.BackendTimeout = def.BackendTimeout
	}
}
