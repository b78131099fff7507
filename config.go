package authcore

import (
	"errors"
	"time"
)

// Config carries every tunable of the engine. Zero values are filled from
// defaultConfig by the Builder; Validate rejects combinations that would
// weaken the security invariants.
type Config struct {
	JWT          JWTConfig
	Password     PasswordConfig
	Account      AccountConfig
	Verification ChallengeConfig
	Reset        ChallengeConfig
	Audit        AuditConfig
	Metrics      MetricsConfig

	// BackendTimeout bounds every repository and notifier call in addition to
	// the caller's context. Zero disables the extra bound.
	BackendTimeout time.Duration
}

// JWTConfig configures signed token issuance. Secret is the process-wide
// HS256 key; issued tokens are stateless and verify without a repository
// round-trip.
type JWTConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// PasswordConfig holds the Argon2id work factor and the minimum accepted
// plaintext length.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// AccountConfig controls registration defaults.
type AccountConfig struct {
	DefaultRole Role
	// RequireVerifiedLogin blocks Login until the email is verified. Off by
	// default: registration hands out a token pair immediately.
	RequireVerifiedLogin bool
}

// ChallengeConfig governs one kind of single-use opaque secret (email
// verification or password reset): validity window and secret entropy.
type ChallengeConfig struct {
	TTL          time.Duration
	SecretLength int
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process flow counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration the Builder starts from: 15m/7d
// token TTLs, RFC 9106 second-recommended Argon2id parameters, 24h
// verification and 1h reset windows. Callers set JWT.Secret and override what
// they need.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Leeway:     30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		Account: AccountConfig{
			DefaultRole: RoleUser,
		},
		Verification: ChallengeConfig{
			TTL:          24 * time.Hour,
			SecretLength: 32,
		},
		Reset: ChallengeConfig{
			TTL:          time.Hour,
			SecretLength: 32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		BackendTimeout: 5 * time.Second,
	}
}

// Validate reports the first configuration error. Called by Builder.Build
// after defaults are applied.
func (c Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("jwt access ttl must be positive")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("jwt refresh ttl must exceed access ttl")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("jwt leeway out of range")
	}
	if c.Password.MinLength < 8 {
		return errors.New("password min length must be >= 8")
	}
	if !validRole(c.Account.DefaultRole) {
		return errors.New("unknown default role")
	}
	if c.Verification.TTL <= 0 || c.Reset.TTL <= 0 {
		return errors.New("challenge ttl must be positive")
	}
	if c.Verification.SecretLength < 16 || c.Reset.SecretLength < 16 {
		return errors.New("challenge secret length must be >= 16 bytes")
	}
	if c.BackendTimeout < 0 {
		return errors.New("backend timeout must not be negative")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.JWT.Secret = append([]byte(nil), c.JWT.Secret...)
	return out
}
