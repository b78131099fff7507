package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type claims. A refresh token is structurally identical to an access
// token but is accepted only by VerifyRefresh, never as a bearer credential.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrInvalid reports a token with a bad signature, structure, or type.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired reports a structurally valid token past its expiry.
	ErrExpired = errors.New("token expired")
)

// Config configures a Service. Secret is the process-wide HS256 key. Now is
// injected for expiry testing and defaults to time.Now.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
	Now        func() time.Time
}

// Service signs and verifies the stateless access and refresh tokens. Issued
// tokens are never persisted; validity is carried entirely in the signed
// claims. Safe for concurrent use.
type Service struct {
	config Config
}

// Claims is the payload embedded in every issued token.
type Claims struct {
	AccountID string `json:"uid"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewService validates cfg and returns a Service.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a secret key")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{config: cfg}, nil
}

// IssueAccess mints a short-lived access token for accountID.
func (s *Service) IssueAccess(accountID, role string) (string, error) {
	return s.issue(accountID, role, TypeAccess, s.config.AccessTTL)
}

// IssueRefresh mints a long-lived refresh token for accountID. Refresh tokens
// are non-revocable until expiry; rotation happens by re-issuing on use.
func (s *Service) IssueRefresh(accountID, role string) (string, error) {
	return s.issue(accountID, role, TypeRefresh, s.config.RefreshTTL)
}

func (s *Service) issue(accountID, role, typ string, ttl time.Duration) (string, error) {
	now := s.config.Now()
	claims := Claims{
		AccountID: accountID,
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
}

// Verify parses and validates an access token, returning its claims. Expiry
// maps to ErrExpired, every other defect to ErrInvalid.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, TypeAccess)
}

// VerifyRefresh is Verify for refresh tokens. An access token presented here
// fails with ErrInvalid, so a leaked short-lived token cannot mint new pairs.
func (s *Service) VerifyRefresh(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, TypeRefresh)
}

func (s *Service) parse(tokenStr, wantType string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.config.Now),
		jwt.WithIssuedAt(),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrInvalid
	}
	if claims.AccountID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
