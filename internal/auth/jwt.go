package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Aidin1998/taskmanager/pkg/errors"
	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer signs tokens for a caller.
type TokenIssuer interface {
	Issue(caller Caller) (string, error)
}

// TokenVerifier checks a token and returns the caller it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Caller, error)
}

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.Forbidden.Explain("Invalid or expired token")

// JWTConfig configures token signing and verification.
type JWTConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	ExpiresIn time.Duration
	ClockSkew time.Duration
}

// JWT issues HS256 tokens and verifies them with the auth0 validator.
type JWT struct {
	cfg       JWTConfig
	secret    []byte
	validator *validator.Validator
	now       func() time.Time
}

type issuedClaims struct {
	Caller
	jwt.RegisteredClaims
}

// customClaims receives the caller fields during verification.
type customClaims struct {
	UserID   uuid.UUID `json:"userId"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

func (c *customClaims) Validate(ctx context.Context) error {
	if c.UserID == uuid.Nil {
		return fmt.Errorf("token has no user id")
	}
	if _, ok := models.ParseRole(c.Role); !ok {
		return fmt.Errorf("token has unknown role %q", c.Role)
	}
	return nil
}

// NewJWT builds a signer and verifier sharing one secret.
func NewJWT(cfg JWTConfig) (*JWT, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.ExpiresIn <= 0 {
		return nil, fmt.Errorf("jwt expiry must be positive")
	}

	secret := []byte(cfg.Secret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	v, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithAllowedClockSkew(cfg.ClockSkew),
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &customClaims{}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the validator: %w", err)
	}

	return &JWT{cfg: cfg, secret: secret, validator: v, now: time.Now}, nil
}

// Issue signs a token for caller that expires after the configured duration.
func (j *JWT) Issue(caller Caller) (string, error) {
	now := j.now()
	claims := &issuedClaims{
		Caller: caller,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			Subject:   caller.UserID.String(),
			Audience:  jwt.ClaimStrings{j.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.cfg.ExpiresIn)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience and expiry.
func (j *JWT) Verify(ctx context.Context, token string) (*Caller, error) {
	raw, err := j.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	validated, ok := raw.(*validator.ValidatedClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	custom, ok := validated.CustomClaims.(*customClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	role, _ := models.ParseRole(custom.Role)
	return &Caller{
		UserID:   custom.UserID,
		Email:    custom.Email,
		Username: custom.Username,
		Role:     role,
	}, nil
}
