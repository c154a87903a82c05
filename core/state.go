package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const stateIssuer = "crm-connector"

var ErrInvalidState = errors.New("core: invalid authorization state")

// UserIDStateCodec uses the caller user id as the state value. The value is
// neither signed nor expiring, so a leaked callback URL can be replayed until
// the code itself is rejected by the provider.
type UserIDStateCodec struct{}

func (UserIDStateCodec) Encode(_ context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidState
	}
	return userID, nil
}

func (UserIDStateCodec) Decode(_ context.Context, state string) (string, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return "", ErrInvalidState
	}
	return state, nil
}

// SignedStateCodec issues short-lived HS256 tokens whose subject is the user
// id. Decoding fails closed on a bad signature, issuer, or expiry.
type SignedStateCodec struct {
	key   []byte
	ttl   time.Duration
	clock func() time.Time
}

func NewSignedStateCodec(key string, ttl time.Duration, clock func() time.Time) (*SignedStateCodec, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ConfigurationError("core: state signing key is required")
	}
	if ttl <= 0 {
		return nil, ConfigurationError("core: state ttl must be positive")
	}
	if clock == nil {
		clock = time.Now
	}
	return &SignedStateCodec{key: []byte(key), ttl: ttl, clock: clock}, nil
}

func (c *SignedStateCodec) Encode(_ context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidState
	}
	now := c.clock().UTC()
	token, err := jwt.NewBuilder().
		Issuer(stateIssuer).
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(c.ttl)).
		JwtID(uuid.NewString()).
		Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, c.key))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

func (c *SignedStateCodec) Decode(_ context.Context, state string) (string, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return "", ErrInvalidState
	}
	token, err := jwt.Parse([]byte(state),
		jwt.WithKey(jwa.HS256, c.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(stateIssuer),
		jwt.WithClock(jwt.ClockFunc(c.clock)),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidState, err)
	}
	subject := strings.TrimSpace(token.Subject())
	if subject == "" {
		return "", ErrInvalidState
	}
	return subject, nil
}

// NewStateCodec picks the signed codec when a signing key is configured.
func NewStateCodec(cfg OAuthConfig, clock func() time.Time) (StateCodec, error) {
	if strings.TrimSpace(cfg.StateSigningKey) == "" {
		return UserIDStateCodec{}, nil
	}
	return NewSignedStateCodec(cfg.StateSigningKey, cfg.StateTTL, clock)
}

var (
	_ StateCodec = UserIDStateCodec{}
	_ StateCodec = (*SignedStateCodec)(nil)
)
