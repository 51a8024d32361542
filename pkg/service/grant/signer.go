package grant

import (
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

const (
	// MinSecretLength is the minimum HS256 key size in bytes
	MinSecretLength = 32

	DefaultIssuer = "socialink"

	audienceSession = "session"
	audienceState   = "oauth_state"
	claimPlatform   = "platform"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature, audience or expiry checks
	ErrInvalidToken = goerr.New("invalid token")
)

// Signer issues and verifies HS256-signed session, impersonation and OAuth state tokens
type Signer struct {
	key    jwk.Key
	issuer string
	now    func() time.Time
}

type Option func(*Signer)

func WithIssuer(issuer string) Option {
	return func(s *Signer) { s.issuer = issuer }
}

// WithClock replaces the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

func New(secret []byte, opts ...Option) (*Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, goerr.New("signing secret is too short", goerr.V("min_length", MinSecretLength))
	}

	key, err := jwk.FromRaw(secret)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build signing key")
	}

	s := &Signer{
		key:    key,
		issuer: DefaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Signer) sign(tok jwt.Token) (string, error) {
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.key))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign token")
	}
	return string(signed), nil
}

func (s *Signer) parse(raw, audience string) (jwt.Token, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, s.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(audience),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidToken, err.Error(), goerr.V("audience", audience))
	}
	return tok, nil
}

func (s *Signer) buildSession(userID string, impersonated bool, actor string, ttl time.Duration) (jwt.Token, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	b := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(s.issuer).
		Audience([]string{audienceSession}).
		Subject(userID).
		IssuedAt(now).
		Expiration(exp).
		Claim(model.ClaimRole, model.RoleUser).
		Claim(model.ClaimImpersonated, impersonated)
	if actor != "" {
		b = b.Claim(model.ClaimActor, actor)
	}

	tok, err := b.Build()
	if err != nil {
		return nil, time.Time{}, goerr.Wrap(err, "failed to build session token", goerr.V("user_id", userID))
	}
	return tok, exp, nil
}

// IssueSession signs a regular session token for userID
func (s *Signer) IssueSession(userID string, ttl time.Duration) (string, time.Time, error) {
	tok, exp, err := s.buildSession(userID, false, "", ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := s.sign(tok)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueGrant signs an impersonation grant: a session for userID that carries
// impersonated=true and the operator label
func (s *Signer) IssueGrant(userID, actor string, ttl time.Duration) (*model.Grant, error) {
	tok, exp, err := s.buildSession(userID, true, actor, ttl)
	if err != nil {
		return nil, err
	}
	signed, err := s.sign(tok)
	if err != nil {
		return nil, err
	}
	return &model.Grant{
		ID:           tok.JwtID(),
		Token:        signed,
		UserID:       userID,
		Role:         model.RoleUser,
		Impersonated: true,
		IssuedAt:     tok.IssuedAt(),
		ExpiresAt:    exp,
	}, nil
}

// VerifySession validates a session or grant token
func (s *Signer) VerifySession(raw string) (*model.Session, error) {
	tok, err := s.parse(raw, audienceSession)
	if err != nil {
		return nil, err
	}
	if tok.Subject() == "" {
		return nil, goerr.Wrap(ErrInvalidToken, "session has no subject")
	}

	session := &model.Session{
		UserID:    tok.Subject(),
		ExpiresAt: tok.Expiration(),
	}
	if v, ok := tok.Get(model.ClaimRole); ok {
		session.Role, _ = v.(string)
	}
	if v, ok := tok.Get(model.ClaimImpersonated); ok {
		session.Impersonated, _ = v.(bool)
	}
	return session, nil
}

// IssueState signs the OAuth state parameter binding a consent round trip to userID and platform
func (s *Signer) IssueState(userID string, platform types.Platform, ttl time.Duration) (string, error) {
	now := s.now()
	tok, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(s.issuer).
		Audience([]string{audienceState}).
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(claimPlatform, platform.String()).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build state token", goerr.V("user_id", userID))
	}
	return s.sign(tok)
}

// VerifyState validates a state token issued for platform and returns its user ID
func (s *Signer) VerifyState(raw string, platform types.Platform) (string, error) {
	tok, err := s.parse(raw, audienceState)
	if err != nil {
		return "", err
	}

	v, ok := tok.Get(claimPlatform)
	if p, _ := v.(string); !ok || p != platform.String() {
		return "", goerr.Wrap(ErrInvalidToken, "state was issued for another platform",
			goerr.V("expected", platform), goerr.V("actual", v))
	}
	if tok.Subject() == "" {
		return "", goerr.Wrap(ErrInvalidToken, "state has no subject")
	}
	return tok.Subject(), nil
}
