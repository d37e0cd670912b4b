// Package auth issues and verifies the HS256 bearer tokens that identify
// API callers. The token subject is the user id.
package auth

import (
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

// MinSecretLen is the shortest accepted signing secret in bytes.
const MinSecretLen = 32

// ErrUnauthorized is the root of every verification failure.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the authenticated caller.
type Identity struct {
	UserID string
}

func checkSecret(secret []byte) error {
	if len(secret) < MinSecretLen {
		return errors.NewValidationError("auth.jwt_secret", "secret too short", len(secret))
	}
	return nil
}

// Issuer mints signed tokens.
type Issuer struct {
	signer jose.Signer
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer whose tokens expire after ttl.
func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, errors.NewValidationError("auth.token_ttl", "must be positive", ttl)
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create signer")
	}
	return &Issuer{signer: signer, ttl: ttl, now: time.Now}, nil
}

// Issue returns a compact token for userID.
func (i *Issuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.NewValidationError("user", "empty user id", userID)
	}
	now := i.now()
	claims := jwt.Claims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(i.ttl)),
	}
	raw, err := jwt.Signed(i.signer).Claims(claims).Serialize()
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return raw, nil
}

// Verifier checks tokens signed with the shared secret.
type Verifier struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewVerifier returns a Verifier for secret.
func NewVerifier(secret []byte) (*Verifier, error) {
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	return &Verifier{secret: secret, leeway: jwt.DefaultLeeway, now: time.Now}, nil
}

// Verify parses token, checks its signature and expiry, and returns the
// subject as the caller's identity.
func (v *Verifier) Verify(token string) (Identity, error) {
	tok, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Identity{}, errors.Wrap(ErrUnauthorized, "malformed token")
	}
	var claims jwt.Claims
	if err := tok.Claims(v.secret, &claims); err != nil {
		return Identity{}, errors.Wrap(ErrUnauthorized, "invalid signature")
	}
	if err := claims.ValidateWithLeeway(jwt.Expected{Time: v.now()}, v.leeway); err != nil {
		return Identity{}, errors.Wrap(ErrUnauthorized, "invalid or expired token")
	}
	if claims.Subject == "" {
		return Identity{}, errors.Wrap(ErrUnauthorized, "invalid token payload")
	}
	return Identity{UserID: claims.Subject}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errors.Wrap(ErrUnauthorized, "missing or invalid Authorization header")
	}
	tok := strings.TrimSpace(header[len(prefix):])
	if tok == "" {
		return "", errors.Wrap(ErrUnauthorized, "missing or invalid Authorization header")
	}
	return tok, nil
}
