package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrNotJWT is returned for opaque access tokens.
var ErrNotJWT = errors.New("token is not a JWT")

// Claims is what the client can read from an access token without the signing key. None of
// it is verified; the CRM remains the only judge of validity.
type Claims struct {
	Subject   string
	Email     string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Inspect parses raw without verifying its signature.
func Inspect(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, ' '); i > 0 && strings.EqualFold(raw[:i], "bearer") {
		raw = strings.TrimSpace(raw[i+1:])
	}
	if strings.Count(raw, ".") != 2 {
		return nil, ErrNotJWT
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(ErrNotJWT, err.Error())
	}
	mc, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("[token.Inspect] error extracting claims")
	}

	c := &Claims{}
	c.Subject, _ = mc.GetSubject()
	if c.Subject == "" {
		c.Subject = firstString(mc, "_id", "id", "userId")
	}
	c.Email = firstString(mc, "email")
	c.Issuer, _ = mc.GetIssuer()
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// Expired reports whether the token carries an expiry before now. Tokens without an exp
// claim never expire locally.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

func firstString(mc jwtlib.MapClaims, keys ...string) string {
	for _, k := range keys {
		if s, ok := mc[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
