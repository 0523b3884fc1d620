// Package token reads claims out of an already-issued bearer token. The
// token stays opaque otherwise: no acquisition and no signature
// verification. The server is the authority; the client only needs to know
// which account the token is scoped to and whether it still looks current.
package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rlaurindo/presenca-sync/internal/common"
)

// Claims is the slice of the token the client cares about.
type Claims struct {
	AccountID int64
	ExpiresAt time.Time
}

// Parse extracts claims without verifying the signature. The account id is
// taken from the numeric "usuario_id" claim when present, otherwise from a
// numeric "sub".
func Parse(raw string) (*Claims, error) {
	parser := jwt.NewParser()

	tok, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, common.ErrInvalidToken
	}

	c := &Claims{}

	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}

	if id, ok := mc["usuario_id"].(float64); ok {
		c.AccountID = int64(id)
		return c, nil
	}

	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: no account claim", common.ErrInvalidToken)
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: non-numeric subject %q", common.ErrInvalidToken, sub)
	}
	c.AccountID = id
	return c, nil
}

// Expired reports whether the token carries an exp claim in the past.
// Tokens without exp never read as expired here; the server still decides.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}
