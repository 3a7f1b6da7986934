package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inkpad/inkpad/internal/sessions"
	"github.com/inkpad/inkpad/pkg/middleware"
)

var ErrTokenRevoked = errors.New("token revoked")

// Verifier validates access tokens minted by GenerateAccessToken. It rejects
// blacklisted (logged-out) tokens before checking the signature.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	black, err := sessions.IsAccessTokenBlacklisted(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("blacklist check: %w", err)
	}
	if black {
		return nil, ErrTokenRevoked
	}
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return &claimsToken{claims: claims}, nil
}

type claimsToken struct {
	claims jwt.MapClaims
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
