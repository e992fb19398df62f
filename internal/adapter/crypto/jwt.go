package crypto

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/dutbench.net/internal/config"
	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/static/errs"
)

const defaultTokenTTL = time.Hour

var _ primary.JWTService = JWTServiceImpl{}

type JWTServiceImpl struct {
	HMACSecretKey string
	now           func() time.Time
}

func NewJWTService(jwtConfig *config.JwtConfig) JWTServiceImpl {
	return JWTServiceImpl{
		HMACSecretKey: jwtConfig.Secret,
		now:           time.Now,
	}
}

// GenerateTokenHMAC signs an HS256 token for subject. A ttl <= 0 means one hour.
func (J JWTServiceImpl) GenerateTokenHMAC(_ context.Context, subject string, ttl time.Duration) (string, error) {
	if J.HMACSecretKey == "" {
		return "", errs.ErrSecretMissing
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := J.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return tok.SignedString([]byte(J.HMACSecretKey))
}

func (J JWTServiceImpl) VerifyTokenHMAC(_ context.Context, token string) (bool, error) {
	if J.HMACSecretKey == "" {
		return false, errs.ErrSecretMissing
	}

	parsedToken, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(J.HMACSecretKey), nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}

	return parsedToken.Valid, nil
}

// DecodeTokenPayload reads the claims without checking the signature
func (J JWTServiceImpl) DecodeTokenPayload(_ context.Context, token string) (domain.AuthPayload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return domain.AuthPayload{}, fmt.Errorf("%w: expected 3 segments", errs.ErrInvalidToken)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return domain.AuthPayload{}, fmt.Errorf("failed to decode token payload: %w", err)
	}

	var p domain.AuthPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return domain.AuthPayload{}, fmt.Errorf("failed to parse AuthPayload: %w", err)
	}
	return p, nil
}
