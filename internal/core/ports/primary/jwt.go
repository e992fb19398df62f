package primary

import (
	"context"
	"time"

	"gitlab.com/dutbench.net/internal/domain"
)

// JWTService issues and checks the shared-secret tokens of the status API
type JWTService interface {
	GenerateTokenHMAC(ctx context.Context, subject string, ttl time.Duration) (string, error)
	VerifyTokenHMAC(ctx context.Context, token string) (bool, error)
	DecodeTokenPayload(ctx context.Context, token string) (domain.AuthPayload, error)
}
