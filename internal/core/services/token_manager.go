package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"btg-funds/internal/core/domain"
	"btg-funds/internal/pkg/jwt"
	"btg-funds/internal/pkg/password"
)

const refreshTokenBytes = 32

// TokenManagerConfig holds signing and lifetime settings
type TokenManagerConfig struct {
	Secret         string
	Issuer         string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	ReuseDetection bool
}

// TokenManager mints access tokens and manages refresh-token sets.
// It does no I/O; callers load and persist the sets.
type TokenManager struct {
	cfg TokenManagerConfig
	now func() time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager(cfg TokenManagerConfig) *TokenManager {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{cfg: cfg, now: time.Now}
}

// IssueAccessToken signs a short-lived access token for the user
func (m *TokenManager) IssueAccessToken(userID string, role domain.Role) (string, time.Time, error) {
	return jwt.GenerateAccessToken(jwt.AccessTokenParams{
		UserID:   userID,
		Role:     string(role),
		Secret:   m.cfg.Secret,
		Issuer:   m.cfg.Issuer,
		TTL:      m.cfg.AccessTTL,
		IssuedAt: m.now(),
	})
}

// ValidateAccessToken verifies signature and expiry of an access token
func (m *TokenManager) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return jwt.ValidateAccessToken(token, m.cfg.Secret)
}

// IssueRefreshToken returns the opaque token value and the record to persist
func (m *TokenManager) IssueRefreshToken() (string, domain.RefreshToken, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", domain.RefreshToken{}, fmt.Errorf("generate refresh token: %w", err)
	}
	plain := base64.RawURLEncoding.EncodeToString(buf)
	now := m.now()

	return plain, domain.RefreshToken{
		TokenHash: password.HashToken(plain),
		ExpiresAt: now.Add(m.cfg.RefreshTTL),
		CreatedAt: now,
	}, nil
}

// RotateRefreshToken exchanges an active token for a new one.
// The presented record is revoked and linked to its successor, so it can rotate only once.
// Presenting an already rotated token revokes everything downstream of it when
// reuse detection is enabled; the set is modified in that case and must be persisted.
func (m *TokenManager) RotateRefreshToken(presented string, set *domain.TokenSet) (string, error) {
	now := m.now()
	i := set.Index(password.HashToken(presented))
	if i < 0 {
		return "", domain.ErrTokenInvalid
	}

	rec := (*set)[i]
	if rec.Revoked && rec.ReplacedBy != "" && m.cfg.ReuseDetection {
		m.revokeChain(set, rec.ReplacedBy, now)
		return "", domain.ErrTokenReused
	}
	if !rec.IsActive(now) {
		return "", domain.ErrTokenInvalid
	}

	plain, next, err := m.IssueRefreshToken()
	if err != nil {
		return "", err
	}

	revokedAt := now
	(*set)[i].Revoked = true
	(*set)[i].RevokedAt = &revokedAt
	(*set)[i].ReplacedBy = next.TokenHash
	*set = append(*set, next)

	return plain, nil
}

// revokeChain follows replaced-by links starting at hash and revokes every active record
func (m *TokenManager) revokeChain(set *domain.TokenSet, hash string, now time.Time) {
	for steps := 0; hash != "" && steps < len(*set); steps++ {
		j := set.Index(hash)
		if j < 0 {
			return
		}
		if !(*set)[j].Revoked {
			revokedAt := now
			(*set)[j].Revoked = true
			(*set)[j].RevokedAt = &revokedAt
		}
		hash = (*set)[j].ReplacedBy
	}
}

// RevokeAll revokes every active token and returns how many were revoked
func (m *TokenManager) RevokeAll(set *domain.TokenSet) int {
	now := m.now()
	n := 0
	for i := range *set {
		if (*set)[i].IsActive(now) {
			revokedAt := now
			(*set)[i].Revoked = true
			(*set)[i].RevokedAt = &revokedAt
			n++
		}
	}
	return n
}

// RevokeOne revokes a single token. Revoking an already revoked token is a no-op.
func (m *TokenManager) RevokeOne(set *domain.TokenSet, presented string) error {
	i := set.Index(password.HashToken(presented))
	if i < 0 {
		return domain.ErrTokenNotFound
	}
	if (*set)[i].Revoked {
		return nil
	}
	revokedAt := m.now()
	(*set)[i].Revoked = true
	(*set)[i].RevokedAt = &revokedAt
	return nil
}

// Retention is how long an expired record is kept so that presenting it
// still resolves its owner and fails as an invalid token
func (m *TokenManager) Retention() time.Duration {
	return m.cfg.RefreshTTL
}

// Prune drops records that expired more than Retention ago and returns how many were removed
func (m *TokenManager) Prune(set *domain.TokenSet) int {
	cutoff := m.now().Add(-m.Retention())
	kept := (*set)[:0]
	for _, t := range *set {
		if !t.IsExpired(cutoff) {
			kept = append(kept, t)
		}
	}
	removed := len(*set) - len(kept)
	*set = kept
	return removed
}
