package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"btg-funds/internal/core/domain"
	"btg-funds/internal/pkg/jwt"
	"btg-funds/internal/pkg/metrics"
	"btg-funds/internal/pkg/password"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxAttempts bounds optimistic read-modify-write retries
const DefaultMaxAttempts = 3

const dummyPassword = "btg-funds-timing-equalizer"

// AuthService handles authentication business logic
type AuthService struct {
	users       UserStore
	hasher      PasswordHasher
	tokens      *TokenManager
	maxAttempts int
	log         zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new auth service
func NewAuthService(
	users UserStore,
	hasher PasswordHasher,
	tokens *TokenManager,
	maxAttempts int,
	logger zerolog.Logger,
) *AuthService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &AuthService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		maxAttempts: maxAttempts,
		log:         logger.With().Str("component", "auth").Logger(),
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult is returned by register, login and refresh
type AuthResult struct {
	UserID       string      `json:"user_id"`
	Role         domain.Role `json:"role"`
	AccessToken  string      `json:"access_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
}

// Register creates a user and signs them in
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (res *AuthResult, err error) {
	defer func() { metrics.RecordAuth("register", metrics.Outcome(err)) }()

	// 1. Validate input
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, domain.ErrUsernameRequired
	}
	if !password.ValidatePassword(input.Password) {
		return nil, domain.ErrWeakPassword
	}
	role := domain.RoleClient
	if r := strings.ToLower(strings.TrimSpace(input.Role)); r != "" {
		role = domain.Role(r)
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	// 2. Check if username already exists
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// 3. Hash password
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 4. Build user with its first refresh token
	now := s.tokens.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	refresh, rec, err := s.tokens.IssueRefreshToken()
	if err != nil {
		return nil, err
	}
	user.RefreshTokens = domain.TokenSet{rec}

	// 5. Persist; a concurrent registration loses on the unique index
	if err := s.users.Add(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msgf("✅ User registered: %s (%s)", user.Username, user.Role)

	return s.result(user, refresh)
}

// Login authenticates a user and appends a new refresh token
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (res *AuthResult, err error) {
	defer func() { metrics.RecordAuth("login", metrics.Outcome(err)) }()

	// 1. Find user by username
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.hasher.Verify(input.Password, s.dummy())
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Verify password
	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	// 3. Prune expired tokens and append a fresh one
	var refresh string
	user, err = s.modifyUser(ctx, user, s.byID(user.ID), func(u *domain.User) error {
		s.tokens.Prune(&u.RefreshTokens)
		plain, rec, err := s.tokens.IssueRefreshToken()
		if err != nil {
			return err
		}
		u.RefreshTokens = append(u.RefreshTokens, rec)
		refresh = plain
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msgf("✅ User logged in: %s", user.Username)

	return s.result(user, refresh)
}

// Refresh rotates a refresh token and issues a new access token.
// The owner is resolved through the token digest index, never from an access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (res *AuthResult, err error) {
	defer func() { metrics.RecordAuth("refresh", metrics.Outcome(err)) }()

	if refreshToken == "" {
		return nil, domain.ErrTokenInvalid
	}
	digest := password.HashToken(refreshToken)

	load := func(ctx context.Context) (*domain.User, error) {
		u, err := s.users.GetByRefreshToken(ctx, digest)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTokenOwnerGone
		}
		return u, err
	}

	var (
		rotated string
		reused  bool
	)
	user, err := s.modifyUser(ctx, nil, load, func(u *domain.User) error {
		reused = false
		s.tokens.Prune(&u.RefreshTokens)
		plain, err := s.tokens.RotateRefreshToken(refreshToken, &u.RefreshTokens)
		if errors.Is(err, domain.ErrTokenReused) {
			// persist the chain revocation, then fail
			reused = true
			return nil
		}
		if err != nil {
			return err
		}
		rotated = plain
		return nil
	})
	if err != nil {
		return nil, err
	}
	if reused {
		s.log.Warn().Str("user_id", user.ID).Msg("⚠️ Refresh token reuse detected, token chain revoked")
		return nil, domain.ErrTokenReused
	}

	s.log.Debug().Str("user_id", user.ID).Msg("Token refreshed")

	return s.result(user, rotated)
}

// Revoke revokes one refresh token of the user, or all of them when token is empty
func (s *AuthService) Revoke(ctx context.Context, userID, token string) (err error) {
	defer func() { metrics.RecordAuth("revoke", metrics.Outcome(err)) }()

	revoked := 0
	_, err = s.modifyUser(ctx, nil, s.byID(userID), func(u *domain.User) error {
		if token == "" {
			revoked = s.tokens.RevokeAll(&u.RefreshTokens)
			return nil
		}
		revoked = 1
		return s.tokens.RevokeOne(&u.RefreshTokens, token)
	})
	if err != nil {
		return err
	}

	if token == "" {
		s.log.Info().Str("user_id", userID).Msgf("✅ All sessions revoked (%d tokens)", revoked)
	} else {
		s.log.Info().Str("user_id", userID).Msg("✅ Refresh token revoked")
	}
	return nil
}

// ValidateAccessToken validates an access token
func (s *AuthService) ValidateAccessToken(accessToken string) (*jwt.Claims, error) {
	return s.tokens.ValidateAccessToken(accessToken)
}

// GetUserByID gets a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.byID(userID)(ctx)
}

func (s *AuthService) byID(userID string) func(context.Context) (*domain.User, error) {
	return func(ctx context.Context) (*domain.User, error) {
		u, err := s.users.GetByID(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return u, err
	}
}

// modifyUser applies mutate and persists the user, retrying from a fresh read on
// version conflicts. A non-nil user is used for the first attempt instead of loading.
func (s *AuthService) modifyUser(
	ctx context.Context,
	user *domain.User,
	load func(context.Context) (*domain.User, error),
	mutate func(*domain.User) error,
) (*domain.User, error) {
	for attempt := 1; ; attempt++ {
		if user == nil {
			u, err := load(ctx)
			if err != nil {
				return nil, err
			}
			user = u
		}

		if err := mutate(user); err != nil {
			return nil, err
		}
		user.UpdatedAt = s.tokens.now()

		err := s.users.Update(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= s.maxAttempts {
			s.log.Warn().Str("user_id", user.ID).Int("attempts", attempt).Msg("Giving up after version conflicts")
			return nil, domain.ErrConcurrentWrite
		}
		user = nil
	}
}

func (s *AuthService) result(user *domain.User, refresh string) (*AuthResult, error) {
	access, expiresAt, err := s.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		UserID:       user.ID,
		Role:         user.Role,
		AccessToken:  access,
		ExpiresAt:    expiresAt,
		RefreshToken: refresh,
	}, nil
}

// dummy returns a hash to verify against for unknown usernames
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to compute dummy password hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
