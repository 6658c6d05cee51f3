package services

import (
	"testing"
	"time"

	"btg-funds/internal/core/domain"
	"btg-funds/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestTokenManager(reuseDetection bool) (*TokenManager, *time.Time) {
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewTokenManager(TokenManagerConfig{
		Secret:         "test-secret",
		Issuer:         "btg-funds-test",
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     7 * 24 * time.Hour,
		ReuseDetection: reuseDetection,
	})
	m.now = func() time.Time { return clock }
	return m, &clock
}

func issueInto(t *testing.T, m *TokenManager, set *domain.TokenSet) string {
	t.Helper()
	plain, rec, err := m.IssueRefreshToken()
	require.NoError(t, err)
	*set = append(*set, rec)
	return plain
}

func TestIssueAccessToken(t *testing.T) {
	m, _ := newTestTokenManager(true)
	m.now = time.Now

	token, expiresAt, err := m.IssueAccessToken("user-1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 2*time.Second)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "btg-funds-test", claims.Issuer)
}

func TestIssueRefreshToken(t *testing.T) {
	m, clock := newTestTokenManager(true)

	plain, rec, err := m.IssueRefreshToken()
	require.NoError(t, err)

	assert.NotEmpty(t, plain)
	assert.Equal(t, password.HashToken(plain), rec.TokenHash)
	assert.NotEqual(t, plain, rec.TokenHash)
	assert.Equal(t, clock.Add(7*24*time.Hour), rec.ExpiresAt)
	assert.False(t, rec.Revoked)
	assert.Empty(t, rec.ReplacedBy)
	assert.True(t, rec.IsActive(*clock))

	other, _, err := m.IssueRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, plain, other)
}

func TestRotateRefreshToken(t *testing.T) {
	m, _ := newTestTokenManager(true)
	var set domain.TokenSet
	first := issueInto(t, m, &set)

	second, err := m.RotateRefreshToken(first, &set)
	require.NoError(t, err)
	require.Len(t, set, 2)

	old := set[set.Index(password.HashToken(first))]
	assert.True(t, old.Revoked)
	assert.NotNil(t, old.RevokedAt)
	assert.Equal(t, password.HashToken(second), old.ReplacedBy)

	next := set[set.Index(password.HashToken(second))]
	assert.False(t, next.Revoked)
}

func TestRotateRefreshToken_Unknown(t *testing.T) {
	m, _ := newTestTokenManager(true)
	var set domain.TokenSet
	issueInto(t, m, &set)

	_, err := m.RotateRefreshToken("does-not-exist", &set)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	assert.Len(t, set, 1)
}

func TestRotateRefreshToken_Expired(t *testing.T) {
	m, clock := newTestTokenManager(true)
	var set domain.TokenSet
	plain := issueInto(t, m, &set)

	*clock = clock.Add(8 * 24 * time.Hour)

	_, err := m.RotateRefreshToken(plain, &set)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRotateRefreshToken_RevokedWithoutSuccessor(t *testing.T) {
	m, _ := newTestTokenManager(true)
	var set domain.TokenSet
	plain := issueInto(t, m, &set)
	require.NoError(t, m.RevokeOne(&set, plain))

	_, err := m.RotateRefreshToken(plain, &set)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRotateRefreshToken_ReuseRevokesChain(t *testing.T) {
	m, _ := newTestTokenManager(true)
	var set domain.TokenSet
	first := issueInto(t, m, &set)
	unrelated := issueInto(t, m, &set)

	second, err := m.RotateRefreshToken(first, &set)
	require.NoError(t, err)
	third, err := m.RotateRefreshToken(second, &set)
	require.NoError(t, err)

	_, err = m.RotateRefreshToken(first, &set)
	require.ErrorIs(t, err, domain.ErrTokenReused)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
	assert.Equal(t, domain.ErrTokenInvalid.Error(), err.Error())

	assert.True(t, set[set.Index(password.HashToken(third))].Revoked)
	assert.False(t, set[set.Index(password.HashToken(unrelated))].Revoked)

	_, err = m.RotateRefreshToken(third, &set)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRotateRefreshToken_ReuseDetectionDisabled(t *testing.T) {
	m, _ := newTestTokenManager(false)
	var set domain.TokenSet
	first := issueInto(t, m, &set)

	second, err := m.RotateRefreshToken(first, &set)
	require.NoError(t, err)

	_, err = m.RotateRefreshToken(first, &set)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	assert.False(t, set[set.Index(password.HashToken(second))].Revoked)
}

func TestRevokeAll(t *testing.T) {
	m, _ := newTestTokenManager(true)
	var set domain.TokenSet
	a := issueInto(t, m, &set)
	issueInto(t, m, &set)
	issueInto(t, m, &set)
	require.NoError(t, m.RevokeOne(&set, a))

	assert.Equal(t, 2, m.RevokeAll(&set))
	assert.Equal(t, 0, set.ActiveCount(m.now()))
	assert.Equal(t, 0, m.RevokeAll(&set))
}

func TestRevokeOne(t *testing.T) {
	m, _ := newTestTokenManager(true)
	var set domain.TokenSet
	a := issueInto(t, m, &set)
	b := issueInto(t, m, &set)

	require.NoError(t, m.RevokeOne(&set, a))
	require.NoError(t, m.RevokeOne(&set, a))
	assert.True(t, set[set.Index(password.HashToken(a))].Revoked)
	assert.False(t, set[set.Index(password.HashToken(b))].Revoked)

	assert.ErrorIs(t, m.RevokeOne(&set, "missing"), domain.ErrTokenNotFound)
}

func TestPrune(t *testing.T) {
	m, clock := newTestTokenManager(true)
	var set domain.TokenSet
	issueInto(t, m, &set)
	*clock = clock.Add(6 * 24 * time.Hour)
	fresh := issueInto(t, m, &set)

	// day 8: the first token has expired but is still retained
	*clock = clock.Add(2 * 24 * time.Hour)
	assert.Zero(t, m.Prune(&set))
	require.Len(t, set, 2)

	// day 15: past expiry plus retention for the first token only
	*clock = clock.Add(7 * 24 * time.Hour)
	assert.Equal(t, 1, m.Prune(&set))
	require.Len(t, set, 1)
	assert.Equal(t, password.HashToken(fresh), set[0].TokenHash)
	assert.Equal(t, 7*24*time.Hour, m.Retention())
}

func TestRotateRefreshToken_SingleUseProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m, _ := newTestTokenManager(rapid.Bool().Draw(rt, "reuseDetection"))
		var set domain.TokenSet
		plain, rec, err := m.IssueRefreshToken()
		if err != nil {
			rt.Fatal(err)
		}
		set = append(set, rec)

		used := []string{}
		current := plain
		rotations := rapid.IntRange(1, 8).Draw(rt, "rotations")
		for i := 0; i < rotations; i++ {
			next, err := m.RotateRefreshToken(current, &set)
			if err != nil {
				rt.Fatalf("rotation %d failed: %v", i, err)
			}
			used = append(used, current)
			current = next
		}

		replay := used[rapid.IntRange(0, len(used)-1).Draw(rt, "replay")]
		if _, err := m.RotateRefreshToken(replay, &set); domain.KindOf(err) != domain.KindUnauthorized {
			rt.Fatalf("replayed token rotated again: %v", err)
		}
		if set.ActiveCount(m.now()) > 1 {
			rt.Fatalf("more than one active token in a single chain")
		}
	})
}
