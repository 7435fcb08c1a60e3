package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandnet/console/internal/models"
)

const testSecret = "test-signing-secret-0123456789abcdef"

// mockVersionSource implements TokenVersionSource with a function field.
type mockVersionSource struct {
	GetTokenVersionFunc func(ctx context.Context, staffID int64) (int64, error)
}

func (m *mockVersionSource) GetTokenVersion(ctx context.Context, staffID int64) (int64, error) {
	return m.GetTokenVersionFunc(ctx, staffID)
}

func fixedVersionSource(version int64) *mockVersionSource {
	return &mockVersionSource{
		GetTokenVersionFunc: func(ctx context.Context, staffID int64) (int64, error) {
			return version, nil
		},
	}
}

func testIdentity(id, tokenVersion int64) *models.StaffIdentity {
	return &models.StaffIdentity{
		ID:           id,
		Username:     "bob",
		Role:         models.RoleStaff,
		Status:       models.StatusActive,
		TokenVersion: tokenVersion,
	}
}

func TestTokenIssuer_IssueAndValidate(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 8*time.Hour, fixedVersionSource(5), 2*time.Second)

	token, err := issuer.Issue(testIdentity(42, 5))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.StaffID)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, int64(5), claims.TokenVersion)
	assert.NotEmpty(t, claims.ID, "every token should carry a unique JTI")
}

func TestTokenIssuer_VersionBumpKillsToken(t *testing.T) {
	current := int64(5)
	source := &mockVersionSource{
		GetTokenVersionFunc: func(ctx context.Context, staffID int64) (int64, error) {
			return current, nil
		},
	}
	issuer := NewTokenIssuer(testSecret, 8*time.Hour, source, 2*time.Second)

	token, err := issuer.Issue(testIdentity(7, 5))
	require.NoError(t, err)

	_, err = issuer.Validate(context.Background(), token)
	require.NoError(t, err)

	// Bump the stored version; the token's embedded version is now stale.
	current = 6

	_, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestTokenIssuer_ExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, -1*time.Minute, fixedVersionSource(1), 2*time.Second)

	token, err := issuer.Issue(testIdentity(1, 1))
	require.NoError(t, err)

	_, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 8*time.Hour, fixedVersionSource(1), 2*time.Second)
	other := NewTokenIssuer("another-secret-another-secret-xx", 8*time.Hour, fixedVersionSource(1), 2*time.Second)

	token, err := other.Issue(testIdentity(1, 1))
	require.NoError(t, err)

	_, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestTokenIssuer_MalformedToken(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 8*time.Hour, fixedVersionSource(1), 2*time.Second)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.Validate(context.Background(), token)
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	}
}

func TestTokenIssuer_UnknownIdentity(t *testing.T) {
	source := &mockVersionSource{
		GetTokenVersionFunc: func(ctx context.Context, staffID int64) (int64, error) {
			return 0, models.ErrNotFound
		},
	}
	issuer := NewTokenIssuer(testSecret, 8*time.Hour, source, 2*time.Second)

	token, err := issuer.Issue(testIdentity(99, 1))
	require.NoError(t, err)

	_, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestTokenIssuer_StoreErrorFailsClosed(t *testing.T) {
	source := &mockVersionSource{
		GetTokenVersionFunc: func(ctx context.Context, staffID int64) (int64, error) {
			return 0, context.DeadlineExceeded
		},
	}
	issuer := NewTokenIssuer(testSecret, 8*time.Hour, source, 2*time.Second)

	token, err := issuer.Issue(testIdentity(3, 1))
	require.NoError(t, err)

	_, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid, "store failures must reject the token")
}
