package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandnet/console/internal/models"
	"github.com/strandnet/console/internal/repositories"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration setup failed: %v\n", err)
		os.Exit(1)
	}
	testDB = db

	code := m.Run()
	testDB.Teardown(ctx)
	os.Exit(code)
}

func freshRepo(t *testing.T) *repositories.StaffRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	require.NoError(t, testDB.TruncateAll(context.Background()))
	return repositories.NewStaffRepository(testDB.DB)
}

func TestStaffRepository_CreateAndGet(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	created, err := CreateTestStaff(ctx, repo, "alice", models.RoleAdmin, models.StatusActive)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(1), created.TokenVersion)
	assert.Nil(t, created.LastSeenAt)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, models.RoleAdmin, got.Role)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStaffRepository_DuplicateUsername(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	_, err := CreateTestStaff(ctx, repo, "alice", models.RoleStaff, models.StatusActive)
	require.NoError(t, err)

	_, err = CreateTestStaff(ctx, repo, "alice", models.RoleStaff, models.StatusActive)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestStaffRepository_BumpTokenVersion(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	created, err := CreateTestStaff(ctx, repo, "alice", models.RoleStaff, models.StatusActive)
	require.NoError(t, err)

	require.NoError(t, repo.BumpTokenVersion(ctx, created.ID))

	version, err := repo.GetTokenVersion(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.TokenVersion+1, version)

	assert.ErrorIs(t, repo.BumpTokenVersion(ctx, 99999), models.ErrNotFound)
}

func TestStaffRepository_UpdatePasswordBumpsVersionAndClearsSetup(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.StaffIdentity{
		Username:     "alice",
		PasswordHash: "old-hash",
		Role:         models.RoleStaff,
		Status:       models.StatusActive,
		SetupMode:    true,
	})
	require.NoError(t, err)
	require.True(t, created.SetupMode)

	require.NoError(t, repo.UpdatePassword(ctx, created.ID, "new-hash"))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Equal(t, created.TokenVersion+1, got.TokenVersion)
	assert.False(t, got.SetupMode)
}

func TestStaffRepository_SetTOTPSecret(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	created, err := CreateTestStaff(ctx, repo, "alice", models.RoleStaff, models.StatusActive)
	require.NoError(t, err)

	secret := "JBSWY3DPEHPK3PXP"
	require.NoError(t, repo.SetTOTPSecret(ctx, created.ID, &secret))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TOTPSecret)
	assert.Equal(t, secret, *got.TOTPSecret)
	assert.Equal(t, created.TokenVersion+1, got.TokenVersion)

	require.NoError(t, repo.SetTOTPSecret(ctx, created.ID, nil))

	got, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TOTPSecret)
}

func TestStaffRepository_TouchLastSeen(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	created, err := CreateTestStaff(ctx, repo, "alice", models.RoleStaff, models.StatusActive)
	require.NoError(t, err)

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.TouchLastSeen(ctx, created.ID, at))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSeenAt)
	assert.WithinDuration(t, at, *got.LastSeenAt, time.Second)
}

func TestStaffRepository_LastAdminRoleGuard(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	admin, err := CreateTestStaff(ctx, repo, "alice", models.RoleAdmin, models.StatusActive)
	require.NoError(t, err)

	_, err = repo.UpdateRoleGuarded(ctx, admin.ID, models.RoleStaff)
	assert.ErrorIs(t, err, models.ErrLastAdminProtected)

	// A second active admin lifts the guard.
	_, err = CreateTestStaff(ctx, repo, "bob", models.RoleAdmin, models.StatusActive)
	require.NoError(t, err)

	updated, err := repo.UpdateRoleGuarded(ctx, admin.ID, models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, updated.Role)
	assert.Equal(t, admin.TokenVersion+1, updated.TokenVersion)
}

func TestStaffRepository_LastAdminStatusGuard(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	admin, err := CreateTestStaff(ctx, repo, "alice", models.RoleAdmin, models.StatusActive)
	require.NoError(t, err)

	_, err = repo.UpdateStatusGuarded(ctx, admin.ID, models.StatusDisabled)
	assert.ErrorIs(t, err, models.ErrLastAdminProtected)

	// Disabled admins do not count toward the guard.
	disabled, err := CreateTestStaff(ctx, repo, "bob", models.RoleAdmin, models.StatusDisabled)
	require.NoError(t, err)
	_ = disabled

	_, err = repo.UpdateStatusGuarded(ctx, admin.ID, models.StatusDisabled)
	assert.ErrorIs(t, err, models.ErrLastAdminProtected)
}

func TestStaffRepository_ArchivedIsTerminal(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	staff, err := CreateTestStaff(ctx, repo, "alice", models.RoleStaff, models.StatusActive)
	require.NoError(t, err)

	archived, err := repo.UpdateStatusGuarded(ctx, staff.ID, models.StatusArchived)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, archived.Status)

	_, err = repo.UpdateStatusGuarded(ctx, staff.ID, models.StatusActive)
	assert.ErrorIs(t, err, models.ErrConflict)
}

// Two concurrent demotions against a pool of two admins must not both
// succeed. The guard takes row locks on every active admin before counting,
// so the second transaction observes a count of one.
func TestStaffRepository_ConcurrentDemotionKeepsOneAdmin(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	a, err := CreateTestStaff(ctx, repo, "alice", models.RoleAdmin, models.StatusActive)
	require.NoError(t, err)
	b, err := CreateTestStaff(ctx, repo, "bob", models.RoleAdmin, models.StatusActive)
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = repo.UpdateRoleGuarded(ctx, a.ID, models.RoleStaff)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = repo.UpdateRoleGuarded(ctx, b.ID, models.RoleStaff)
	}()
	wg.Wait()

	protected := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, models.ErrLastAdminProtected)
			protected++
		}
	}
	assert.GreaterOrEqual(t, protected, 1, "at most one demotion may succeed")

	count, err := repo.CountActiveAdmins(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))
}

func TestStaffRepository_BootstrapAdminCounts(t *testing.T) {
	repo := freshRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.StaffIdentity{
		Username:      "bootstrap",
		PasswordHash:  "hash",
		Role:          models.RoleAdmin,
		Status:        models.StatusActive,
		BootstrapMode: true,
	})
	require.NoError(t, err)

	total, err := repo.CountActiveAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	nonBootstrap, err := repo.CountActiveNonBootstrapAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), nonBootstrap)

	_, err = CreateTestStaff(ctx, repo, "alice", models.RoleAdmin, models.StatusActive)
	require.NoError(t, err)

	nonBootstrap, err = repo.CountActiveNonBootstrapAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nonBootstrap)
}
