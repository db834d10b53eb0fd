package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/suitewaste/internal/auth"
	"github.com/dmitrijs2005/suitewaste/internal/client/models"
	"github.com/dmitrijs2005/suitewaste/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/hashx"
	smodels "github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func openStore(t *testing.T) (*Store, *MemoryTokenStore) {
	t.Helper()
	tokens := &MemoryTokenStore{}
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "local.db"), Options{
		Secret: testSecret,
		Tokens: tokens,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, tokens
}

func counts(t *testing.T, s *Store) map[string]int {
	t.Helper()
	ctx := context.Background()
	out := map[string]int{}
	var err error
	out["users"], err = s.Users().Count(ctx)
	require.NoError(t, err)
	out["tasks"], err = s.Tasks().Count(ctx)
	require.NoError(t, err)
	out["payments"], err = s.Payments().Count(ctx)
	require.NoError(t, err)
	out["complianceLogs"], err = s.ComplianceLogs().Count(ctx)
	require.NoError(t, err)
	out["trainingModules"], err = s.TrainingModules().Count(ctx)
	require.NoError(t, err)
	out["aiMessages"], err = s.AIMessages().Count(ctx)
	require.NoError(t, err)
	return out
}

var seededCounts = map[string]int{
	"users": 5, "tasks": 20, "payments": 15, "complianceLogs": 25, "trainingModules": 4, "aiMessages": 1,
}

func TestSeedIfEmpty_RepeatedCallsAreIdempotent(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SeedIfEmpty(ctx))
	}
	assert.Equal(t, seededCounts, counts(t, s))

	seededAt, err := s.Metadata().GetTime(ctx, metadata.KeySeededAt)
	require.NoError(t, err)
	assert.False(t, seededAt.IsZero())
}

func TestSeedIfEmpty_ConcurrentCallsDoNotDuplicate(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.SeedIfEmpty(ctx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, seededCounts, counts(t, s))
}

func TestSeedIfEmpty_AfterPartialSeed(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Users().Add(ctx, &models.User{
		ID: "pre-manager", Email: "Manager@SuiteWaste.os", PasswordHash: "x",
		Role: models.RoleOperationsManager, Permissions: []string{"operations"},
	}))

	require.NoError(t, s.SeedIfEmpty(ctx))
	assert.Equal(t, seededCounts, counts(t, s))

	tasks, err := s.Tasks().Where(ctx, "assignedTo", "pre-manager")
	require.NoError(t, err)
	assert.Len(t, tasks, 20, "the pre-existing anchor unblocks dependent seeding")
}

func TestSeedIfEmpty_NoAnchorSkipsDependentGroups(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Users().Add(ctx, &models.User{
		ID: "m", Email: "manager@suitewaste.os", Role: models.RoleExecutive, Permissions: []string{},
	}))

	require.NoError(t, s.SeedIfEmpty(ctx))

	c := counts(t, s)
	assert.Equal(t, 5, c["users"])
	assert.Zero(t, c["tasks"])
	assert.Zero(t, c["aiMessages"])

	seededAt, err := s.Metadata().GetTime(ctx, metadata.KeySeededAt)
	require.NoError(t, err)
	assert.True(t, seededAt.IsZero())
}

func TestSeedIfEmpty_KeepsNonEmptyGroups(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Payments().Add(ctx, smodels.Payment{ID: "p-own", Amount: 1}))
	require.NoError(t, s.SeedIfEmpty(ctx))

	n, err := s.Payments().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSignIn_ManagerCredentials(t *testing.T) {
	s, tokens := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.SeedIfEmpty(ctx))

	u, err := s.SignIn(ctx, "manager@suitewaste.os", "Auditor123")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, models.RoleOperationsManager, u.Role)
	assert.Contains(t, u.Permissions, "payments")

	token, _ := tokens.Get()
	claims, err := auth.ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, token, s.Token())
}

func TestSignIn_WrongPasswordCreatesNoSession(t *testing.T) {
	s, tokens := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.SeedIfEmpty(ctx))

	u, err := s.SignIn(ctx, "manager@suitewaste.os", "wrong")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = s.SignIn(ctx, "nobody@suitewaste.os", "Auditor123")
	require.NoError(t, err)
	assert.Nil(t, u)

	n, err := s.Sessions().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	token, _ := tokens.Get()
	assert.Empty(t, token)
}

func TestSignIn_SingleActiveSession(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.SeedIfEmpty(ctx))

	_, err := s.SignIn(ctx, "manager@suitewaste.os", "Auditor123")
	require.NoError(t, err)
	_, err = s.SignIn(ctx, "auditor@suitewaste.os", "Auditor123")
	require.NoError(t, err)

	n, err := s.Sessions().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cur, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, "auditor@suitewaste.os", cur.Email)
}

func TestSignIn_Argon2Hasher(t *testing.T) {
	h, err := hashx.New(hashx.KindArgon2, "")
	require.NoError(t, err)
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "a.db"), Options{Hasher: h})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SeedIfEmpty(ctx))
	u, err := s.SignIn(ctx, "trainer@suitewaste.os", "Auditor123")
	require.NoError(t, err)
	require.NotNil(t, u)
}

func TestCurrentUser_NoSessionAndOrphan(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	u, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, s.Sessions().Add(ctx, &models.Session{ID: "s", UserID: "ghost", Token: "t", CreatedAt: 1}))
	u, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	n, err := s.Sessions().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "orphan session is not removed")
}

func TestSignOut(t *testing.T) {
	s, tokens := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.SeedIfEmpty(ctx))

	require.NoError(t, s.SignOut(ctx))

	_, err := s.SignIn(ctx, "field@suitewaste.os", "Auditor123")
	require.NoError(t, err)
	require.NoError(t, s.SignOut(ctx))

	u, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	token, _ := tokens.Get()
	assert.Empty(t, token)
}

func TestSignOut_WithoutStoredToken(t *testing.T) {
	s, tokens := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.SeedIfEmpty(ctx))

	_, err := s.SignIn(ctx, "manager@suitewaste.os", "Auditor123")
	require.NoError(t, err)
	require.NoError(t, tokens.Clear())

	u, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u, "the session outlives the token file")

	require.NoError(t, s.SignOut(ctx))

	u, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	n, err := s.Sessions().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClear_WipesEverything(t *testing.T) {
	s, tokens := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.SeedIfEmpty(ctx))
	_, err := s.SignIn(ctx, "manager@suitewaste.os", "Auditor123")
	require.NoError(t, err)
	_, err = s.Outbox().Enqueue(ctx, smodels.TableTasks, smodels.ActionCreate, []byte(`{"id":"x"}`))
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))

	for name, n := range counts(t, s) {
		assert.Zero(t, n, name)
	}
	n, err := s.Outbox().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	token, _ := tokens.Get()
	assert.Empty(t, token)
}

func TestTable_Lookup(t *testing.T) {
	s, _ := openStore(t)

	tbl, err := s.Table(smodels.TableTrainingModules)
	require.NoError(t, err)
	assert.Equal(t, "training_modules", tbl.Name())

	_, err = s.Table("users")
	require.ErrorIs(t, err, common.ErrorUnknownTable)
}
