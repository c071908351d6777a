package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/ledgerly/backend"
)

func TestUserTokensReplaceKeepsSingleRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := auth.NewRepositoryManager(db)

	user := registerTestUser(t, repo, "pepe@example.com")
	expires := time.Now().Add(time.Hour)

	first, err := repo.UserTokens().Replace(ctx, user.ID, auth.PurposeSessionRefresh, "token-one", expires)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)

	second, err := repo.UserTokens().Replace(ctx, user.ID, auth.PurposeSessionRefresh, "token-two", expires)
	require.NoError(t, err)

	// Exactly one row per (user, purpose), holding the latest token.
	count, err := db.NewSelect().Model((*auth.UserToken)(nil)).
		Where("user_id = ?", user.ID).
		Where("purpose = ?", auth.PurposeSessionRefresh).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := repo.UserTokens().Find(ctx, user.ID, "token-two", auth.PurposeSessionRefresh)
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	_, err = repo.UserTokens().Find(ctx, user.ID, "token-one", auth.PurposeSessionRefresh)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUserTokensReplaceConcurrentKeepsSingleRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := auth.NewRepositoryManager(db)

	user := registerTestUser(t, repo, "pepe@example.com")
	expires := time.Now().Add(time.Hour)

	// Concurrent reset requests race through the transactional
	// delete-then-create; the invariant must hold regardless of ordering.
	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			token := fmt.Sprintf("reset-token-%d", n)
			_, err := repo.UserTokens().Replace(ctx, user.ID, auth.PurposePasswordReset, token, expires)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	count, err := db.NewSelect().Model((*auth.UserToken)(nil)).
		Where("user_id = ?", user.ID).
		Where("purpose = ?", auth.PurposePasswordReset).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserTokensPurposesAreIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := auth.NewRepositoryManager(db)

	user := registerTestUser(t, repo, "pepe@example.com")
	expires := time.Now().Add(time.Hour)

	_, err := repo.UserTokens().Replace(ctx, user.ID, auth.PurposeSessionRefresh, "refresh-token", expires)
	require.NoError(t, err)
	_, err = repo.UserTokens().Replace(ctx, user.ID, auth.PurposePasswordReset, "reset-token", expires)
	require.NoError(t, err)

	// Replacing one purpose leaves the other untouched.
	_, err = repo.UserTokens().Find(ctx, user.ID, "refresh-token", auth.PurposeSessionRefresh)
	assert.NoError(t, err)
	_, err = repo.UserTokens().Find(ctx, user.ID, "reset-token", auth.PurposePasswordReset)
	assert.NoError(t, err)

	// A token only matches under its own purpose.
	_, err = repo.UserTokens().Find(ctx, user.ID, "refresh-token", auth.PurposePasswordReset)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUserTokensDeleteForPurpose(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := auth.NewRepositoryManager(db)

	user := registerTestUser(t, repo, "pepe@example.com")
	expires := time.Now().Add(time.Hour)

	_, err := repo.UserTokens().Replace(ctx, user.ID, auth.PurposeSessionRefresh, "refresh-token", expires)
	require.NoError(t, err)

	require.NoError(t, repo.UserTokens().DeleteForPurpose(ctx, user.ID, auth.PurposeSessionRefresh))

	_, err = repo.UserTokens().Find(ctx, user.ID, "refresh-token", auth.PurposeSessionRefresh)
	assert.True(t, repository.IsRecordNotFound(err))

	// Deleting with nothing to delete is not an error.
	assert.NoError(t, repo.UserTokens().DeleteForPurpose(ctx, user.ID, auth.PurposeSessionRefresh))
}

func TestUserTokensExistsForPurpose(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := auth.NewRepositoryManager(db)

	user := registerTestUser(t, repo, "pepe@example.com")

	live, err := repo.UserTokens().ExistsForPurpose(ctx, user.ID, auth.PurposeSessionRefresh)
	require.NoError(t, err)
	assert.False(t, live)

	_, err = repo.UserTokens().Replace(ctx, user.ID, auth.PurposeSessionRefresh, "refresh-token", time.Now().Add(time.Hour))
	require.NoError(t, err)

	live, err = repo.UserTokens().ExistsForPurpose(ctx, user.ID, auth.PurposeSessionRefresh)
	require.NoError(t, err)
	assert.True(t, live)

	// An expired row does not count as a live session.
	_, err = repo.UserTokens().Replace(ctx, user.ID, auth.PurposeSessionRefresh, "stale-token", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	live, err = repo.UserTokens().ExistsForPurpose(ctx, user.ID, auth.PurposeSessionRefresh)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestUserTokensConsume(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := auth.NewRepositoryManager(db)

	user := registerTestUser(t, repo, "pepe@example.com")
	expires := time.Now().Add(time.Hour)

	record, err := repo.UserTokens().Replace(ctx, user.ID, auth.PurposePasswordReset, "reset-token", expires)
	require.NoError(t, err)

	require.NoError(t, repo.UserTokens().Consume(ctx, record.ID))

	_, err = repo.UserTokens().Find(ctx, user.ID, "reset-token", auth.PurposePasswordReset)
	assert.True(t, repository.IsRecordNotFound(err))
}
