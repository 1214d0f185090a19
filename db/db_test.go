package db

import (
	"context"
	"testing"
	"time"

	"github.com/deemkeen/kinship/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestDB creates a migrated in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	db, err := Open(":memory:", zap.NewNop())
	require.NoError(t, err, "Failed to open in-memory database")
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestAccounts(t *testing.T, db *DB, npids ...string) {
	for _, npid := range npids {
		_, err := db.CreateAccount(context.Background(), npid)
		require.NoError(t, err)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.RunMigrations())
}

func TestCreateAndReadAccount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	acc, err := db.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	got, err := db.ReadAccountByNpid(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, acc.Id, got.Id)
	assert.Equal(t, "alice", got.Npid)
	assert.True(t, got.LastActivity.IsZero())
}

func TestCreateAccountDuplicate(t *testing.T) {
	db := setupTestDB(t)
	createTestAccounts(t, db, "alice")

	_, err := db.CreateAccount(context.Background(), "alice")
	assert.Error(t, err)
}

func TestReadAccountNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.ReadAccountByNpid(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserExists(t *testing.T) {
	db := setupTestDB(t)
	createTestAccounts(t, db, "alice")

	ok, err := db.UserExists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.UserExists(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTouchLastActivity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestAccounts(t, db, "alice")

	at := time.Unix(1700000000, 0)
	require.NoError(t, db.TouchLastActivity(ctx, "alice", at))

	acc, err := db.ReadAccountByNpid(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, at.Unix(), acc.LastActivity.Unix())
}

func TestSearchAccounts(t *testing.T) {
	db := setupTestDB(t)
	createTestAccounts(t, db, "Alice", "alicia", "bob", "malice")

	got, err := db.SearchAccounts(context.Background(), "ALI", "alicia", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "malice"}, got)

	got, err = db.SearchAccounts(context.Background(), "ali", "", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTokens(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestAccounts(t, db, "alice")

	require.NoError(t, db.CreateToken(ctx, "alice", "tok-1"))

	npid, err := db.ReadNpidByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", npid)

	_, err = db.ReadNpidByToken(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	require.NoError(t, db.DeleteTokens(ctx, "alice"))
	_, err = db.ReadNpidByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestApplyRelationChanges(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestAccounts(t, db, "alice", "bob", "carol")
	now := time.Unix(1700000000, 0)

	err := db.ApplyRelationChanges(ctx, []domain.RelationChange{
		domain.Insert("alice", "bob", domain.KindRequestSent, now),
		domain.Insert("bob", "alice", domain.KindRequestReceived, now),
		domain.Insert("alice", "carol", domain.KindFriend, now),
		domain.Insert("carol", "alice", domain.KindFriend, now),
	})
	require.NoError(t, err)

	data, err := db.ReadFriendsData(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, data.Has(domain.KindRequestSent, "bob"))
	assert.True(t, data.Has(domain.KindFriend, "carol"))
	assert.Empty(t, data.Received)
	assert.Empty(t, data.Blocked)

	rel, err := db.Relationship(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RelationshipRequestReceived, rel)

	friends, err := db.FriendsOf(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, friends)

	// Accept: request rows go away, friend rows appear.
	err = db.ApplyRelationChanges(ctx, []domain.RelationChange{
		domain.Delete("alice", "bob", domain.KindRequestSent),
		domain.Delete("bob", "alice", domain.KindRequestReceived),
		domain.Insert("alice", "bob", domain.KindFriend, now),
		domain.Insert("bob", "alice", domain.KindFriend, now),
	})
	require.NoError(t, err)

	friends, err = db.FriendsOf(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, friends)

	rel, err = db.Relationship(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.RelationshipFriends, rel)
}

func TestApplyRelationChangesDuplicateInsertIgnored(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	change := domain.Insert("alice", "bob", domain.KindBlocked, now)
	require.NoError(t, db.ApplyRelationChanges(ctx, []domain.RelationChange{change}))
	require.NoError(t, db.ApplyRelationChanges(ctx, []domain.RelationChange{change}))

	data, err := db.ReadFriendsData(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, data.Blocked, 1)
}

func TestRelationshipNoneAndSelf(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rel, err := db.Relationship(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.RelationshipNone, rel)

	rel, err = db.Relationship(ctx, "alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RelationshipSelf, rel)
}

func TestTrophies(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	summary, err := db.ReadTrophySummary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Level)
	assert.Zero(t, summary.Total)

	// 4 bronze = 60 points = level 2
	require.NoError(t, db.UpsertTrophies(ctx, "alice", 0, 4, 0, 0, 0))
	level, err := db.TrophyLevel(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, level)

	require.NoError(t, db.UpsertTrophies(ctx, "alice", 7, 4, 1, 0, 0))
	summary, err = db.ReadTrophySummary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.Total)
	assert.Equal(t, int64(1), summary.Silver)
}
