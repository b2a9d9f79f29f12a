package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

// These tests need a disposable Neo4j, e.g.
// LINSTA_TEST_NEO4J_URI=neo4j://localhost:7687 LINSTA_TEST_NEO4J_PASSWORD=secret go test ./internal/repository
func testGraph(t *testing.T) (GraphRepository, func(ids ...string)) {
	t.Helper()
	uri := os.Getenv("LINSTA_TEST_NEO4J_URI")
	if uri == "" || testing.Short() {
		t.Skip("LINSTA_TEST_NEO4J_URI not set")
	}
	ctx := context.Background()
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth("neo4j", os.Getenv("LINSTA_TEST_NEO4J_PASSWORD"), ""))
	require.NoError(t, err)
	require.NoError(t, driver.VerifyConnectivity(ctx))

	var created []string
	t.Cleanup(func() {
		_, _ = neo4j.ExecuteQuery(ctx, driver,
			`MATCH (n) WHERE n.id IN $ids DETACH DELETE n`,
			map[string]any{"ids": created}, neo4j.EagerResultTransformer)
		driver.Close(ctx)
	})
	return NewNeo4jGraphRepository(driver, ""), func(ids ...string) { created = append(created, ids...) }
}

func inTx(t *testing.T, g GraphRepository, fn func(tx GraphTx)) {
	t.Helper()
	ctx := context.Background()
	tx, err := g.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	fn(tx)
	require.NoError(t, tx.Commit(ctx))
}

func TestNeo4j_CommentThread(t *testing.T) {
	g, track := testGraph(t)
	ctx := context.Background()
	userID, postID := uuid.NewString(), uuid.NewString()
	top, reply := uuid.NewString(), uuid.NewString()
	track(userID, postID, top, reply)

	inTx(t, g, func(tx GraphTx) {
		require.NoError(t, tx.CreateUser(ctx, &domain.User{ID: userID, UserName: "it" + userID[:8], CreatedAt: time.Now()}))
		require.NoError(t, tx.CreatePost(ctx, domain.PostRef{PostID: postID, ESID: postID, UserID: userID, DateTime: time.Now()}))
	})

	inTx(t, g, func(tx GraphTx) {
		n, err := tx.CreateComment(ctx, &domain.Comment{CommentID: top, Text: "a", PostID: postID, DateTime: time.Now(), User: domain.UserSummary{UserID: userID}})
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		n, err = tx.CreateComment(ctx, &domain.Comment{CommentID: reply, Text: "b", PostID: postID, ParentCommentID: top, DateTime: time.Now(), User: domain.UserSummary{UserID: userID}})
		require.NoError(t, err)
		assert.Equal(t, 6, n)
	})

	inTx(t, g, func(tx GraphTx) {
		ids, err := tx.DeleteCommentTree(ctx, top)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{top, reply}, ids)
	})

	_, err := g.GetComment(ctx, reply)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNeo4j_RollbackLeavesNothing(t *testing.T) {
	g, track := testGraph(t)
	ctx := context.Background()
	userID := uuid.NewString()
	track(userID)
	name := "rb" + userID[:8]

	tx, err := g.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateUser(ctx, &domain.User{ID: userID, UserName: name, CreatedAt: time.Now()}))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx))

	exists, err := g.UserNameExists(ctx, name)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, tx.CreateUser(ctx, &domain.User{ID: userID}), ErrTxDone)
}

func TestNeo4j_FollowPair(t *testing.T) {
	g, track := testGraph(t)
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()
	track(a, b)

	inTx(t, g, func(tx GraphTx) {
		require.NoError(t, tx.CreateUser(ctx, &domain.User{ID: a, UserName: "fa" + a[:8], CreatedAt: time.Now()}))
		require.NoError(t, tx.CreateUser(ctx, &domain.User{ID: b, UserName: "fb" + b[:8], CreatedAt: time.Now()}))
	})

	for _, on := range []bool{true, true, false} {
		inTx(t, g, func(tx GraphTx) {
			_, err := tx.SetFollow(ctx, a, b, on)
			require.NoError(t, err)
		})
		following, err := g.IsFollowing(ctx, a, b)
		require.NoError(t, err)
		assert.Equal(t, on, following)
	}
}
