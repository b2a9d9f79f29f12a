package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/outbox"
)

func createPost(t *testing.T, svc PostService, userID, caption string) *domain.PostView {
	t.Helper()
	v, err := svc.Create(context.Background(), userID, &domain.NewPost{Caption: caption}, images(1))
	require.NoError(t, err)
	return v
}

func TestCreatePost(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	svc := NewPostService(f.deps, f.opts)
	ctx := context.Background()

	v, err := svc.Create(ctx, "u1", &domain.NewPost{
		Caption: "Beach day #Summer with @bob",
		AltText: []string{"sand", "sea"},
	}, images(2))
	require.NoError(t, err)

	assert.Equal(t, "alice", v.User.UserName)
	assert.Equal(t, []string{"#summer"}, v.Hashtags)
	assert.Equal(t, []string{"bob"}, v.Mentions)
	require.Len(t, v.Media, 2)
	assert.Equal(t, "sea", v.Media[1].AltText)

	assert.Equal(t, 2, f.media.count())
	assert.Contains(t, f.posts.docs, v.ESID)
	assert.Contains(t, f.cache.posts, v.ESID)
	assert.True(t, f.graph.hasEdge("u1", "POSTED", v.PostID))
	assert.True(t, f.graph.hasEdge(v.PostID, "POSTED_BY", "u1"))
	assert.Equal(t, []string{domain.EventPostCreated}, f.events.list())
}

func TestCreatePost_ImageCount(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	f.opts.MaxPostImages = 3
	svc := NewPostService(f.deps, f.opts)

	_, err := svc.Create(context.Background(), "u1", &domain.NewPost{}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(context.Background(), "u1", &domain.NewPost{}, images(4))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreatePost_Compensation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{"second upload fails", func(f *fixture) { f.media.failAfter = 1 }},
		{"index write fails", func(f *fixture) { f.posts.indexErr = errBoom }},
		{"graph commit fails", func(f *fixture) { f.graph.commitErr = errBoom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.user("u1", "alice")
			tt.setup(f)
			svc := NewPostService(f.deps, f.opts)

			_, err := svc.Create(context.Background(), "u1", &domain.NewPost{Caption: "x"}, images(2))

			require.Error(t, err)
			assert.Equal(t, 0, f.media.count())
			assert.Empty(t, f.posts.docs)
			assert.Equal(t, 0, f.graph.edgeCount())
			assert.Empty(t, f.events.list())
			assert.Empty(t, f.repairs.kinds())
		})
	}
}

func TestCreatePost_FailedUndoQueuesRepair(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	f.graph.commitErr = errBoom
	f.posts.deleteErr = errBoom
	svc := NewPostService(f.deps, f.opts)

	_, err := svc.Create(context.Background(), "u1", &domain.NewPost{Caption: "x"}, images(1))

	require.Error(t, err)
	assert.Equal(t, []string{outbox.KindIndexDeletePost}, f.repairs.kinds())
	assert.Equal(t, 0, f.media.count())
}

func TestLikePost_PairPresentOrAbsent(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	f.user("u2", "bob")
	svc := NewPostService(f.deps, f.opts)
	ctx := context.Background()
	p := createPost(t, svc, "u1", "hello")
	before := f.graph.edgeCount()

	changed, err := svc.Like(ctx, "u2", p.PostID, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, f.graph.hasEdge("u2", "LIKES", p.PostID))
	assert.True(t, f.graph.hasEdge(p.PostID, "LIKED_BY", "u2"))
	assert.Equal(t, before+2, f.graph.edgeCount())

	changed, err = svc.Like(ctx, "u2", p.PostID, true)
	require.NoError(t, err)
	assert.False(t, changed)

	likes, err := svc.Likes(ctx, p.PostID, domain.Page{})
	require.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, "bob", likes[0].UserName)

	changed, err = svc.Like(ctx, "u2", p.PostID, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, f.graph.hasEdge("u2", "LIKES", p.PostID))
	assert.False(t, f.graph.hasEdge(p.PostID, "LIKED_BY", "u2"))
	assert.Equal(t, before, f.graph.edgeCount())

	_, err = svc.Like(ctx, "u2", "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPost_HidesLikesFromOthers(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	f.user("u2", "bob")
	svc := NewPostService(f.deps, f.opts)
	ctx := context.Background()

	v, err := svc.Create(ctx, "u1", &domain.NewPost{Caption: "x", LikesHidden: true}, images(1))
	require.NoError(t, err)
	_, err = svc.Like(ctx, "u2", v.PostID, true)
	require.NoError(t, err)

	own, err := svc.Get(ctx, v.PostID, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), own.LikeCount)

	other, err := svc.Get(ctx, v.PostID, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), other.LikeCount)
	assert.True(t, other.LikedByMe)

	_, err = svc.Get(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPost_ReadsThroughCache(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	svc := NewPostService(f.deps, f.opts)
	ctx := context.Background()
	p := createPost(t, svc, "u1", "hello")

	delete(f.cache.posts, p.ESID)
	v, err := svc.Get(ctx, p.PostID, "")
	require.NoError(t, err)
	assert.Equal(t, "hello", v.Caption)
	assert.Contains(t, f.cache.posts, p.ESID)
}

func TestUpdatePost(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	f.user("u2", "bob")
	svc := NewPostService(f.deps, f.opts)
	ctx := context.Background()
	p := createPost(t, svc, "u1", "old")

	_, err := svc.Update(ctx, "u2", p.PostID, &domain.PostUpdate{Caption: strPtr("hijack")})
	assert.ErrorIs(t, err, ErrForbidden)

	v, err := svc.Update(ctx, "u1", p.PostID, &domain.PostUpdate{Caption: strPtr("new #Tag")})
	require.NoError(t, err)
	assert.Equal(t, "new #Tag", v.Caption)
	assert.Equal(t, []string{"#tag"}, f.posts.docs[p.ESID].Hashtags)
	assert.NotContains(t, f.cache.posts, p.ESID)
}

func TestUpdatePost_IndexFailureKeepsDocument(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	svc := NewPostService(f.deps, f.opts)
	p := createPost(t, svc, "u1", "old")

	f.posts.indexErr = errBoom
	_, err := svc.Update(context.Background(), "u1", p.PostID, &domain.PostUpdate{Caption: strPtr("new")})

	require.Error(t, err)
	assert.Equal(t, "old", f.posts.docs[p.ESID].Caption)
}

func TestDeletePost(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	f.user("u2", "bob")
	posts := NewPostService(f.deps, f.opts)
	comments := NewCommentService(f.deps, f.opts)
	ctx := context.Background()
	p := createPost(t, posts, "u1", "hello")

	c, err := comments.Add(ctx, "u2", &domain.NewComment{PostID: p.PostID, Text: "nice"})
	require.NoError(t, err)
	_, err = comments.Add(ctx, "u1", &domain.NewComment{PostID: p.PostID, Text: "thanks", ParentCommentID: c.CommentID})
	require.NoError(t, err)

	assert.ErrorIs(t, posts.Delete(ctx, "u2", p.PostID), ErrForbidden)

	require.NoError(t, posts.Delete(ctx, "u1", p.PostID))
	assert.Equal(t, 0, f.graph.edgeCount())
	assert.Empty(t, f.graph.read().comments)
	assert.Empty(t, f.posts.docs)
	assert.Empty(t, f.cache.posts)
	assert.Equal(t, 0, f.media.count())
	assert.Contains(t, f.events.list(), domain.EventPostDeleted)
	assert.Contains(t, f.events.list(), domain.EventCommentsDeleted)

	assert.ErrorIs(t, posts.Delete(ctx, "u1", p.PostID), ErrNotFound)
}

func TestDeletePost_LaterFailuresQueueRepairs(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	svc := NewPostService(f.deps, f.opts)
	p := createPost(t, svc, "u1", "hello")

	f.posts.deleteErr = errBoom
	f.media.removeErr = errBoom
	f.cache.deleteErr = errBoom
	require.NoError(t, svc.Delete(context.Background(), "u1", p.PostID))

	_, err := f.graph.GetPost(context.Background(), p.PostID)
	assert.Error(t, err)
	assert.ElementsMatch(t,
		[]string{outbox.KindIndexDeletePost, outbox.KindStorageDelete, outbox.KindCacheDelete},
		f.repairs.kinds())
}

func TestFeed(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	f.user("u2", "bob")
	f.user("u3", "carol")
	posts := NewPostService(f.deps, f.opts)
	profiles := NewProfileService(f.deps, f.opts)
	ctx := context.Background()

	own := createPost(t, posts, "u1", "mine")
	followed := createPost(t, posts, "u2", "bob's")
	createPost(t, posts, "u3", "stranger")
	_, err := profiles.Follow(ctx, "u1", "u2", true)
	require.NoError(t, err)

	page, err := posts.Feed(ctx, "u1", nil, 0)
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	// Newest first.
	assert.Equal(t, followed.PostID, page.Posts[0].PostID)
	assert.Equal(t, own.PostID, page.Posts[1].PostID)

	byAuthor, err := posts.ByAuthor(ctx, "u3", "u1", nil, 0)
	require.NoError(t, err)
	require.Len(t, byAuthor.Posts, 1)
	assert.Equal(t, "stranger", byAuthor.Posts[0].Caption)
}
