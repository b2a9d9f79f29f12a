package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

func TestSearchPosts(t *testing.T) {
	f := newFixture()
	f.user("u1", "alice")
	posts := NewPostService(f.deps, f.opts)
	svc := NewSearchService(f.deps, f.opts)
	ctx := context.Background()

	createPost(t, posts, "u1", "sunset at the #beach")
	createPost(t, posts, "u1", "beach volleyball")
	createPost(t, posts, "u1", "#mountains")

	_, err := svc.Posts(ctx, "  ", nil, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Posts(ctx, "#", nil, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	page, err := svc.Posts(ctx, "#Beach", nil, 0)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "sunset at the #beach", page.Posts[0].Caption)

	page, err = svc.Posts(ctx, "beach", nil, 0)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 2)
}

func TestSearchProfilesAndSuggest(t *testing.T) {
	f := newFixture()
	f.profiles.docs["u1"] = domain.Profile{UserID: "u1", UserName: "beachlover"}
	f.profiles.docs["u2"] = domain.Profile{UserID: "u2", UserName: "hiker"}
	f.posts.docs["e1"] = domain.Post{ESID: "e1", Hashtags: []string{"#beach", "#beachday"}}
	f.posts.docs["e2"] = domain.Post{ESID: "e2", Hashtags: []string{"#beach"}}
	svc := NewSearchService(f.deps, f.opts)
	ctx := context.Background()

	_, err := svc.Profiles(ctx, "", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	profiles, err := svc.Profiles(ctx, "beach", 0)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "beachlover", profiles[0].UserName)

	s, err := svc.Suggest(ctx, "beach")
	require.NoError(t, err)
	assert.Len(t, s.Profiles, 1)
	assert.Equal(t, []string{"#beach", "#beachday"}, s.Hashtags)

	s, err = svc.Suggest(ctx, "#beach")
	require.NoError(t, err)
	assert.Empty(t, s.Profiles)
	assert.Equal(t, []string{"#beach", "#beachday"}, s.Hashtags)

	s, err = svc.Suggest(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, s.Profiles)
	assert.Empty(t, s.Hashtags)
}
