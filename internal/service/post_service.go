package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/StormyOasis/linsta-sub001/internal/audit"
	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/media"
	"github.com/StormyOasis/linsta-sub001/internal/outbox"
	"github.com/StormyOasis/linsta-sub001/internal/saga"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
)

type postServiceImpl struct {
	*base
}

// NewPostService creates the post service.
func NewPostService(deps Deps, opts Options) PostService {
	return &postServiceImpl{base: newBase(deps, opts)}
}

// Create stores the images, then the post document, then the graph vertex.
// A failure at any point removes what the earlier steps wrote.
func (s *postServiceImpl) Create(ctx context.Context, userID string, req *domain.NewPost, images []io.Reader) (*domain.PostView, error) {
	l := log.Ctx(ctx)

	switch {
	case len(images) == 0:
		return nil, invalidf("add at least one photo")
	case len(images) > s.opts.MaxPostImages:
		return nil, invalidf("a post can have at most %d photos", s.opts.MaxPostImages)
	}

	author, err := s.Graph.GetUserByID(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user")
	}

	postID, err := s.IDs.SortableID()
	if err != nil {
		return nil, err
	}
	esID, err := s.IDs.SortableID()
	if err != nil {
		return nil, err
	}

	sg := s.Sagas.Start("post.create")
	defer sg.Abort(ctx)

	items := make([]domain.MediaItem, 0, len(images))
	for i, img := range images {
		img := img
		var stored *media.Stored
		if err := sg.Run(ctx, s.uploadStep(func(ctx context.Context) (*media.Stored, error) {
			return s.Media.StorePostImage(ctx, userID, img)
		}, &stored)); err != nil {
			return nil, mediaErr(err)
		}

		item := domain.MediaItem{
			ID:       fmt.Sprintf("%s-%d", postID, i),
			Key:      stored.Key,
			URL:      stored.URL,
			Hash:     stored.Hash,
			MimeType: stored.MimeType,
			Width:    stored.Width,
			Height:   stored.Height,
		}
		if i < len(req.AltText) {
			item.AltText = strings.TrimSpace(req.AltText[i])
		}
		items = append(items, item)
	}

	now := s.now()
	post := &domain.Post{
		PostID:           postID,
		ESID:             esID,
		User:             domain.PostAuthor{UserID: author.ID, UserName: author.UserName, PfpURL: author.PfpURL},
		Caption:          req.Caption,
		Hashtags:         domain.ExtractHashtags(req.Caption),
		Mentions:         domain.ExtractMentions(req.Caption),
		Media:            items,
		Location:         req.Location,
		CommentsDisabled: req.CommentsDisabled,
		LikesHidden:      req.LikesHidden,
		DateTime:         now,
		UpdatedAt:        now,
	}

	if err := sg.Run(ctx, saga.Step{
		Name: "index.post",
		Do:   func(ctx context.Context) error { return s.Posts.Index(ctx, post) },
		Undo: func(ctx context.Context) error { return s.Posts.Delete(ctx, esID) },
		Repair: func() saga.Repair {
			return saga.Repair{Kind: outbox.KindIndexDeletePost, Target: esID}
		},
	}); err != nil {
		l.Error().Err(err).Msg("create post: failed to index document")
		return nil, err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	if err := tx.CreatePost(ctx, domain.PostRef{PostID: postID, ESID: esID, UserID: userID, DateTime: now}); err != nil {
		return nil, repoErr(err, "user")
	}
	if err := sg.Run(ctx, commitStep(tx)); err != nil {
		l.Error().Err(err).Msg("create post: failed to commit")
		return nil, err
	}
	sg.Complete()

	if err := s.Cache.SetPost(ctx, post); err != nil {
		l.Warn().Err(err).Str(log.FieldESID, esID).Msg("create post: cache write failed")
	}

	audit.LogTarget(ctx, audit.ActionCreatePost, userID, postID, "post created")
	s.publish(ctx, pubsub.TopicPost, domain.EventPostCreated, postID, domain.PostEventPayload{PostID: postID, ESID: esID, UserID: userID})
	return &domain.PostView{Post: *post}, nil
}

// view assembles a post with its graph counters. The document and the
// counters are read concurrently.
func (s *postServiceImpl) view(ctx context.Context, ref *domain.PostRef, viewerID string) (*domain.PostView, error) {
	var (
		post  *domain.Post
		stats *domain.PostStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		post, err = s.loadPost(gctx, ref.ESID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.Graph.GetPostStats(gctx, ref.PostID, viewerID)
		return repoErr(err, "post")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return presentPost(post, stats, viewerID), nil
}

// presentPost hides the like count from everyone but the author when the
// author asked for it.
func presentPost(post *domain.Post, stats *domain.PostStats, viewerID string) *domain.PostView {
	v := &domain.PostView{Post: *post, PostStats: *stats}
	if post.LikesHidden && viewerID != post.User.UserID {
		v.LikeCount = 0
	}
	return v
}

func (s *postServiceImpl) Get(ctx context.Context, postID, viewerID string) (*domain.PostView, error) {
	ref, err := s.Graph.GetPost(ctx, postID)
	if err != nil {
		return nil, repoErr(err, "post")
	}
	return s.view(ctx, ref, viewerID)
}

// ownedPost loads a post the caller must own.
func (s *postServiceImpl) ownedPost(ctx context.Context, userID, postID string) (*domain.PostRef, error) {
	ref, err := s.Graph.GetPost(ctx, postID)
	if err != nil {
		return nil, repoErr(err, "post")
	}
	if ref.UserID != userID {
		audit.LogTarget(ctx, audit.ActionForbiddenAccess, userID, postID, "not the owner of the post")
		return nil, forbidden("you can only change your own posts")
	}
	return ref, nil
}

func (s *postServiceImpl) Update(ctx context.Context, userID, postID string, upd *domain.PostUpdate) (*domain.PostView, error) {
	ref, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	post, err := s.loadPost(ctx, ref.ESID)
	if err != nil {
		return nil, err
	}
	prev := *post
	prev.Media = append([]domain.MediaItem(nil), post.Media...)

	upd.Apply(post)
	post.UpdatedAt = s.now()

	sg := s.Sagas.Start("post.update")
	defer sg.Abort(ctx)
	if err := sg.Run(ctx, saga.Step{
		Name: "index.post",
		Do:   func(ctx context.Context) error { return s.Posts.Index(ctx, post) },
		Undo: func(ctx context.Context) error { return s.Posts.Index(ctx, &prev) },
		Repair: func() saga.Repair {
			return saga.Repair{
				Kind:    outbox.KindIndexPutPost,
				Target:  prev.ESID,
				Payload: postRestore{Post: prev, SupersededAt: post.UpdatedAt},
			}
		},
	}); err != nil {
		return nil, err
	}
	sg.Complete()

	s.invalidate(ctx, s.Cache.PostKey(ref.ESID))
	audit.LogTarget(ctx, audit.ActionUpdatePost, userID, postID, "post updated")
	s.publish(ctx, pubsub.TopicPost, domain.EventPostUpdated, postID, domain.PostEventPayload{PostID: postID, ESID: ref.ESID, UserID: userID})

	stats, err := s.Graph.GetPostStats(ctx, postID, userID)
	if err != nil {
		return nil, repoErr(err, "post")
	}
	return presentPost(post, stats, userID), nil
}

// Delete removes the graph vertex with its comment threads first. The
// index document, the images and the cache entry follow; any of those that
// fail is queued for repair since the post is already gone.
func (s *postServiceImpl) Delete(ctx context.Context, userID, postID string) error {
	ref, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	post, err := s.loadPost(ctx, ref.ESID)
	if err != nil && !isNotFound(err) {
		return err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	commentIDs, err := tx.DeletePost(ctx, postID)
	if err != nil {
		return repoErr(err, "post")
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if err := s.Posts.Delete(ctx, ref.ESID); err != nil {
		s.repairLater(ctx, saga.Repair{Kind: outbox.KindIndexDeletePost, Target: ref.ESID}, err)
	}
	if post != nil {
		for _, m := range post.Media {
			if err := s.Media.Remove(ctx, m.Key); err != nil {
				s.repairLater(ctx, saga.Repair{Kind: outbox.KindStorageDelete, Target: m.Key}, err)
			}
		}
	}
	s.invalidate(ctx, s.Cache.PostKey(ref.ESID))

	audit.LogTarget(ctx, audit.ActionDeletePost, userID, postID, "post deleted")
	s.publish(ctx, pubsub.TopicPost, domain.EventPostDeleted, postID, domain.PostEventPayload{PostID: postID, ESID: ref.ESID, UserID: userID})
	if len(commentIDs) > 0 {
		s.publish(ctx, pubsub.TopicComment, domain.EventCommentsDeleted, postID,
			domain.CommentEventPayload{PostID: postID, CommentIDs: commentIDs, UserID: userID})
	}
	return nil
}

func (s *postServiceImpl) Like(ctx context.Context, userID, postID string, like bool) (bool, error) {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	defer rollback()

	changed, err := tx.SetPostLike(ctx, userID, postID, like)
	if err != nil {
		return false, repoErr(err, "post")
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	if changed {
		s.publish(ctx, pubsub.TopicGraph, domain.EventPostLikeChanged, postID,
			domain.EdgeEventPayload{FromID: userID, ToID: postID, On: like})
	}
	return changed, nil
}

func (s *postServiceImpl) Likes(ctx context.Context, postID string, page domain.Page) ([]domain.UserSummary, error) {
	users, err := s.Graph.GetPostLikes(ctx, postID, s.page(page))
	return users, repoErr(err, "post")
}

// Feed returns the newest posts of the people the user follows and the
// user's own posts.
func (s *postServiceImpl) Feed(ctx context.Context, userID string, cursor *domain.Cursor, size int) (*domain.PostViewPage, error) {
	ids, err := s.Graph.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user")
	}
	return s.authorsPage(ctx, append(ids, userID), userID, cursor, size)
}

func (s *postServiceImpl) ByAuthor(ctx context.Context, authorID, viewerID string, cursor *domain.Cursor, size int) (*domain.PostViewPage, error) {
	return s.authorsPage(ctx, []string{authorID}, viewerID, cursor, size)
}

func (s *postServiceImpl) authorsPage(ctx context.Context, authorIDs []string, viewerID string, cursor *domain.Cursor, size int) (*domain.PostViewPage, error) {
	page, err := s.Posts.ByAuthors(ctx, authorIDs, cursor, s.pageSize(size))
	if err != nil {
		return nil, err
	}

	views := make([]domain.PostView, len(page.Posts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range page.Posts {
		i := i
		g.Go(func() error {
			p := &page.Posts[i]
			stats, err := s.Graph.GetPostStats(gctx, p.PostID, viewerID)
			if err != nil {
				// The document can outlive a vertex deleted moments ago.
				if isNotFound(repoErr(err, "post")) {
					stats = &domain.PostStats{}
				} else {
					return err
				}
			}
			views[i] = *presentPost(p, stats, viewerID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &domain.PostViewPage{Posts: views, Next: page.Next}, nil
}
