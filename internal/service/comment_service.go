package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/StormyOasis/linsta-sub001/internal/audit"
	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
)

// Relationship counts CreateComment reports: COMMENTED/COMMENTED_BY and
// ON_POST/HAS_COMMENT, plus HAS_REPLY/REPLY_TO for a reply.
const (
	commentEdges = 4
	replyEdges   = 6
)

type commentServiceImpl struct {
	*base
}

// NewCommentService creates the comment service.
func NewCommentService(deps Deps, opts Options) CommentService {
	return &commentServiceImpl{base: newBase(deps, opts)}
}

func (s *commentServiceImpl) Add(ctx context.Context, userID string, req *domain.NewComment) (*domain.Comment, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, invalidf("comment text is required")
	}

	ref, err := s.Graph.GetPost(ctx, req.PostID)
	if err != nil {
		return nil, repoErr(err, "post")
	}
	post, err := s.loadPost(ctx, ref.ESID)
	if err != nil {
		return nil, err
	}
	if post.CommentsDisabled {
		return nil, invalidf("comments are turned off for this post")
	}

	author, err := s.Graph.GetUserByID(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user")
	}
	commentID, err := s.IDs.SortableID()
	if err != nil {
		return nil, err
	}
	c := &domain.Comment{
		CommentID:       commentID,
		Text:            text,
		DateTime:        s.now(),
		PostID:          req.PostID,
		ParentCommentID: req.ParentCommentID,
		User: domain.UserSummary{
			UserID:   author.ID,
			UserName: author.UserName,
			Name:     author.Name,
			PfpURL:   author.PfpURL,
		},
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	n, err := tx.CreateComment(ctx, c)
	if err != nil {
		return nil, repoErr(err, "comment")
	}
	want := commentEdges
	if c.ParentCommentID != "" {
		want = replyEdges
	}
	if n != want {
		return nil, fmt.Errorf("create comment: expected %d relationships, got %d", want, n)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	audit.LogTarget(ctx, audit.ActionCreateComment, userID, commentID, "comment created")
	s.publish(ctx, pubsub.TopicComment, domain.EventCommentCreated, c.PostID,
		domain.CommentEventPayload{PostID: c.PostID, CommentIDs: []string{commentID}, UserID: userID})
	return c, nil
}

// Delete removes a comment with all of its replies. The comment author and
// the post author may delete it.
func (s *commentServiceImpl) Delete(ctx context.Context, userID, commentID string) ([]string, error) {
	c, err := s.Graph.GetComment(ctx, commentID)
	if err != nil {
		return nil, repoErr(err, "comment")
	}
	if c.User.UserID != userID {
		ref, err := s.Graph.GetPost(ctx, c.PostID)
		if err != nil {
			return nil, repoErr(err, "post")
		}
		if ref.UserID != userID {
			audit.LogTarget(ctx, audit.ActionForbiddenAccess, userID, commentID, "not the owner of the comment")
			return nil, forbidden("you can only delete your own comments")
		}
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	ids, err := tx.DeleteCommentTree(ctx, commentID)
	if err != nil {
		return nil, repoErr(err, "comment")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldCommentID, commentID).Int("deleted", len(ids)).Msg("comment tree deleted")
	audit.LogTarget(ctx, audit.ActionDeleteComment, userID, commentID, "comment deleted")
	s.publish(ctx, pubsub.TopicComment, domain.EventCommentsDeleted, c.PostID,
		domain.CommentEventPayload{PostID: c.PostID, CommentIDs: ids, UserID: userID})
	return ids, nil
}

func (s *commentServiceImpl) Like(ctx context.Context, userID, commentID string, like bool) (bool, error) {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	defer rollback()

	changed, err := tx.SetCommentLike(ctx, userID, commentID, like)
	if err != nil {
		return false, repoErr(err, "comment")
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	if changed {
		s.publish(ctx, pubsub.TopicGraph, domain.EventCommentLikeChanged, commentID,
			domain.EdgeEventPayload{FromID: userID, ToID: commentID, On: like})
	}
	return changed, nil
}

func (s *commentServiceImpl) ListForPost(ctx context.Context, postID, viewerID string, page domain.Page) ([]domain.Comment, error) {
	if _, err := s.Graph.GetPost(ctx, postID); err != nil {
		return nil, repoErr(err, "post")
	}
	comments, err := s.Graph.GetComments(ctx, postID, viewerID, s.page(page))
	return comments, repoErr(err, "post")
}

func (s *commentServiceImpl) Replies(ctx context.Context, commentID, viewerID string, page domain.Page) ([]domain.Comment, error) {
	comments, err := s.Graph.GetReplies(ctx, commentID, viewerID, s.page(page))
	return comments, repoErr(err, "comment")
}
