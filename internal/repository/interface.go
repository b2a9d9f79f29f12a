package repository

import (
	"context"
	"errors"
	"time"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUserNameExists  = errors.New("user name already exists")
	ErrContactExists   = errors.New("email or phone already registered")
	ErrTxDone          = errors.New("transaction already finished")
	ErrParentNotOnPost = errors.New("parent comment belongs to another post")
)

// GraphReader holds the read side of the graph store.
type GraphReader interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByName(ctx context.Context, userName string) (*domain.User, error)
	// GetUserByContact looks a user up by email or phone.
	GetUserByContact(ctx context.Context, contact string) (*domain.User, error)
	UserNameExists(ctx context.Context, userName string) (bool, error)
	GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error)
	GetFollowers(ctx context.Context, userID string, page domain.Page) ([]domain.UserSummary, error)
	GetFollowing(ctx context.Context, userID string, page domain.Page) ([]domain.UserSummary, error)
	GetFollowingIDs(ctx context.Context, userID string) ([]string, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)

	GetPost(ctx context.Context, postID string) (*domain.PostRef, error)
	GetPostRefsByUser(ctx context.Context, userID string) ([]domain.PostRef, error)
	GetPostStats(ctx context.Context, postID, viewerID string) (*domain.PostStats, error)
	GetPostLikes(ctx context.Context, postID string, page domain.Page) ([]domain.UserSummary, error)

	GetComment(ctx context.Context, commentID string) (*domain.Comment, error)
	GetComments(ctx context.Context, postID, viewerID string, page domain.Page) ([]domain.Comment, error)
	GetReplies(ctx context.Context, commentID, viewerID string, page domain.Page) ([]domain.Comment, error)
}

// GraphRepository is the graph store. Writes go through a GraphTx.
type GraphRepository interface {
	GraphReader
	Begin(ctx context.Context) (GraphTx, error)
}

// GraphTx is one graph transaction. All statements issued through it
// commit or roll back together. Commit and Rollback are idempotent; after
// either, further statements return ErrTxDone.
type GraphTx interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateUser(ctx context.Context, userID string, props map[string]any) error
	SetPassword(ctx context.Context, userID, hash string) error
	SetConfirmed(ctx context.Context, userID string) error
	// MergeToken upserts the user's token of the given kind.
	MergeToken(ctx context.Context, userID string, t domain.Token) error
	// ConsumeToken removes a live token and returns its owner.
	ConsumeToken(ctx context.Context, kind domain.TokenKind, value string, now time.Time) (string, error)

	CreatePost(ctx context.Context, ref domain.PostRef) error
	// DeletePost removes the post with its comment threads and likes and
	// returns the deleted comment ids.
	DeletePost(ctx context.Context, postID string) ([]string, error)

	// CreateComment creates the comment vertex and its mirrored edge pairs
	// and returns the number of relationships created.
	CreateComment(ctx context.Context, c *domain.Comment) (int, error)
	// DeleteCommentTree removes a comment and every descendant reply and
	// returns the deleted ids.
	DeleteCommentTree(ctx context.Context, commentID string) ([]string, error)

	// SetFollow, SetPostLike and SetCommentLike make the edge pair present
	// or absent and report whether anything changed.
	SetFollow(ctx context.Context, followerID, followeeID string, on bool) (bool, error)
	SetPostLike(ctx context.Context, userID, postID string, on bool) (bool, error)
	SetCommentLike(ctx context.Context, userID, commentID string, on bool) (bool, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// PostIndex is the post document store (system of record for content).
type PostIndex interface {
	Index(ctx context.Context, p *domain.Post) error
	Get(ctx context.Context, esID string) (*domain.Post, error)
	Delete(ctx context.Context, esID string) error
	Search(ctx context.Context, term string, cursor *domain.Cursor, size int) (*domain.PostPage, error)
	ByAuthors(ctx context.Context, userIDs []string, cursor *domain.Cursor, size int) (*domain.PostPage, error)
	// UpdateAuthor rewrites the denormalised author fields of all posts by userID.
	UpdateAuthor(ctx context.Context, author domain.PostAuthor) (int64, error)
	TopHashtags(ctx context.Context, prefix string, size int) ([]string, error)
}

// ProfileIndex is the profile document store.
type ProfileIndex interface {
	Index(ctx context.Context, p *domain.Profile) error
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Delete(ctx context.Context, userID string) error
	Search(ctx context.Context, term string, size int) ([]domain.Profile, error)
}
