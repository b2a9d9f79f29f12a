package service

import (
	"context"
	"io"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/media"
	"github.com/StormyOasis/linsta-sub001/pkg/jwt"
)

// AccountService covers sign-up, sign-in and credential recovery.
type AccountService interface {
	Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error)
	CheckUserName(ctx context.Context, userName string) (bool, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*jwt.TokenPair, error)
	Logout(ctx context.Context, claims *jwt.Claims, all bool) error
	Confirm(ctx context.Context, req *domain.ConfirmRequest) error
	ResendConfirmation(ctx context.Context, userName string) error
	ForgotPassword(ctx context.Context, user string) error
	ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error
	ChangePassword(ctx context.Context, userID string, req *domain.ChangePasswordRequest) (*jwt.TokenPair, error)
}

// ProfileService covers profiles and the follow graph.
type ProfileService interface {
	GetByID(ctx context.Context, userID string) (*domain.Profile, error)
	GetByName(ctx context.Context, userName string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, upd *domain.ProfileUpdate) (*domain.Profile, error)
	SetPhoto(ctx context.Context, userID string, r io.Reader) (*domain.Profile, error)
	RemovePhoto(ctx context.Context, userID string) (*domain.Profile, error)
	Follow(ctx context.Context, followerID, followeeID string, follow bool) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	Followers(ctx context.Context, userID string, page domain.Page) ([]domain.UserSummary, error)
	Following(ctx context.Context, userID string, page domain.Page) ([]domain.UserSummary, error)
	Stats(ctx context.Context, userID string) (*domain.UserStats, error)
}

// PostService covers posts, their likes and the home feed.
type PostService interface {
	Create(ctx context.Context, userID string, req *domain.NewPost, images []io.Reader) (*domain.PostView, error)
	Get(ctx context.Context, postID, viewerID string) (*domain.PostView, error)
	Update(ctx context.Context, userID, postID string, upd *domain.PostUpdate) (*domain.PostView, error)
	Delete(ctx context.Context, userID, postID string) error
	Like(ctx context.Context, userID, postID string, like bool) (bool, error)
	Likes(ctx context.Context, postID string, page domain.Page) ([]domain.UserSummary, error)
	Feed(ctx context.Context, userID string, cursor *domain.Cursor, size int) (*domain.PostViewPage, error)
	ByAuthor(ctx context.Context, authorID, viewerID string, cursor *domain.Cursor, size int) (*domain.PostViewPage, error)
}

// CommentService covers threaded comments.
type CommentService interface {
	Add(ctx context.Context, userID string, req *domain.NewComment) (*domain.Comment, error)
	Delete(ctx context.Context, userID, commentID string) ([]string, error)
	Like(ctx context.Context, userID, commentID string, like bool) (bool, error)
	ListForPost(ctx context.Context, postID, viewerID string, page domain.Page) ([]domain.Comment, error)
	Replies(ctx context.Context, commentID, viewerID string, page domain.Page) ([]domain.Comment, error)
}

// SearchService covers full-text search.
type SearchService interface {
	Posts(ctx context.Context, term string, cursor *domain.Cursor, size int) (*domain.PostPage, error)
	Profiles(ctx context.Context, term string, size int) ([]domain.Profile, error)
	Suggest(ctx context.Context, term string) (*domain.Suggestions, error)
}

// LocationService covers place lookup for post locations.
type LocationService interface {
	Search(ctx context.Context, query string) ([]domain.Place, error)
	Reverse(ctx context.Context, lat, lon float64) (*domain.Place, error)
}

// MediaStore stores normalised images.
type MediaStore interface {
	StorePostImage(ctx context.Context, userID string, r io.Reader) (*media.Stored, error)
	StoreProfilePhoto(ctx context.Context, userID string, r io.Reader) (*media.Stored, error)
	Remove(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// EventQueue records domain events for asynchronous delivery.
type EventQueue interface {
	Enqueue(ctx context.Context, topic, eventType, key string, payload interface{}) error
}

// AccountNotifier delivers account messages to a user's email or phone.
type AccountNotifier interface {
	SendConfirmCode(ctx context.Context, contact, userName, code string) error
	SendResetLink(ctx context.Context, contact, userName, token string) error
	SendPasswordChanged(ctx context.Context, contact, userName string) error
}

// TokenIssuer issues and revokes session tokens.
type TokenIssuer interface {
	GenerateTokenPair(userID, userName string) (*jwt.TokenPair, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*jwt.TokenPair, error)
	RevokeToken(ctx context.Context, claims *jwt.Claims) error
	RevokeUserTokens(ctx context.Context, userID string) error
}

// Geocoder resolves places.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]domain.Place, error)
	Reverse(ctx context.Context, lat, lon float64) (*domain.Place, error)
}
