package domain

// Domain event types published through the outbox.
const (
	EventUserSignedUp       = "user.signed_up"
	EventUserConfirmed      = "user.confirmed"
	EventPasswordChanged    = "user.password_changed"
	EventProfileUpdated     = "profile.updated"
	EventPostCreated        = "post.created"
	EventPostUpdated        = "post.updated"
	EventPostDeleted        = "post.deleted"
	EventCommentCreated     = "comment.created"
	EventCommentsDeleted    = "comment.deleted"
	EventFollowChanged      = "graph.follow_changed"
	EventPostLikeChanged    = "graph.post_like_changed"
	EventCommentLikeChanged = "graph.comment_like_changed"
)

// ProfileUpdatedPayload carries the author fields denormalised into posts.
type ProfileUpdatedPayload struct {
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	OldUserName string `json:"oldUserName,omitempty"`
	PfpURL      string `json:"pfp"`
}

// PostEventPayload identifies a post.
type PostEventPayload struct {
	PostID string `json:"postId"`
	ESID   string `json:"esId"`
	UserID string `json:"userId"`
}

// CommentEventPayload identifies comments of a post.
type CommentEventPayload struct {
	PostID     string   `json:"postId"`
	CommentIDs []string `json:"commentIds"`
	UserID     string   `json:"userId"`
}

// EdgeEventPayload describes a toggled edge pair.
type EdgeEventPayload struct {
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
	On     bool   `json:"on"`
}

// UserEventPayload identifies a user.
type UserEventPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}
