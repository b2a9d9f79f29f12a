package domain

import "time"

// Comment is a comment vertex with the ids of its neighbours.
type Comment struct {
	CommentID       string      `json:"commentId"`
	Text            string      `json:"text"`
	DateTime        time.Time   `json:"dateTime"`
	PostID          string      `json:"postId"`
	ParentCommentID string      `json:"parentCommentId,omitempty"`
	User            UserSummary `json:"user"`
	LikeCount       int64       `json:"likeCount"`
	ReplyCount      int64       `json:"replyCount"`
	LikedByMe       bool        `json:"likedByMe"`
}

// NewComment is the body of a comment request.
type NewComment struct {
	PostID          string `json:"postId" binding:"required"`
	Text            string `json:"text" binding:"required,max=2200"`
	ParentCommentID string `json:"parentCommentId"`
}
