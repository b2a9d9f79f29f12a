package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/pkg/middleware"
	"github.com/StormyOasis/linsta-sub001/pkg/response"
)

func (h *Handler) AddComment(c *gin.Context) {
	userID, ok := requestor(c)
	if !ok {
		return
	}
	var req domain.NewComment
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "comment")
		return
	}

	comment, err := h.svc.Comments.Add(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err, "add comment")
		return
	}
	response.Created(c, comment)
}

// DeleteComment removes the comment and all of its replies.
func (h *Handler) DeleteComment(c *gin.Context) {
	userID, ok := requestor(c)
	if !ok {
		return
	}
	ids, err := h.svc.Comments.Delete(c.Request.Context(), userID, c.Param("commentId"))
	if err != nil {
		fail(c, err, "delete comment")
		return
	}
	response.Success(c, gin.H{"deleted": ids})
}

func (h *Handler) LikeComment(c *gin.Context) {
	userID, ok := requestor(c)
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "like request")
		return
	}
	if req.Like == nil {
		response.BadRequest(c, "like is required")
		return
	}

	changed, err := h.svc.Comments.Like(c.Request.Context(), userID, c.Param("commentId"), *req.Like)
	if err != nil {
		fail(c, err, "like comment")
		return
	}
	response.Success(c, gin.H{"liked": *req.Like, "changed": changed})
}

func (h *Handler) Replies(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	replies, err := h.svc.Comments.Replies(c.Request.Context(), c.Param("commentId"), middleware.GetUserID(c), page)
	if err != nil {
		fail(c, err, "list replies")
		return
	}
	response.Success(c, replies)
}
