package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

type pageQuery struct {
	Offset int `form:"offset" binding:"min=0"`
	Limit  int `form:"limit" binding:"min=0,max=100"`
}

func bindPage(c *gin.Context) (domain.Page, bool) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err, "page query")
		return domain.Page{}, false
	}
	return domain.Page{Offset: q.Offset, Limit: q.Limit}, true
}

// cursorQuery carries the search_after tuple of the previous page.
type cursorQuery struct {
	DateTime int64  `form:"dateTime"`
	PostID   string `form:"postId"`
	Size     int    `form:"size" binding:"min=0,max=100"`
}

func (q cursorQuery) cursor() *domain.Cursor {
	cur := &domain.Cursor{DateTime: q.DateTime, PostID: q.PostID}
	if cur.IsZero() {
		return nil
	}
	return cur
}

func bindCursor(c *gin.Context) (cursorQuery, bool) {
	var q cursorQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err, "cursor query")
		return q, false
	}
	return q, true
}

type toggleRequest struct {
	Follow *bool `json:"follow"`
	Like   *bool `json:"like"`
}
