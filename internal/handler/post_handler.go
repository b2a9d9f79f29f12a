package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/pkg/middleware"
	"github.com/StormyOasis/linsta-sub001/pkg/response"
)

// CreatePost accepts a multipart form: the images under "files" and the
// post fields as JSON under "data".
func (h *Handler) CreatePost(c *gin.Context) {
	userID, ok := requestor(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err, "post upload")
		return
	}

	var req domain.NewPost
	if data := c.PostForm("data"); data != "" {
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			badRequest(c, err, "post data")
			return
		}
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		badRequest(c, err, "post data")
		return
	}

	files := form.File["files"]
	images := make([]io.Reader, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, err, "post upload")
			return
		}
		defer f.Close()
		images = append(images, f)
	}

	post, err := h.svc.Posts.Create(c.Request.Context(), userID, &req, images)
	if err != nil {
		fail(c, err, "create post")
		return
	}
	response.Created(c, post)
}

func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.svc.Posts.Get(c.Request.Context(), c.Param("postId"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err, "get post")
		return
	}
	response.Success(c, post)
}

func (h *Handler) UpdatePost(c *gin.Context) {
	userID, ok := requestor(c)
	if !ok {
		return
	}
	var req domain.PostUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "post update")
		return
	}

	post, err := h.svc.Posts.Update(c.Request.Context(), userID, c.Param("postId"), &req)
	if err != nil {
		fail(c, err, "update post")
		return
	}
	response.Success(c, post)
}

func (h *Handler) DeletePost(c *gin.Context) {
	userID, ok := requestor(c)
	if !ok {
		return
	}
	if err := h.svc.Posts.Delete(c.Request.Context(), userID, c.Param("postId")); err != nil {
		fail(c, err, "delete post")
		return
	}
	response.OK(c)
}

func (h *Handler) LikePost(c *gin.Context) {
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

	changed, err := h.svc.Posts.Like(c.Request.Context(), userID, c.Param("postId"), *req.Like)
	if err != nil {
		fail(c, err, "like post")
		return
	}
	response.Success(c, gin.H{"liked": *req.Like, "changed": changed})
}

func (h *Handler) PostLikes(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	users, err := h.svc.Posts.Likes(c.Request.Context(), c.Param("postId"), page)
	if err != nil {
		fail(c, err, "list likes")
		return
	}
	response.Success(c, users)
}

func (h *Handler) PostComments(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	comments, err := h.svc.Comments.ListForPost(c.Request.Context(), c.Param("postId"), middleware.GetUserID(c), page)
	if err != nil {
		fail(c, err, "list comments")
		return
	}
	response.Success(c, comments)
}

// Feed returns the caller's home feed, newest first.
func (h *Handler) Feed(c *gin.Context) {
	userID, ok := requestor(c)
	if !ok {
		return
	}
	q, ok := bindCursor(c)
	if !ok {
		return
	}
	page, err := h.svc.Posts.Feed(c.Request.Context(), userID, q.cursor(), q.Size)
	if err != nil {
		fail(c, err, "load feed")
		return
	}
	response.Success(c, page)
}
