package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/pkg/middleware"
	"github.com/StormyOasis/linsta-sub001/pkg/response"
)

func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.svc.Profiles.GetByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err, "get profile")
		return
	}
	response.Success(c, p)
}

func (h *Handler) GetProfileByName(c *gin.Context) {
	p, err := h.svc.Profiles.GetByName(c.Request.Context(), c.Param("userName"))
	if err != nil {
		fail(c, err, "get profile")
		return
	}
	response.Success(c, p)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := authorize(c, c.Param("userId"))
	if !ok {
		return
	}
	var req domain.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "profile update")
		return
	}

	p, err := h.svc.Profiles.Update(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err, "update profile")
		return
	}
	response.Success(c, p)
}

// SetPhoto replaces the profile photo with the multipart "file" field.
func (h *Handler) SetPhoto(c *gin.Context) {
	userID, ok := authorize(c, c.Param("userId"))
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err, "photo upload")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err, "photo upload")
		return
	}
	defer f.Close()

	p, err := h.svc.Profiles.SetPhoto(c.Request.Context(), userID, f)
	if err != nil {
		fail(c, err, "set profile photo")
		return
	}
	response.Success(c, p)
}

func (h *Handler) RemovePhoto(c *gin.Context) {
	userID, ok := authorize(c, c.Param("userId"))
	if !ok {
		return
	}
	p, err := h.svc.Profiles.RemovePhoto(c.Request.Context(), userID)
	if err != nil {
		fail(c, err, "remove profile photo")
		return
	}
	response.Success(c, p)
}

// Follow sets the caller's follow edge to the user in the path.
func (h *Handler) Follow(c *gin.Context) {
	followerID, ok := requestor(c)
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "follow request")
		return
	}
	if req.Follow == nil {
		response.BadRequest(c, "follow is required")
		return
	}

	changed, err := h.svc.Profiles.Follow(c.Request.Context(), followerID, c.Param("userId"), *req.Follow)
	if err != nil {
		fail(c, err, "follow")
		return
	}
	response.Success(c, gin.H{"following": *req.Follow, "changed": changed})
}

func (h *Handler) Followers(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	users, err := h.svc.Profiles.Followers(c.Request.Context(), c.Param("userId"), page)
	if err != nil {
		fail(c, err, "list followers")
		return
	}
	response.Success(c, users)
}

func (h *Handler) Following(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	users, err := h.svc.Profiles.Following(c.Request.Context(), c.Param("userId"), page)
	if err != nil {
		fail(c, err, "list following")
		return
	}
	response.Success(c, users)
}

// ProfileStats returns the counters and whether the caller follows the user.
func (h *Handler) ProfileStats(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userId")

	stats, err := h.svc.Profiles.Stats(ctx, userID)
	if err != nil {
		fail(c, err, "get profile stats")
		return
	}
	following := false
	if viewer := middleware.GetUserID(c); viewer != "" && viewer != userID {
		if following, err = h.svc.Profiles.IsFollowing(ctx, viewer, userID); err != nil {
			fail(c, err, "get profile stats")
			return
		}
	}
	response.Success(c, gin.H{"stats": stats, "followedByMe": following})
}

func (h *Handler) PostsByAuthor(c *gin.Context) {
	q, ok := bindCursor(c)
	if !ok {
		return
	}
	page, err := h.svc.Posts.ByAuthor(c.Request.Context(), c.Param("userId"), middleware.GetUserID(c), q.cursor(), q.Size)
	if err != nil {
		fail(c, err, "list posts")
		return
	}
	response.Success(c, page)
}
