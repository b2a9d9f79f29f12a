package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/StormyOasis/linsta-sub001/pkg/response"
)

type searchQuery struct {
	Q string `form:"q"`
	cursorQuery
}

// SearchPosts searches captions, or hashtags when q starts with '#'. The
// next cursor of a page is passed back as dateTime and postId.
func (h *Handler) SearchPosts(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err, "search query")
		return
	}
	page, err := h.svc.Search.Posts(c.Request.Context(), q.Q, q.cursor(), q.Size)
	if err != nil {
		fail(c, err, "search posts")
		return
	}
	response.Success(c, page)
}

func (h *Handler) SearchProfiles(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err, "search query")
		return
	}
	profiles, err := h.svc.Search.Profiles(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		fail(c, err, "search profiles")
		return
	}
	response.Success(c, profiles)
}

func (h *Handler) Suggest(c *gin.Context) {
	s, err := h.svc.Search.Suggest(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, err, "suggest")
		return
	}
	response.Success(c, s)
}

type reverseQuery struct {
	Lat *float64 `form:"lat" binding:"required"`
	Lon *float64 `form:"lon" binding:"required"`
}

func (h *Handler) SearchLocations(c *gin.Context) {
	places, err := h.svc.Locations.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, err, "search locations")
		return
	}
	response.Success(c, places)
}

func (h *Handler) ReverseLocation(c *gin.Context) {
	var q reverseQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err, "reverse query")
		return
	}
	place, err := h.svc.Locations.Reverse(c.Request.Context(), *q.Lat, *q.Lon)
	if err != nil {
		fail(c, err, "reverse geocode")
		return
	}
	response.Success(c, place)
}
