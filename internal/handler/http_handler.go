package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/StormyOasis/linsta-sub001/internal/service"
	"github.com/StormyOasis/linsta-sub001/pkg/middleware"
	"github.com/StormyOasis/linsta-sub001/pkg/response"
)

// Services groups the application services the handlers call.
type Services struct {
	Accounts  service.AccountService
	Profiles  service.ProfileService
	Posts     service.PostService
	Comments  service.CommentService
	Search    service.SearchService
	Locations service.LocationService
}

// Handler handles HTTP requests for the API.
type Handler struct {
	svc            Services
	authMiddleware *middleware.AuthMiddleware
	maxUploadBytes int64
}

// NewHandler creates a new HTTP handler.
func NewHandler(svc Services, authMiddleware *middleware.AuthMiddleware, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &Handler{
		svc:            svc,
		authMiddleware: authMiddleware,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers all routes. The gateway middleware guards every
// route that is not on the public allow-list.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(h.authMiddleware.Gateway())
	r.GET("/healthz", h.Health)

	api := r.Group("/api/v1")
	{
		accounts := api.Group("/accounts")
		{
			accounts.POST("/signup", h.Signup)
			accounts.POST("/login", h.Login)
			accounts.POST("/refresh", h.Refresh)
			accounts.GET("/check-username/:userName", h.CheckUserName)
			accounts.POST("/confirm", h.Confirm)
			accounts.POST("/confirm/resend", h.ResendConfirmation)
			accounts.POST("/forgot-password", h.ForgotPassword)
			accounts.POST("/reset-password", h.ResetPassword)
			accounts.POST("/logout", h.Logout)
			accounts.PATCH("/password", h.ChangePassword)
		}

		profiles := api.Group("/profiles")
		{
			profiles.GET("/by-name/:userName", h.GetProfileByName)
			profiles.GET("/:userId", h.GetProfile)
			profiles.PATCH("/:userId", h.UpdateProfile)
			profiles.PUT("/:userId/photo", h.SetPhoto)
			profiles.DELETE("/:userId/photo", h.RemovePhoto)
			profiles.POST("/:userId/follow", h.Follow)
			profiles.GET("/:userId/followers", h.Followers)
			profiles.GET("/:userId/following", h.Following)
			profiles.GET("/:userId/posts", h.PostsByAuthor)
			profiles.GET("/:userId/stats", h.ProfileStats)
		}

		posts := api.Group("/posts")
		{
			posts.POST("", h.CreatePost)
			posts.GET("/feed", h.Feed)
			posts.GET("/:postId", h.GetPost)
			posts.PATCH("/:postId", h.UpdatePost)
			posts.DELETE("/:postId", h.DeletePost)
			posts.POST("/:postId/like", h.LikePost)
			posts.GET("/:postId/likes", h.PostLikes)
			posts.GET("/:postId/comments", h.PostComments)
		}

		comments := api.Group("/comments")
		{
			comments.POST("", h.AddComment)
			comments.DELETE("/:commentId", h.DeleteComment)
			comments.POST("/:commentId/like", h.LikeComment)
			comments.GET("/:commentId/replies", h.Replies)
		}

		locations := api.Group("/locations")
		{
			locations.GET("/search", h.SearchLocations)
			locations.GET("/reverse", h.ReverseLocation)
		}

		search := api.Group("/search")
		{
			search.GET("/posts", h.SearchPosts)
			search.GET("/profiles", h.SearchProfiles)
			search.GET("/suggest", h.Suggest)
		}
	}
}

// Health reports that the process is serving.
func (h *Handler) Health(c *gin.Context) {
	response.OK(c)
}
