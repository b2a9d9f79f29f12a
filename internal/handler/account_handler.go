package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/pkg/middleware"
	"github.com/StormyOasis/linsta-sub001/pkg/response"
)

// Signup creates an account. A dry run answers {"status":"OK"} when the
// input would be accepted.
func (h *Handler) Signup(c *gin.Context) {
	var req domain.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "signup request")
		return
	}

	result, err := h.svc.Accounts.Signup(c.Request.Context(), &req)
	if err != nil {
		fail(c, err, "sign up")
		return
	}
	if result == nil {
		response.OK(c)
		return
	}
	response.Created(c, result)
}

func (h *Handler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "login request")
		return
	}

	result, err := h.svc.Accounts.Login(c.Request.Context(), &req)
	if err != nil {
		fail(c, err, "log in")
		return
	}
	response.Success(c, result)
}

func (h *Handler) Refresh(c *gin.Context) {
	var req domain.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "refresh request")
		return
	}

	pair, err := h.svc.Accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err, "refresh token")
		return
	}
	response.Success(c, pair)
}

// CheckUserName reports whether a user name can still be registered.
func (h *Handler) CheckUserName(c *gin.Context) {
	available, err := h.svc.Accounts.CheckUserName(c.Request.Context(), c.Param("userName"))
	if err != nil {
		fail(c, err, "check user name")
		return
	}
	response.Success(c, gin.H{"available": available})
}

func (h *Handler) Confirm(c *gin.Context) {
	var req domain.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "confirm request")
		return
	}
	if err := h.svc.Accounts.Confirm(c.Request.Context(), &req); err != nil {
		fail(c, err, "confirm account")
		return
	}
	response.OK(c)
}

func (h *Handler) ResendConfirmation(c *gin.Context) {
	var req domain.ResendConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "resend request")
		return
	}
	if err := h.svc.Accounts.ResendConfirmation(c.Request.Context(), req.UserName); err != nil {
		fail(c, err, "resend confirmation")
		return
	}
	response.OK(c)
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req domain.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "forgot password request")
		return
	}
	if err := h.svc.Accounts.ForgotPassword(c.Request.Context(), req.User); err != nil {
		fail(c, err, "send reset link")
		return
	}
	response.OK(c)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req domain.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "reset password request")
		return
	}
	if err := h.svc.Accounts.ResetPassword(c.Request.Context(), &req); err != nil {
		fail(c, err, "reset password")
		return
	}
	response.OK(c)
}

// Logout revokes the presented token, or every session with {"all":true}.
func (h *Handler) Logout(c *gin.Context) {
	var req domain.LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err, "logout request")
			return
		}
	}
	if err := h.svc.Accounts.Logout(c.Request.Context(), middleware.GetClaims(c), req.All); err != nil {
		fail(c, err, "log out")
		return
	}
	response.OK(c)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := requestor(c)
	if !ok {
		return
	}
	var req domain.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "change password request")
		return
	}

	pair, err := h.svc.Accounts.ChangePassword(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err, "change password")
		return
	}
	response.Success(c, pair)
}
