package domain

import "github.com/StormyOasis/linsta-sub001/pkg/jwt"

// SignupRequest creates an account. With DryRun set the input is fully
// checked, including name and contact uniqueness, and nothing is stored.
type SignupRequest struct {
	UserName     string `json:"userName" binding:"required,username"`
	Name         string `json:"name" binding:"max=64"`
	Password     string `json:"password" binding:"required,password"`
	EmailOrPhone string `json:"emailOrPhone" binding:"required,contact"`
	DryRun       bool   `json:"dryRun"`
}

// LoginRequest accepts a user name, an email address or a phone number.
type LoginRequest struct {
	UserName string `json:"userName" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type LogoutRequest struct {
	// All revokes every session of the user.
	All bool `json:"all"`
}

type ConfirmRequest struct {
	UserName string `json:"userName" binding:"required"`
	Code     string `json:"code" binding:"required,len=6,numeric"`
}

type ResendConfirmRequest struct {
	UserName string `json:"userName" binding:"required"`
}

// ForgotPasswordRequest names the account by user name, email or phone.
type ForgotPasswordRequest struct {
	User string `json:"user" binding:"required"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	User *Profile `json:"user"`
	*jwt.TokenPair
}
