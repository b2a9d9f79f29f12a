package audit

import (
	"context"

	"github.com/StormyOasis/linsta-sub001/pkg/log"
)

// Audit actions.
const (
	ActionSignup          = "account.signup"
	ActionConfirm         = "account.confirm"
	ActionLogin           = "account.login"
	ActionLoginFailed     = "account.login_failed"
	ActionLogout          = "account.logout"
	ActionRefreshToken    = "account.refresh_token"
	ActionForgotPassword  = "account.forgot_password"
	ActionResetPassword   = "account.reset_password"
	ActionChangePassword  = "account.change_password"
	ActionUpdateProfile   = "profile.update"
	ActionSetPhoto        = "profile.set_photo"
	ActionRemovePhoto     = "profile.remove_photo"
	ActionFollow          = "graph.follow"
	ActionUnfollow        = "graph.unfollow"
	ActionCreatePost      = "post.create"
	ActionUpdatePost      = "post.update"
	ActionDeletePost      = "post.delete"
	ActionCreateComment   = "comment.create"
	ActionDeleteComment   = "comment.delete"
	ActionForbiddenAccess = "authz.forbidden"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogTarget emits an audit entry about an action on another entity.
func LogTarget(ctx context.Context, action, userID, targetID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
