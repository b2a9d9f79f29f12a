package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/StormyOasis/linsta-sub001/internal/audit"
	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/outbox"
	"github.com/StormyOasis/linsta-sub001/internal/repository"
	"github.com/StormyOasis/linsta-sub001/internal/saga"
	"github.com/StormyOasis/linsta-sub001/internal/validate"
	"github.com/StormyOasis/linsta-sub001/pkg/jwt"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
)

type accountServiceImpl struct {
	*base
	tokens   TokenIssuer
	notifier AccountNotifier
}

// NewAccountService creates the account service.
func NewAccountService(deps Deps, opts Options, tokens TokenIssuer, notifier AccountNotifier) AccountService {
	return &accountServiceImpl{base: newBase(deps, opts), tokens: tokens, notifier: notifier}
}

// normalizeContact splits a sign-up contact into email and phone.
func normalizeContact(contact string) (email, phone string, err error) {
	switch validate.Contact(contact) {
	case validate.ContactEmail:
		return strings.ToLower(strings.TrimSpace(contact)), "", nil
	case validate.ContactPhone:
		return "", validate.NormalizePhone(contact), nil
	default:
		return "", "", invalidf("enter a valid email address or phone number")
	}
}

func contactOf(u *domain.User) string {
	if u.Email != "" {
		return u.Email
	}
	return u.Phone
}

// confirmTokenValue scopes a short numeric code to its user.
func confirmTokenValue(userID, code string) string {
	return userID + ":" + code
}

func (s *accountServiceImpl) checkSignup(req *domain.SignupRequest) error {
	switch {
	case strings.TrimSpace(req.UserName) == "":
		return invalidf("user name is required")
	case !validate.UserNameFormat(req.UserName):
		return invalidf("user name may only contain letters and digits")
	case validate.IsReserved(req.UserName):
		return invalidf("user name is not available")
	case !validate.Password(req.Password):
		return invalidf("password must be 8 to 15 characters with upper and lower case letters, a digit and a symbol")
	}
	return nil
}

func (s *accountServiceImpl) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	if err := s.checkSignup(req); err != nil {
		return nil, err
	}
	email, phone, err := normalizeContact(req.EmailOrPhone)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:           s.IDs.UserID(),
		UserName:     req.UserName,
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	if err := tx.CreateUser(ctx, user); err != nil {
		return nil, repoErr(err, "user")
	}
	if req.DryRun {
		// Uniqueness was checked inside the transaction; the deferred
		// rollback discards the vertex.
		return nil, nil
	}

	code, err := s.IDs.ConfirmCode()
	if err != nil {
		return nil, err
	}
	if err := tx.MergeToken(ctx, user.ID, domain.Token{
		Kind:      domain.TokenConfirm,
		Value:     confirmTokenValue(user.ID, code),
		ExpiresAt: now.Add(s.opts.CodeTTL),
	}); err != nil {
		return nil, repoErr(err, "user")
	}

	profile := domain.ProfileOf(user)
	sg := s.Sagas.Start("account.signup")
	defer sg.Abort(ctx)

	if err := sg.Run(ctx, saga.Step{
		Name: "index.profile",
		Do:   func(ctx context.Context) error { return s.Profiles.Index(ctx, profile) },
		Undo: func(ctx context.Context) error { return s.Profiles.Delete(ctx, user.ID) },
		Repair: func() saga.Repair {
			return saga.Repair{Kind: outbox.KindIndexDeleteProfile, Target: user.ID}
		},
	}); err != nil {
		l.Error().Err(err).Msg("signup: failed to index profile")
		return nil, err
	}
	if err := sg.Run(ctx, commitStep(tx)); err != nil {
		l.Error().Err(err).Msg("signup: failed to commit")
		return nil, err
	}
	sg.Complete()

	audit.Log(ctx, audit.ActionSignup, user.ID, "account created")
	s.publish(ctx, pubsub.TopicAccount, domain.EventUserSignedUp, user.ID, domain.UserEventPayload{UserID: user.ID, UserName: user.UserName})

	if err := s.notifier.SendConfirmCode(ctx, contactOf(user), user.UserName, code); err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, user.ID).Msg("signup: failed to send confirmation code")
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.UserName)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponse{User: profile, TokenPair: pair}, nil
}

// CheckUserName reports whether userName is free.
func (s *accountServiceImpl) CheckUserName(ctx context.Context, userName string) (bool, error) {
	if !validate.UserNameFormat(userName) {
		return false, invalidf("user name may only contain letters and digits")
	}
	if validate.IsReserved(userName) {
		return false, nil
	}
	exists, err := s.Graph.UserNameExists(ctx, userName)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// findUser resolves a user name, email address or phone number.
func (s *accountServiceImpl) findUser(ctx context.Context, ident string) (*domain.User, error) {
	ident = strings.TrimSpace(ident)
	switch validate.Contact(ident) {
	case validate.ContactEmail:
		return s.Graph.GetUserByContact(ctx, strings.ToLower(ident))
	case validate.ContactPhone:
		return s.Graph.GetUserByContact(ctx, validate.NormalizePhone(ident))
	default:
		return s.Graph.GetUserByName(ctx, ident)
	}
}

func (s *accountServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	user, err := s.findUser(ctx, req.UserName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", req.UserName, "login failed: user not found")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, user.ID, req.UserName, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}
	if s.opts.RequireConfirm && !user.Confirmed {
		return nil, forbidden("confirm your account before logging in")
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.UserName)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")
	return &domain.AuthResponse{User: domain.ProfileOf(user), TokenPair: pair}, nil
}

func (s *accountServiceImpl) Refresh(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	pair, err := s.tokens.RefreshTokens(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrInvalidToken) || errors.Is(err, jwt.ErrExpiredToken) || errors.Is(err, jwt.ErrRevokedToken) {
			return nil, &Error{Kind: ErrUnauthorized, Msg: err.Error()}
		}
		return nil, err
	}
	return pair, nil
}

func (s *accountServiceImpl) Logout(ctx context.Context, claims *jwt.Claims, all bool) error {
	if claims == nil {
		return ErrUnauthorized
	}
	if err := s.tokens.RevokeToken(ctx, claims); err != nil {
		return err
	}
	if all {
		if err := s.tokens.RevokeUserTokens(ctx, claims.UserID); err != nil {
			return err
		}
	}
	audit.Log(ctx, audit.ActionLogout, claims.UserID, "user logged out")
	return nil
}

func (s *accountServiceImpl) Confirm(ctx context.Context, req *domain.ConfirmRequest) error {
	user, err := s.Graph.GetUserByName(ctx, req.UserName)
	if err != nil {
		return repoErr(err, "user")
	}
	if user.Confirmed {
		return nil
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	if _, err := tx.ConsumeToken(ctx, domain.TokenConfirm, confirmTokenValue(user.ID, req.Code), s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalidf("the confirmation code is wrong or has expired")
		}
		return err
	}
	if err := tx.SetConfirmed(ctx, user.ID); err != nil {
		return repoErr(err, "user")
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	audit.Log(ctx, audit.ActionConfirm, user.ID, "account confirmed")
	s.publish(ctx, pubsub.TopicAccount, domain.EventUserConfirmed, user.ID, domain.UserEventPayload{UserID: user.ID, UserName: user.UserName})
	return nil
}

func (s *accountServiceImpl) ResendConfirmation(ctx context.Context, userName string) error {
	user, err := s.Graph.GetUserByName(ctx, userName)
	if err != nil {
		return repoErr(err, "user")
	}
	if user.Confirmed {
		return invalidf("account is already confirmed")
	}

	code, err := s.IDs.ConfirmCode()
	if err != nil {
		return err
	}
	if err := s.storeToken(ctx, user.ID, domain.Token{
		Kind:      domain.TokenConfirm,
		Value:     confirmTokenValue(user.ID, code),
		ExpiresAt: s.now().Add(s.opts.CodeTTL),
	}); err != nil {
		return err
	}
	return s.notifier.SendConfirmCode(ctx, contactOf(user), user.UserName, code)
}

func (s *accountServiceImpl) storeToken(ctx context.Context, userID string, tok domain.Token) error {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	if err := tx.MergeToken(ctx, userID, tok); err != nil {
		return repoErr(err, "user")
	}
	return tx.Commit(ctx)
}

// ForgotPassword sends a reset link. Unknown users get the same answer as
// known ones so the endpoint cannot be used to probe for accounts.
func (s *accountServiceImpl) ForgotPassword(ctx context.Context, ident string) error {
	user, err := s.findUser(ctx, ident)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			l := log.Ctx(ctx)
			l.Debug().Msg("forgot password: no such user")
			return nil
		}
		return err
	}

	token, err := s.IDs.ResetToken()
	if err != nil {
		return err
	}
	if err := s.storeToken(ctx, user.ID, domain.Token{
		Kind:      domain.TokenReset,
		Value:     token,
		ExpiresAt: s.now().Add(s.opts.ResetTokenTTL),
	}); err != nil {
		return err
	}

	audit.Log(ctx, audit.ActionForgotPassword, user.ID, "password reset requested")
	return s.notifier.SendResetLink(ctx, contactOf(user), user.UserName, token)
}

func (s *accountServiceImpl) ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error {
	if !validate.Password(req.Password) {
		return invalidf("password must be 8 to 15 characters with upper and lower case letters, a digit and a symbol")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.BcryptCost)
	if err != nil {
		return err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	userID, err := tx.ConsumeToken(ctx, domain.TokenReset, req.Token, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalidf("the reset link is invalid or has expired")
		}
		return err
	}
	if err := tx.SetPassword(ctx, userID, string(hash)); err != nil {
		return repoErr(err, "user")
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	audit.Log(ctx, audit.ActionResetPassword, userID, "password reset")
	s.afterPasswordChange(ctx, userID)
	return nil
}

func (s *accountServiceImpl) ChangePassword(ctx context.Context, userID string, req *domain.ChangePasswordRequest) (*jwt.TokenPair, error) {
	user, err := s.Graph.GetUserByID(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return nil, invalidf("current password is incorrect")
	}
	if !validate.Password(req.NewPassword) {
		return nil, invalidf("password must be 8 to 15 characters with upper and lower case letters, a digit and a symbol")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	if err := tx.SetPassword(ctx, userID, string(hash)); err != nil {
		return nil, repoErr(err, "user")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionChangePassword, userID, "password changed")
	s.afterPasswordChange(ctx, userID)

	// Existing sessions were revoked; the caller gets a fresh pair.
	return s.tokens.GenerateTokenPair(user.ID, user.UserName)
}

// afterPasswordChange revokes sessions and tells the user.
func (s *accountServiceImpl) afterPasswordChange(ctx context.Context, userID string) {
	l := log.Ctx(ctx).With().Str(log.FieldUserID, userID).Logger()

	if err := s.tokens.RevokeUserTokens(ctx, userID); err != nil {
		l.Error().Err(err).Msg("failed to revoke sessions after password change")
	}
	s.publish(ctx, pubsub.TopicAccount, domain.EventPasswordChanged, userID, domain.UserEventPayload{UserID: userID})

	user, err := s.Graph.GetUserByID(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Msg("failed to load user for password change notice")
		return
	}
	if err := s.notifier.SendPasswordChanged(ctx, contactOf(user), user.UserName); err != nil {
		l.Warn().Err(err).Msg("failed to send password change notice")
	}
}
