package service

import (
	"context"
	"errors"
	"io"

	"github.com/StormyOasis/linsta-sub001/internal/audit"
	"github.com/StormyOasis/linsta-sub001/internal/cache"
	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/media"
	"github.com/StormyOasis/linsta-sub001/internal/outbox"
	"github.com/StormyOasis/linsta-sub001/internal/saga"
	"github.com/StormyOasis/linsta-sub001/internal/validate"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
)

type profileServiceImpl struct {
	*base
}

// NewProfileService creates the profile service.
func NewProfileService(deps Deps, opts Options) ProfileService {
	return &profileServiceImpl{base: newBase(deps, opts)}
}

func (s *profileServiceImpl) GetByID(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.cachedProfile(ctx, s.Cache.ProfileKeyByID(userID), func(ctx context.Context) (*domain.User, error) {
		return s.Graph.GetUserByID(ctx, userID)
	})
}

func (s *profileServiceImpl) GetByName(ctx context.Context, userName string) (*domain.Profile, error) {
	return s.cachedProfile(ctx, s.Cache.ProfileKeyByName(userName), func(ctx context.Context) (*domain.User, error) {
		return s.Graph.GetUserByName(ctx, userName)
	})
}

// cachedProfile is the cache-aside read shared by both lookups. Concurrent
// misses on one key share a single graph read.
func (s *profileServiceImpl) cachedProfile(ctx context.Context, key string, load func(context.Context) (*domain.User, error)) (*domain.Profile, error) {
	if p, err := s.Cache.GetProfile(ctx, key); err == nil {
		s.Metrics.CacheLookup("profile", true)
		return p, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str("key", key).Msg("profile cache read failed")
	}
	s.Metrics.CacheLookup("profile", false)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		u, err := load(ctx)
		if err != nil {
			return nil, err
		}
		p := domain.ProfileOf(u)
		if err := s.Cache.SetProfile(ctx, p); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str("key", key).Msg("profile cache write failed")
		}
		return p, nil
	})
	if err != nil {
		return nil, repoErr(err, "user")
	}
	p := *v.(*domain.Profile)
	return &p, nil
}

func (s *profileServiceImpl) profileKeys(p *domain.Profile) []string {
	return []string{s.Cache.ProfileKeyByID(p.UserID), s.Cache.ProfileKeyByName(p.UserName)}
}

// indexProfileStep writes the new profile document and restores the old
// one on compensation.
func (s *profileServiceImpl) indexProfileStep(next, prev *domain.Profile) saga.Step {
	return saga.Step{
		Name: "index.profile",
		Do:   func(ctx context.Context) error { return s.Profiles.Index(ctx, next) },
		Undo: func(ctx context.Context) error { return s.Profiles.Index(ctx, prev) },
		Repair: func() saga.Repair {
			return saga.Repair{Kind: outbox.KindIndexPutProfile, Target: prev.UserID}
		},
	}
}

// afterProfileWrite drops both the old and the new cache entries and
// announces the change so post documents pick up the new author fields.
func (s *profileServiceImpl) afterProfileWrite(ctx context.Context, prev, next *domain.Profile) {
	keys := s.profileKeys(prev)
	if next.UserName != prev.UserName {
		keys = append(keys, s.Cache.ProfileKeyByName(next.UserName))
	}
	s.invalidate(ctx, keys...)

	payload := domain.ProfileUpdatedPayload{UserID: next.UserID, UserName: next.UserName, PfpURL: next.PfpURL}
	if prev.UserName != next.UserName {
		payload.OldUserName = prev.UserName
	}
	s.publish(ctx, pubsub.TopicProfile, domain.EventProfileUpdated, next.UserID, payload)
}

func (s *profileServiceImpl) Update(ctx context.Context, userID string, upd *domain.ProfileUpdate) (*domain.Profile, error) {
	if upd == nil || upd.Empty() {
		return nil, invalidf("nothing to update")
	}
	if upd.UserName != nil && !validate.UserName(*upd.UserName) {
		return nil, invalidf("user name is not available")
	}

	user, err := s.Graph.GetUserByID(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user")
	}
	prev := domain.ProfileOf(user)
	next := domain.ProfileOf(user)
	upd.Apply(next)

	sg := s.Sagas.Start("profile.update")
	defer sg.Abort(ctx)

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	if err := tx.UpdateUser(ctx, userID, upd.Properties()); err != nil {
		return nil, repoErr(err, "user")
	}

	if err := sg.Run(ctx, s.indexProfileStep(next, prev)); err != nil {
		return nil, err
	}
	if err := sg.Run(ctx, commitStep(tx)); err != nil {
		return nil, err
	}
	sg.Complete()

	s.afterProfileWrite(ctx, prev, next)
	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")
	return next, nil
}

func (s *profileServiceImpl) SetPhoto(ctx context.Context, userID string, r io.Reader) (*domain.Profile, error) {
	user, err := s.Graph.GetUserByID(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user")
	}
	prev := domain.ProfileOf(user)

	sg := s.Sagas.Start("profile.set_photo")
	defer sg.Abort(ctx)

	var stored *media.Stored
	if err := sg.Run(ctx, s.uploadStep(func(ctx context.Context) (*media.Stored, error) {
		return s.Media.StoreProfilePhoto(ctx, userID, r)
	}, &stored)); err != nil {
		return nil, mediaErr(err)
	}

	next, err := s.writePhoto(ctx, sg, prev, stored.URL)
	if err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.ActionSetPhoto, userID, "profile photo changed")
	return next, nil
}

func (s *profileServiceImpl) RemovePhoto(ctx context.Context, userID string) (*domain.Profile, error) {
	user, err := s.Graph.GetUserByID(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user")
	}
	prev := domain.ProfileOf(user)
	if prev.PfpURL == "" {
		return prev, nil
	}

	sg := s.Sagas.Start("profile.remove_photo")
	defer sg.Abort(ctx)

	next, err := s.writePhoto(ctx, sg, prev, "")
	if err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.ActionRemovePhoto, userID, "profile photo removed")
	return next, nil
}

// writePhoto points the profile at url inside sg and removes the previous
// photo object once everything committed.
func (s *profileServiceImpl) writePhoto(ctx context.Context, sg *saga.Saga, prev *domain.Profile, url string) (*domain.Profile, error) {
	next := *prev
	next.PfpURL = url

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	if err := tx.UpdateUser(ctx, prev.UserID, map[string]any{"pfp": url}); err != nil {
		return nil, repoErr(err, "user")
	}
	if err := sg.Run(ctx, s.indexProfileStep(&next, prev)); err != nil {
		return nil, err
	}
	if err := sg.Run(ctx, commitStep(tx)); err != nil {
		return nil, err
	}
	sg.Complete()

	if key, ok := s.Media.KeyFromURL(prev.PfpURL); ok {
		if err := s.Media.Remove(ctx, key); err != nil {
			s.repairLater(ctx, saga.Repair{Kind: outbox.KindStorageDelete, Target: key}, err)
		}
	}
	s.afterProfileWrite(ctx, prev, &next)
	return &next, nil
}

func (s *profileServiceImpl) Follow(ctx context.Context, followerID, followeeID string, follow bool) (bool, error) {
	if followerID == followeeID {
		return false, invalidf("you cannot follow yourself")
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	defer rollback()

	changed, err := tx.SetFollow(ctx, followerID, followeeID, follow)
	if err != nil {
		return false, repoErr(err, "user")
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	if changed {
		action := audit.ActionFollow
		if !follow {
			action = audit.ActionUnfollow
		}
		audit.LogTarget(ctx, action, followerID, followeeID, "follow state changed")
		s.publish(ctx, pubsub.TopicGraph, domain.EventFollowChanged, followeeID,
			domain.EdgeEventPayload{FromID: followerID, ToID: followeeID, On: follow})
	}
	return changed, nil
}

func (s *profileServiceImpl) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.Graph.IsFollowing(ctx, followerID, followeeID)
}

func (s *profileServiceImpl) Followers(ctx context.Context, userID string, page domain.Page) ([]domain.UserSummary, error) {
	users, err := s.Graph.GetFollowers(ctx, userID, s.page(page))
	return users, repoErr(err, "user")
}

func (s *profileServiceImpl) Following(ctx context.Context, userID string, page domain.Page) ([]domain.UserSummary, error) {
	users, err := s.Graph.GetFollowing(ctx, userID, s.page(page))
	return users, repoErr(err, "user")
}

func (s *profileServiceImpl) Stats(ctx context.Context, userID string) (*domain.UserStats, error) {
	stats, err := s.Graph.GetUserStats(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user")
	}
	return stats, nil
}
