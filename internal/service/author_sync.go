package service

import (
	"context"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/outbox"
	"github.com/StormyOasis/linsta-sub001/internal/saga"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
)

// AuthorSync rewrites the author fields denormalised into post documents
// after a user renames or changes their photo.
type AuthorSync struct {
	*base
}

func NewAuthorSync(deps Deps, opts Options) *AuthorSync {
	return &AuthorSync{base: newBase(deps, opts)}
}

// HandleProfileUpdated updates every post of the user and drops the cached
// copies so readers see the new author. A failed sync is queued as a repair
// that re-reads the user, since the event itself is not redelivered.
func (a *AuthorSync) HandleProfileUpdated(ctx context.Context, ev *domain.ProfileUpdatedPayload) error {
	err := a.sync(ctx, domain.PostAuthor{
		UserID:   ev.UserID,
		UserName: ev.UserName,
		PfpURL:   ev.PfpURL,
	})
	if err != nil {
		a.repairLater(ctx, saga.Repair{Kind: outbox.KindIndexSyncAuthor, Target: ev.UserID}, err)
	}
	return nil
}

func (a *AuthorSync) sync(ctx context.Context, author domain.PostAuthor) error {
	updated, err := a.Posts.UpdateAuthor(ctx, author)
	if err != nil {
		return err
	}

	refs, err := a.Graph.GetPostRefsByUser(ctx, author.UserID)
	if err != nil {
		return repoErr(err, "user")
	}
	keys := make([]string, 0, len(refs))
	for _, r := range refs {
		keys = append(keys, a.Cache.PostKey(r.ESID))
	}
	if len(keys) > 0 {
		if err := a.Cache.Delete(ctx, keys...); err != nil {
			return err
		}
	}

	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldUserID, author.UserID).
		Int64("posts_updated", updated).
		Msg("author fields synced")
	return nil
}
