package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/outbox"
	"github.com/StormyOasis/linsta-sub001/internal/repository"
)

// RepairRegistrar accepts handlers for queued repair tasks.
type RepairRegistrar interface {
	Handle(kind string, h outbox.RepairHandler)
}

// postRestore is the payload of an index.put_post repair: the document to
// put back and the time stamped on the write it replaces.
type postRestore struct {
	Post         domain.Post `json:"post"`
	SupersededAt time.Time   `json:"supersededAt"`
}

// RegisterRepairs installs a handler for every repair kind the services
// queue. Handlers are idempotent; the relay retries them until they succeed.
func RegisterRepairs(r RepairRegistrar, deps Deps) {
	authors := NewAuthorSync(deps, Options{})
	r.Handle(outbox.KindIndexDeletePost, func(ctx context.Context, esID string, _ []byte) error {
		return deps.Posts.Delete(ctx, esID)
	})
	r.Handle(outbox.KindIndexPutPost, func(ctx context.Context, esID string, payload []byte) error {
		var rs postRestore
		if err := json.Unmarshal(payload, &rs); err != nil {
			return fmt.Errorf("decode post: %w", err)
		}
		// Restoring a document must not resurrect a post deleted since.
		if _, err := deps.Graph.GetPost(ctx, rs.Post.PostID); errors.Is(err, repository.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		// Nor undo an edit that succeeded after the failed one.
		cur, err := deps.Posts.Get(ctx, esID)
		switch {
		case err == nil && cur.UpdatedAt.After(rs.SupersededAt):
			return nil
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return err
		}
		p := rs.Post
		p.ESID = esID
		if err := deps.Posts.Index(ctx, &p); err != nil {
			return err
		}
		return deps.Cache.Delete(ctx, deps.Cache.PostKey(esID))
	})
	r.Handle(outbox.KindIndexDeleteProfile, func(ctx context.Context, userID string, _ []byte) error {
		return deps.Profiles.Delete(ctx, userID)
	})
	// The graph is authoritative for profiles, so the document is rebuilt
	// from it rather than from the state captured when the repair was queued.
	r.Handle(outbox.KindIndexPutProfile, func(ctx context.Context, userID string, _ []byte) error {
		u, err := deps.Graph.GetUserByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return deps.Profiles.Delete(ctx, userID)
		} else if err != nil {
			return err
		}
		return deps.Profiles.Index(ctx, domain.ProfileOf(u))
	})
	r.Handle(outbox.KindIndexSyncAuthor, func(ctx context.Context, userID string, _ []byte) error {
		u, err := deps.Graph.GetUserByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		return authors.sync(ctx, domain.PostAuthor{UserID: u.ID, UserName: u.UserName, PfpURL: u.PfpURL})
	})
	r.Handle(outbox.KindCacheDelete, func(ctx context.Context, key string, payload []byte) error {
		keys := []string{key}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &keys); err != nil {
				return fmt.Errorf("decode keys: %w", err)
			}
		}
		return deps.Cache.Delete(ctx, keys...)
	})
	r.Handle(outbox.KindStorageDelete, func(ctx context.Context, key string, _ []byte) error {
		return deps.Media.Remove(ctx, key)
	})
}
