package service

import (
	"context"
	"errors"

	"github.com/StormyOasis/linsta-sub001/internal/media"
	"github.com/StormyOasis/linsta-sub001/internal/outbox"
	"github.com/StormyOasis/linsta-sub001/internal/saga"
)

// uploadStep stores one image; compensation deletes the object again.
func (b *base) uploadStep(upload func(context.Context) (*media.Stored, error), out **media.Stored) saga.Step {
	return saga.Step{
		Name: "storage.upload",
		Do: func(ctx context.Context) error {
			st, err := upload(ctx)
			if err != nil {
				return err
			}
			*out = st
			return nil
		},
		Undo: func(ctx context.Context) error { return b.Media.Remove(ctx, (*out).Key) },
		Repair: func() saga.Repair {
			return saga.Repair{Kind: outbox.KindStorageDelete, Target: (*out).Key}
		},
	}
}

func mediaErr(err error) error {
	if errors.Is(err, media.ErrInvalidImage) {
		return invalidf("upload is not a supported image")
	}
	return err
}
