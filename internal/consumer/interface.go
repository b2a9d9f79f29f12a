package consumer

import (
	"context"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

// ProfileUpdatedHandler handles profile.updated events.
type ProfileUpdatedHandler interface {
	HandleProfileUpdated(ctx context.Context, event *domain.ProfileUpdatedPayload) error
}
