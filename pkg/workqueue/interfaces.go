package workqueue

import (
	"context"
	"time"

	"github.com/cybertwin/console/pkg/models"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// ActionService is the slice of the backend API the reconciler needs.
type ActionService interface {
	ListActions(ctx context.Context, status models.ActionStatus, limit, offset int) (*models.ActionListResponse, error)
	ApproveAction(ctx context.Context, id, notes string) (*models.Action, error)
	RejectAction(ctx context.Context, id, reason string) (*models.Action, error)
}
