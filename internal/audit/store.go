package audit

import (
	"context"

	"dim/pkg/domain"
)

type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor domain.Address) ([]Event, error)
}
