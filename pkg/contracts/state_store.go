package contracts

import (
	"context"

	"github.com/XavierBriggs/Moneta/pkg/models"
)

// StateStore persists the single versioned state blob. Implementations
// must treat a missing or unparsable blob as fresh state on Load.
type StateStore interface {
	Load(ctx context.Context) (*models.PersistedState, error)
	Save(ctx context.Context, state *models.PersistedState) error
}

// ResultSink receives the report of each completed refresh. This is
// the seam to the presentation layer, which is outside the core.
type ResultSink interface {
	HandleReport(ctx context.Context, report *models.RefreshReport)
}

// ResultSinkFunc adapts a function to the ResultSink interface.
type ResultSinkFunc func(ctx context.Context, report *models.RefreshReport)

func (f ResultSinkFunc) HandleReport(ctx context.Context, report *models.RefreshReport) {
	f(ctx, report)
}
