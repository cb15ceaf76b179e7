package ports

import (
	"context"

	"github.com/bnema/gestation-osc/internal/domain"
)

// SaveStore persists the whole avatar map. Load on a missing store returns
// empty save data, not an error.
type SaveStore interface {
	Load(ctx context.Context) (domain.SaveData, error)
	Store(ctx context.Context, data domain.SaveData) error
}
