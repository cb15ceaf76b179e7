package ports

import (
	"context"

	"github.com/bnema/gestation-osc/internal/domain"
)

// AvatarMetadata answers questions about the peer's current avatar. Both
// queries are best effort: failures surface as an empty tree or ok=false.
type AvatarMetadata interface {
	ParameterTree(ctx context.Context) domain.ParameterTree
	AvatarID(ctx context.Context) (domain.AvatarID, bool)
	ClearAvatar()
}
