package ports

import (
	"context"

	"github.com/bnema/gestation-osc/internal/domain"
)

type Sender interface {
	Send(ctx context.Context, msg domain.Message) error
}
