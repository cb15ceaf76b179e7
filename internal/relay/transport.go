package relay

import (
	"context"
	"errors"

	"github.com/bnema/gestation-osc/internal/domain"
)

var (
	// ErrTransportFatal marks errors that stop the receive path.
	ErrTransportFatal = errors.New("transport fatal")
	ErrSendFailed     = errors.New("send failed")
	ErrNoRemote       = errors.New("remote endpoint unknown")
	ErrClosed         = errors.New("transport closed")
)

const (
	ModeDirect  = "direct"
	ModeManaged = "managed"
)

// Transport is the surface both connection modes offer to the rest of the
// process.
type Transport interface {
	Send(ctx context.Context, msg domain.Message) error
	LocalPort() (uint16, bool)
	MetadataBaseURL() (string, bool)
	// Run drives the receive path until ctx is done or a fatal error.
	Run(ctx context.Context) error
}
