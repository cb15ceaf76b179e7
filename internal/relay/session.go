package relay

import (
	"context"

	"github.com/bnema/gestation-osc/internal/domain"
)

type ServiceKind int

const (
	ServiceOSC ServiceKind = iota
	ServiceOSCQuery
)

func (k ServiceKind) String() string {
	switch k {
	case ServiceOSC:
		return "osc"
	case ServiceOSCQuery:
		return "oscquery"
	default:
		return "unknown"
	}
}

// ServiceEvent reports a peer service found on the network.
type ServiceEvent struct {
	Kind     ServiceKind
	Name     string
	Endpoint Endpoint
}

type Access int

const (
	AccessRead Access = 1 << iota
	AccessWrite

	AccessReadWrite = AccessRead | AccessWrite
)

// Capability is one address subtree a registered service exposes.
type Capability struct {
	Address     string
	Description string
	Access      Access
}

type Capabilities []Capability

// AvatarCapabilities is the subtree this relay needs from the peer.
func AvatarCapabilities() Capabilities {
	return Capabilities{
		{Address: "/avatar", Description: "avatar change notifications", Access: AccessReadWrite},
		{Address: "/avatar/parameters", Description: "avatar parameters", Access: AccessReadWrite},
	}
}

// Session is a discovery-capable connection to the peer: it finds peer
// services, registers this process under a name and delivers inbound
// messages to the registered callback.
type Session interface {
	OnConnect(fn func(ServiceEvent))
	Register(ctx context.Context, name string, caps Capabilities, handle func(domain.Message)) error
	Send(ctx context.Context, msg domain.Message, pattern string) error
	LocalPort() (uint16, bool)
	// Failed yields at most one error, when the receive path dies while
	// the session is still wanted.
	Failed() <-chan error
}
