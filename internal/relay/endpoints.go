package relay

import (
	"fmt"
	"net"
	"strconv"
	"sync"
)

// Endpoint is a host and port pair on the local network.
type Endpoint struct {
	Host string
	Port uint16
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

func (e Endpoint) URL() string {
	return "http://" + e.String()
}

// ParseEndpoint parses "host:port". The port must be non-zero.
func ParseEndpoint(raw string) (Endpoint, error) {
	host, portRaw, err := net.SplitHostPort(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}

	port, err := strconv.ParseUint(portRaw, 10, 16)
	if err != nil || port == 0 {
		return Endpoint{}, fmt.Errorf("parse endpoint %q: invalid port", raw)
	}
	if host == "" {
		host = "127.0.0.1"
	}

	return Endpoint{Host: host, Port: uint16(port)}, nil
}

// Endpoints is the registry of addresses learned while a transport runs.
// Writers are session setup and discovery; every send reads it fresh.
type Endpoints struct {
	mu        sync.RWMutex
	localPort *uint16
	remote    *Endpoint
	metadata  *Endpoint
}

func NewEndpoints() *Endpoints {
	return &Endpoints{}
}

func (e *Endpoints) SetLocalPort(port uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.localPort = &port
}

func (e *Endpoints) LocalPort() (uint16, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.localPort == nil {
		return 0, false
	}
	return *e.localPort, true
}

func (e *Endpoints) SetRemote(endpoint Endpoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remote = &endpoint
}

func (e *Endpoints) Remote() (Endpoint, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.remote == nil {
		return Endpoint{}, false
	}
	return *e.remote, true
}

func (e *Endpoints) SetMetadata(endpoint Endpoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metadata = &endpoint
}

func (e *Endpoints) Metadata() (Endpoint, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.metadata == nil {
		return Endpoint{}, false
	}
	return *e.metadata, true
}

// MetadataBaseURL returns "http://host:port" of the metadata endpoint.
func (e *Endpoints) MetadataBaseURL() (string, bool) {
	endpoint, ok := e.Metadata()
	if !ok {
		return "", false
	}
	return endpoint.URL(), true
}
