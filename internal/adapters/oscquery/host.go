package oscquery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/gestation-osc/internal/observability"
	"github.com/bnema/gestation-osc/internal/relay"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 2 * time.Second

// Node is one entry of an OSCQuery address tree.
type Node struct {
	FullPath    string           `json:"FULL_PATH"`
	Access      int              `json:"ACCESS"`
	Description string           `json:"DESCRIPTION,omitempty"`
	Contents    map[string]*Node `json:"CONTENTS,omitempty"`
}

type HostInfo struct {
	Name         string          `json:"NAME"`
	OSCIP        string          `json:"OSC_IP"`
	OSCPort      uint16          `json:"OSC_PORT"`
	OSCTransport string          `json:"OSC_TRANSPORT"`
	Extensions   map[string]bool `json:"EXTENSIONS"`
}

// BuildTree turns capabilities into an address tree rooted at "/".
func BuildTree(caps relay.Capabilities) *Node {
	root := &Node{FullPath: "/"}
	for _, capability := range caps {
		node := root
		for _, segment := range strings.Split(strings.Trim(capability.Address, "/"), "/") {
			if segment == "" {
				continue
			}
			if node.Contents == nil {
				node.Contents = map[string]*Node{}
			}
			child, ok := node.Contents[segment]
			if !ok {
				child = &Node{FullPath: strings.TrimSuffix(node.FullPath, "/") + "/" + segment}
				node.Contents[segment] = child
			}
			node = child
		}
		node.Access = int(capability.Access)
		if capability.Description != "" {
			node.Description = capability.Description
		}
	}
	return root
}

func (n *Node) Find(path string) *Node {
	node := n
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "" {
			continue
		}
		child, ok := node.Contents[segment]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// Host serves this process's OSCQuery description over HTTP.
type Host struct {
	info   HostInfo
	tree   *Node
	router *gin.Engine
	logger zerolog.Logger

	listener net.Listener
	server   *http.Server
}

func NewHost(name string, osc relay.Endpoint, caps relay.Capabilities, logger zerolog.Logger) *Host {
	gin.SetMode(gin.ReleaseMode)

	h := &Host{
		info: HostInfo{
			Name:         name,
			OSCIP:        osc.Host,
			OSCPort:      osc.Port,
			OSCTransport: "UDP",
			Extensions:   map[string]bool{"ACCESS": true, "VALUE": false, "DESCRIPTION": true},
		},
		tree:   BuildTree(caps),
		logger: logger.With().Str("component", "oscquery_host").Logger(),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(h.logger))
	r.Use(observability.RequestMetricsMiddleware("oscquery"))
	r.GET("/*path", h.serveNode)
	h.router = r

	return h
}

func (h *Host) Handler() http.Handler {
	return h.router
}

// Listen binds addr ("host:0" for an ephemeral port) and returns the port.
func (h *Host) Listen(addr string) (uint16, error) {
	listener, err := net.Listen("tcp4", addr)
	if err != nil {
		return 0, fmt.Errorf("listen oscquery %s: %w", addr, err)
	}
	h.listener = listener
	h.server = &http.Server{Handler: h.router, ReadHeaderTimeout: 5 * time.Second}
	return uint16(listener.Addr().(*net.TCPAddr).Port), nil
}

// Serve blocks until ctx is done, then shuts the server down.
func (h *Host) Serve(ctx context.Context) error {
	if h.server == nil {
		return errors.New("oscquery host is not listening")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.server.Serve(h.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return h.server.Shutdown(shutdownCtx)
	}
}

func (h *Host) serveNode(c *gin.Context) {
	if _, ok := c.Request.URL.Query()["HOST_INFO"]; ok {
		c.JSON(http.StatusOK, h.info)
		return
	}

	node := h.tree.Find(c.Param("path"))
	if node == nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, node)
}
