package metacache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/observability"
	"github.com/bnema/gestation-osc/internal/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL           = 5 * time.Second
	DefaultClearDebounce = 500 * time.Millisecond

	parametersPath = "/avatar/parameters"
	avatarPath     = "/avatar/change"
)

// Fetcher performs one HTTP GET and returns the response body.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// BaseURLFunc reports the metadata endpoint, if one is known yet.
type BaseURLFunc func() (string, bool)

type Config struct {
	TTL           time.Duration
	ClearDebounce time.Duration
}

// Cache keeps the parameter tree for TTL and the avatar id until ClearAvatar.
// The lock only guards field access; fetches run outside it and concurrent
// misses share one request.
type Cache struct {
	cfg      Config
	fetcher  Fetcher
	baseURL  BaseURLFunc
	executor Executor
	clock    ports.Clock
	logger   zerolog.Logger
	group    singleflight.Group

	mu          sync.Mutex
	lastFetched time.Time
	tree        *domain.ParameterTree
	avatarID    *domain.AvatarID
	avatarName  *string
	generation  uint64
}

var _ ports.AvatarMetadata = (*Cache)(nil)

func New(cfg Config, fetcher Fetcher, baseURL BaseURLFunc, executor Executor, clock ports.Clock, logger zerolog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.ClearDebounce <= 0 {
		cfg.ClearDebounce = DefaultClearDebounce
	}
	if executor == nil {
		executor = Inline{}
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Cache{
		cfg:      cfg,
		fetcher:  fetcher,
		baseURL:  baseURL,
		executor: executor,
		clock:    clock,
		logger:   logger,
	}
}

// ParameterTree returns the cached tree while it is younger than the TTL and
// fetches it otherwise. Every failure yields the empty tree.
func (c *Cache) ParameterTree(ctx context.Context) domain.ParameterTree {
	now := c.clock.Now()

	c.mu.Lock()
	if c.tree != nil && now.Sub(c.lastFetched) < c.cfg.TTL {
		tree := *c.tree
		c.mu.Unlock()
		observability.RecordMetadataLookup("tree", observability.LookupHit)
		return tree
	}
	generation := c.generation
	c.mu.Unlock()

	base, ok := c.base()
	if !ok {
		return domain.ParameterTree{}
	}

	body, err := c.get(ctx, "tree", base+parametersPath)
	if err != nil {
		observability.RecordMetadataLookup("tree", observability.LookupError)
		c.logger.Warn().Err(err).Msg("fetch parameter tree")
		return domain.ParameterTree{}
	}

	tree, err := domain.ParseParameterTree(body)
	if err != nil {
		observability.RecordMetadataLookup("tree", observability.LookupError)
		c.logger.Warn().Err(err).Msg("parse parameter tree")
		return domain.ParameterTree{}
	}
	observability.RecordMetadataLookup("tree", observability.LookupMiss)

	c.mu.Lock()
	if generation == c.generation {
		c.tree = &tree
		c.lastFetched = c.clock.Now()
	}
	c.mu.Unlock()

	return tree
}

// AvatarID returns the cached id or fetches it. ok is false when no metadata
// endpoint is known or the request fails. A body that is not JSON yields the
// empty id with ok true.
func (c *Cache) AvatarID(ctx context.Context) (domain.AvatarID, bool) {
	c.mu.Lock()
	if c.avatarID != nil {
		id := *c.avatarID
		c.mu.Unlock()
		observability.RecordMetadataLookup("avatar", observability.LookupHit)
		return id, true
	}
	generation := c.generation
	c.mu.Unlock()

	base, ok := c.base()
	if !ok {
		return "", false
	}

	body, err := c.get(ctx, "avatar", base+avatarPath)
	if err != nil {
		observability.RecordMetadataLookup("avatar", observability.LookupError)
		c.logger.Warn().Err(err).Msg("fetch avatar id")
		return "", false
	}

	node, err := domain.ParseParameterTree(body)
	if err != nil {
		observability.RecordMetadataLookup("avatar", observability.LookupError)
		c.logger.Warn().Err(err).Msg("parse avatar id")
		return "", true
	}
	observability.RecordMetadataLookup("avatar", observability.LookupMiss)

	raw, _ := node.Lookup("/VALUE/0")
	value, ok := raw.(string)
	if !ok {
		c.logger.Warn().Msg("avatar change node has no string value")
		return "", false
	}

	id := domain.AvatarID(value)
	c.mu.Lock()
	if generation == c.generation {
		c.avatarID = &id
		if description, ok := node.Lookup("/DESCRIPTION"); ok {
			if name, ok := description.(string); ok && name != "" {
				c.avatarName = &name
			}
		}
	}
	c.mu.Unlock()

	return id, true
}

// AvatarName returns the description published with the avatar id, if any.
func (c *Cache) AvatarName() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.avatarName == nil {
		return "", false
	}
	return *c.avatarName, true
}

// ClearAvatar drops the avatar id, name and tree, unless no tree was ever
// fetched or the last fetch or clear happened within the debounce window.
// Results of fetches already in flight are discarded.
func (c *Cache) ClearAvatar() {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastFetched.IsZero() || now.Sub(c.lastFetched) <= c.cfg.ClearDebounce {
		return
	}

	c.avatarID = nil
	c.avatarName = nil
	c.tree = nil
	c.lastFetched = now
	c.generation++
	c.group.Forget("tree")
	c.group.Forget("avatar")
}

func (c *Cache) base() (string, bool) {
	if c.baseURL == nil {
		return "", false
	}
	base, ok := c.baseURL()
	if !ok || base == "" {
		return "", false
	}
	return base, true
}

func (c *Cache) get(ctx context.Context, key, url string) ([]byte, error) {
	if c.fetcher == nil {
		return nil, errors.New("no metadata fetcher")
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		var (
			body     []byte
			fetchErr error
		)
		if err := c.executor.Run(ctx, func() {
			body, fetchErr = c.fetcher.Get(ctx, url)
		}); err != nil {
			return nil, fmt.Errorf("run fetch: %w", err)
		}
		if fetchErr != nil {
			return nil, fetchErr
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
