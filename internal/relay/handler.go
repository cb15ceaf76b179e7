package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/observability"
	"github.com/rs/zerolog"
)

// Handler receives every inbound message. Start is called once before the
// first Handle.
type Handler interface {
	Start(ctx context.Context)
	Handle(ctx context.Context, msg domain.Message)
}

// Handlers fans messages out to handlers in registration order, one at a
// time, on the caller's goroutine.
type Handlers struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   zerolog.Logger
}

func NewHandlers(logger zerolog.Logger, handlers ...Handler) *Handlers {
	return &Handlers{handlers: handlers, logger: logger}
}

func (h *Handlers) Add(handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(h.handlers, handler)
}

func (h *Handlers) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

func (h *Handlers) Start(ctx context.Context) {
	for _, handler := range h.snapshot() {
		h.call(func() { handler.Start(ctx) }, "start")
	}
}

func (h *Handlers) Dispatch(ctx context.Context, msg domain.Message) {
	for _, handler := range h.snapshot() {
		h.call(func() { handler.Handle(ctx, msg) }, msg.Address)
	}
}

func (h *Handlers) snapshot() []Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Handler(nil), h.handlers...)
}

// call runs fn and turns a panic into a logged error so one bad handler does
// not take the receive loop down.
func (h *Handlers) call(fn func(), op string) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordHandlerPanic()
			h.logger.Error().Str("op", op).Str("panic", fmt.Sprint(r)).Msg("handler panicked")
		}
	}()
	fn()
}
