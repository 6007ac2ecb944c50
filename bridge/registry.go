package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// RequestContext describes the request a handler is serving.
type RequestContext struct {
	RequestID       string
	Action          Action
	IsFromExtension bool
	AppInfo         AppInfo
	SkipAuth        bool
}

// AppName returns the calling application's name, or "".
func (rc *RequestContext) AppName() string {
	if rc == nil {
		return ""
	}
	return rc.AppInfo.Name
}

// Handler performs one action. The returned value is marshalled as the
// response payload; a non-nil error becomes the response error.
type Handler interface {
	Handle(ctx context.Context, payload json.RawMessage, rc *RequestContext) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload json.RawMessage, rc *RequestContext) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, payload json.RawMessage, rc *RequestContext) (any, error) {
	return f(ctx, payload, rc)
}

// Registry maps actions to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Action]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Action]Handler)}
}

// Register binds h to a. Unknown actions and nil handlers are rejected.
func (r *Registry) Register(a Action, h Handler) error {
	if !a.Valid() {
		return fmt.Errorf("unknown action %q", a)
	}
	if h == nil {
		return fmt.Errorf("nil handler for %s", a)
	}
	r.mu.Lock()
	r.handlers[a] = h
	r.mu.Unlock()
	return nil
}

// Lookup returns the handler bound to a.
func (r *Registry) Lookup(a Action) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[a]
	return h, ok
}

// Missing lists the known actions without a handler, sorted.
func (r *Registry) Missing() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Action
	for _, a := range allActions {
		if _, ok := r.handlers[a]; !ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
