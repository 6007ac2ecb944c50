package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/limits"
	"github.com/opd-ai/qbridge/permission"
)

var (
	// ErrNoSession is returned by Prompt when ctx was not created by the
	// dispatcher for a request.
	ErrNoSession = errors.New("no channel to prompt on")
	// ErrSessionClosed is returned by Prompt when the channel's Serve loop
	// ended before the user answered.
	ErrSessionClosed = errors.New("channel closed before permission response")
	// ErrResponseTooLarge replaces a result whose encoded response exceeds
	// limits.MaxOutboundEnvelope.
	ErrResponseTooLarge = errors.New("response too large")
)

// session is one served channel.
type session struct {
	ch   Channel
	done chan struct{}
	wg   sync.WaitGroup
}

type sessionKey struct{}

// pendingPrompt is one entry of the correlation table.
type pendingPrompt struct {
	session *session
	reply   chan permission.Result
}

// Dispatcher routes requests to handlers and owns the correlation table for
// permission prompts. It implements permission.Prompter.
type Dispatcher struct {
	registry *Registry

	// work is the context handlers run under. Handlers are not cancelled
	// when their channel goes away, only when the dispatcher is closed.
	work       context.Context
	cancelWork context.CancelFunc

	mu      sync.Mutex
	pending map[string]*pendingPrompt
}

// NewDispatcher creates a dispatcher over r.
func NewDispatcher(r *Registry) *Dispatcher {
	work, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		registry:   r,
		work:       work,
		cancelWork: cancel,
		pending:    make(map[string]*pendingPrompt),
	}
}

// Serve reads ch until it fails or ctx is done. Requests are routed in the
// order they arrive and each runs in its own goroutine; Serve returns after
// every request it routed has been answered.
func (d *Dispatcher) Serve(ctx context.Context, ch Channel) error {
	s := &session{ch: ch, done: make(chan struct{})}
	defer func() {
		close(s.done)
		d.dropPending(s)
		s.wg.Wait()
	}()

	for {
		raw, err := ch.Receive(ctx)
		if err != nil {
			return err
		}
		msg, err := Decode(raw)
		if err != nil {
			continue
		}
		switch m := msg.(type) {
		case *RequestEnvelope:
			d.route(s, m)
		case *PermissionResponse:
			d.resolve(s, m)
		}
	}
}

// Close cancels in-flight handlers. Served channels are not closed.
func (d *Dispatcher) Close() error {
	d.cancelWork()
	return nil
}

// Pending returns the number of unanswered permission prompts.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) route(s *session, req *RequestEnvelope) {
	h, ok := d.registry.Lookup(req.Action)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":   "Dispatcher.route",
			"action":     req.Action,
			"request_id": req.RequestID,
		}).Debug("Dropping request for unknown action")
		return
	}

	rc := &RequestContext{
		RequestID:       req.RequestID,
		Action:          req.Action,
		IsFromExtension: req.IsExtension,
		SkipAuth:        req.SkipAuth,
	}
	if req.AppInfo != nil {
		rc.AppInfo = *req.AppInfo
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		d.execute(s, h, req.Payload, rc)
	}()
}

func (d *Dispatcher) execute(s *session, h Handler, payload json.RawMessage, rc *RequestContext) {
	ctx := context.WithValue(d.work, sessionKey{}, s)
	fields := logrus.Fields{
		"function":   "Dispatcher.execute",
		"action":     rc.Action,
		"request_id": rc.RequestID,
		"app":        rc.AppName(),
	}
	logrus.WithFields(fields).Debug("Executing request")

	resp := &ResponseEnvelope{Type: TypeResponse, RequestID: rc.RequestID, Action: rc.Action}
	result, err := invoke(ctx, h, payload, rc)
	if err == nil {
		resp.Payload, err = json.Marshal(result)
	}
	if err != nil {
		resp.Payload = nil
		resp.Error = err.Error()
		if resp.Error == "" {
			resp.Error = "Unknown error"
		}
		fields["error"] = resp.Error
		logrus.WithFields(fields).Info("Request failed")
	}

	data, err := Encode(resp)
	if err == nil {
		if err = limits.ValidateOutboundEnvelope(data); err == nil {
			err = s.ch.Send(ctx, data)
		}
	}
	if errors.Is(err, limits.ErrMessageTooLarge) {
		fields["size"] = len(data)
		logrus.WithFields(fields).Warn("Response too large, replying with an error")
		data, err = Encode(&ResponseEnvelope{
			Type:      TypeResponse,
			RequestID: rc.RequestID,
			Action:    rc.Action,
			Error:     ErrResponseTooLarge.Error(),
		})
		if err == nil {
			err = s.ch.Send(ctx, data)
		}
	}
	if err != nil {
		fields["error"] = err.Error()
		logrus.WithFields(fields).Warn("Failed to send response")
	}
}

// invoke calls h, turning a panic into an error.
func invoke(ctx context.Context, h Handler, payload json.RawMessage, rc *RequestContext) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "invoke",
				"action":     rc.Action,
				"request_id": rc.RequestID,
				"panic":      fmt.Sprint(r),
			}).Error("Handler panicked")
			result, err = nil, fmt.Errorf("internal error handling %s", rc.Action)
		}
	}()
	return h.Handle(ctx, payload, rc)
}

// Prompt sends a permission request on the channel the current request
// arrived on and waits for the matching response, ctx, or the end of the
// channel.
func (d *Dispatcher) Prompt(ctx context.Context, prompt permission.Prompt, isFromExtension bool) (permission.Result, error) {
	s, ok := ctx.Value(sessionKey{}).(*session)
	if !ok || s == nil {
		return permission.Result{}, ErrNoSession
	}

	id := uuid.NewString()
	p := &pendingPrompt{session: s, reply: make(chan permission.Result, 1)}
	d.mu.Lock()
	d.pending[id] = p
	d.mu.Unlock()
	defer d.remove(id)

	data, err := Encode(&PermissionRequest{
		Action:          PermissionRequestAction,
		Payload:         prompt,
		RequestID:       id,
		IsFromExtension: isFromExtension,
	})
	if err != nil {
		return permission.Result{}, err
	}
	if err := s.ch.Send(ctx, data); err != nil {
		return permission.Result{}, fmt.Errorf("send permission request: %w", err)
	}

	select {
	case res := <-p.reply:
		return res, nil
	case <-ctx.Done():
		return permission.Result{}, ctx.Err()
	case <-s.done:
		return permission.Result{}, ErrSessionClosed
	}
}

// resolve delivers a permission response to its waiting prompt. Responses
// for unknown ids or arriving on another channel are dropped.
func (d *Dispatcher) resolve(s *session, resp *PermissionResponse) {
	d.mu.Lock()
	p, ok := d.pending[resp.RequestID]
	if ok && p.session == s {
		delete(d.pending, resp.RequestID)
	}
	d.mu.Unlock()

	if !ok || p.session != s {
		logrus.WithFields(logrus.Fields{
			"function":   "Dispatcher.resolve",
			"request_id": resp.RequestID,
		}).Debug("Dropping unmatched permission response")
		return
	}
	p.reply <- resp.Result
}

func (d *Dispatcher) remove(id string) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

// dropPending forgets every prompt waiting on s. Their Prompt calls return
// through s.done.
func (d *Dispatcher) dropPending(s *session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, p := range d.pending {
		if p.session == s {
			delete(d.pending, id)
		}
	}
}
