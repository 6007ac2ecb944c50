package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/permission"
)

// DefaultCallTimeout bounds how long a Caller waits for a response.
const DefaultCallTimeout = 5 * time.Minute

// ErrCallTimeout is returned when no response arrived in time. The request
// may still complete on the bridge side.
var ErrCallTimeout = errors.New("timed out waiting for response")

// RemoteError is a failure reported in a response envelope.
type RemoteError struct {
	Action  Action
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// PermissionFunc answers a permission prompt on the page side.
type PermissionFunc func(ctx context.Context, req *PermissionRequest) permission.Result

// CallOptions are the per-request envelope flags.
type CallOptions struct {
	IsExtension bool
	AppInfo     *AppInfo
	SkipAuth    bool
	// Timeout overrides the caller's timeout when positive.
	Timeout time.Duration
}

// Caller is the page-side end of the protocol: it sends requests, matches
// responses by request id, and answers permission prompts.
type Caller struct {
	ch           Channel
	timeout      time.Duration
	onPermission PermissionFunc

	mu      sync.Mutex
	waiting map[string]chan *ResponseEnvelope
}

// NewCaller creates a caller on ch. A nil onPermission declines every
// prompt. Run must be running for calls to complete.
func NewCaller(ch Channel, onPermission PermissionFunc) *Caller {
	if onPermission == nil {
		onPermission = func(context.Context, *PermissionRequest) permission.Result {
			return permission.Result{Accepted: false}
		}
	}
	return &Caller{
		ch:           ch,
		timeout:      DefaultCallTimeout,
		onPermission: onPermission,
		waiting:      make(map[string]chan *ResponseEnvelope),
	}
}

// SetTimeout changes the default wait for responses.
func (c *Caller) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Run reads the channel until it fails or ctx is done.
func (c *Caller) Run(ctx context.Context) error {
	for {
		raw, err := c.ch.Receive(ctx)
		if err != nil {
			return err
		}
		msg, err := Decode(raw)
		if err != nil {
			continue
		}
		switch m := msg.(type) {
		case *ResponseEnvelope:
			c.deliver(m)
		case *PermissionRequest:
			go c.answer(ctx, m)
		}
	}
}

// Call sends a request and waits for its response. The response payload is
// returned raw; a response error is returned as *RemoteError.
func (c *Caller) Call(ctx context.Context, action Action, payload any, opts CallOptions) (json.RawMessage, error) {
	req, err := NewRequest(uuid.NewString(), action, payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req.IsExtension = opts.IsExtension
	req.AppInfo = opts.AppInfo
	req.SkipAuth = opts.SkipAuth

	reply := make(chan *ResponseEnvelope, 1)
	c.mu.Lock()
	c.waiting[req.RequestID] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.waiting, req.RequestID)
		c.mu.Unlock()
	}()

	data, err := Encode(req)
	if err != nil {
		return nil, err
	}
	if err := c.ch.Send(ctx, data); err != nil {
		return nil, err
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-reply:
		if resp.Failed() {
			return nil, &RemoteError{Action: resp.Action, Message: resp.Error}
		}
		return resp.Payload, nil
	case <-timer.C:
		return nil, ErrCallTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CallJSON is Call followed by decoding the payload into out.
func (c *Caller) CallJSON(ctx context.Context, action Action, payload any, opts CallOptions, out any) error {
	raw, err := c.Call(ctx, action, payload, opts)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Caller) deliver(resp *ResponseEnvelope) {
	c.mu.Lock()
	reply, ok := c.waiting[resp.RequestID]
	delete(c.waiting, resp.RequestID)
	c.mu.Unlock()
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":   "Caller.deliver",
			"request_id": resp.RequestID,
		}).Debug("Dropping response nobody is waiting for")
		return
	}
	reply <- resp
}

func (c *Caller) answer(ctx context.Context, req *PermissionRequest) {
	res := c.onPermission(ctx, req)
	data, err := Encode(&PermissionResponse{
		Action:    PermissionResponseAction,
		RequestID: req.RequestID,
		Result:    res,
	})
	if err == nil {
		err = c.ch.Send(ctx, data)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Caller.answer",
			"request_id": req.RequestID,
			"error":      err.Error(),
		}).Warn("Failed to send permission response")
	}
}
