package permission

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/store"
)

// DefaultTimeout is how long a prompt waits for the user before it counts as declined.
const DefaultTimeout = 60 * time.Second

// ErrDeclined is returned when the user declines a request or the prompt times out.
var ErrDeclined = errors.New("User declined request")

// Checkbox is an optional "always allow" box shown with a prompt.
type Checkbox struct {
	Value bool   `json:"value"`
	Label string `json:"label"`
}

// Prompt is the consent request rendered by the page. Only Text1 is required.
type Prompt struct {
	Text1           string            `json:"text1"`
	Text2           string            `json:"text2,omitempty"`
	Text3           string            `json:"text3,omitempty"`
	Text4           string            `json:"text4,omitempty"`
	HighlightedText string            `json:"highlightedText,omitempty"`
	Fee             string            `json:"fee,omitempty"`
	ForeignFee      string            `json:"foreignFee,omitempty"`
	Details         map[string]string `json:"details,omitempty"`
	Checkbox1       *Checkbox         `json:"checkbox1,omitempty"`
}

// Result is the user's answer.
type Result struct {
	Accepted  bool `json:"accepted"`
	Checkbox1 bool `json:"checkbox1,omitempty"`
}

// Prompter delivers a prompt to the user and blocks for the answer. It must
// return when ctx is done.
type Prompter interface {
	Prompt(ctx context.Context, prompt Prompt, isFromExtension bool) (Result, error)
}

// Gate stands between privileged actions and their side effects.
type Gate struct {
	prompter Prompter
	store    store.Store
	timeout  time.Duration
}

// NewGate creates a gate. A zero timeout uses DefaultTimeout.
func NewGate(p Prompter, s store.Store, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{prompter: p, store: s, timeout: timeout}
}

// Timeout returns the prompt timeout.
func (g *Gate) Timeout() time.Duration { return g.timeout }

// GetUserPermission shows prompt and waits for the answer. A prompt left
// unanswered for the gate's timeout resolves to not accepted. Only a caller
// cancellation is reported as an error.
func (g *Gate) GetUserPermission(ctx context.Context, prompt Prompt, isFromExtension bool) (Result, error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.prompter.Prompt(waitCtx, prompt, isFromExtension)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		logrus.WithFields(logrus.Fields{
			"function": "GetUserPermission",
			"error":    err.Error(),
		}).Warn("Permission prompt failed, treating as declined")
	} else {
		logrus.WithFields(logrus.Fields{
			"function": "GetUserPermission",
			"timeout":  g.timeout,
		}).Info("Permission prompt timed out")
	}
	return Result{Accepted: false}, nil
}

// IsRemembered reports whether an "always allow" record is set for key.
// Store failures read as not remembered.
func (g *Gate) IsRemembered(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	ok, err := store.GetBool(ctx, g.store, key)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "IsRemembered",
			"key":      key,
			"error":    err.Error(),
		}).Warn("Failed to read permission record")
		return false
	}
	return ok
}

// Remember persists value under key.
func (g *Gate) Remember(ctx context.Context, key string, value bool) error {
	if key == "" {
		return errors.New("permission key is empty")
	}
	return store.SetJSON(ctx, g.store, key, value)
}

// Authorize returns nil when the action may proceed. A remembered key skips
// the prompt entirely. Otherwise the user is asked; when key is non-empty
// the prompt carries an "always allow" box and a checked box is persisted.
// The returned bool reports whether the prompt was skipped.
func (g *Gate) Authorize(ctx context.Context, key string, prompt Prompt, isFromExtension bool) (bool, error) {
	if g.IsRemembered(ctx, key) {
		return true, nil
	}
	if key != "" && prompt.Checkbox1 == nil {
		prompt.Checkbox1 = &Checkbox{Value: false, Label: "Always allow this for this app"}
	}

	res, err := g.GetUserPermission(ctx, prompt, isFromExtension)
	if err != nil {
		return false, err
	}
	if !res.Accepted {
		return false, ErrDeclined
	}
	if key != "" && res.Checkbox1 {
		if err := g.Remember(ctx, key, true); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Authorize",
				"key":      key,
				"error":    err.Error(),
			}).Warn("Failed to persist permission record")
		}
	}
	return false, nil
}
