package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/bridge"
	"github.com/opd-ai/qbridge/crypto"
	"github.com/opd-ai/qbridge/limits"
	"github.com/opd-ai/qbridge/node"
	"github.com/opd-ai/qbridge/permission"
	"github.com/opd-ai/qbridge/retry"
	"github.com/opd-ai/qbridge/transaction"
)

const (
	defaultHostedLimit = 20
	maxTags            = 5
)

var serviceName = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,63}$`)

type resourcePayload struct {
	Service     string     `json:"service"`
	Name        string     `json:"name"`
	Identifier  string     `json:"identifier"`
	Data64      string     `json:"data64"`
	Base64      string     `json:"base64"`
	Data        string     `json:"data"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Tags        stringList `json:"tags"`
	Filename    string     `json:"filename"`
}

type publishPayload struct {
	resourcePayload
	Encrypt    bool       `json:"encrypt"`
	PublicKeys stringList `json:"publicKeys"`
}

type publishMultiplePayload struct {
	Resources  []resourcePayload `json:"resources"`
	Encrypt    bool              `json:"encrypt"`
	PublicKeys stringList        `json:"publicKeys"`
}

// PublishFailure describes one resource that could not be published.
type PublishFailure struct {
	Reason     string `json:"reason"`
	Identifier string `json:"identifier"`
	Service    string `json:"service"`
	Name       string `json:"name"`
}

// PublishSuccess is one published resource and the node's reply.
type PublishSuccess struct {
	Service    string `json:"service"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Result     any    `json:"result"`
}

// PublishReport is the PUBLISH_MULTIPLE_QDN_RESOURCES result. Every resource
// appears in exactly one of the two lists.
type PublishReport struct {
	Successes []PublishSuccess `json:"successes"`
	Failures  []PublishFailure `json:"failures"`
}

// preparedResource is a validated resource ready to publish.
type preparedResource struct {
	resourcePayload
	data []byte
}

func (r resourcePayload) failure(err error) PublishFailure {
	return PublishFailure{Reason: err.Error(), Identifier: r.Identifier, Service: r.Service, Name: r.Name}
}

// prepare validates r and decodes its content.
func prepare(r resourcePayload) (preparedResource, error) {
	b64 := firstNonEmpty(r.Data64, r.Base64)
	if err := requireFields(
		need("service", r.Service != ""),
		need("data64", b64 != "" || r.Data != ""),
	); err != nil {
		return preparedResource{}, err
	}
	if !serviceName.MatchString(r.Service) {
		return preparedResource{}, fmt.Errorf("invalid service %q", r.Service)
	}
	if len(r.Tags) > maxTags {
		return preparedResource{}, fmt.Errorf("at most %d tags are allowed", maxTags)
	}

	var data []byte
	if b64 != "" {
		var err error
		if data, err = base64.StdEncoding.DecodeString(b64); err != nil {
			return preparedResource{}, fmt.Errorf("%w: data64 is not valid base64", ErrInvalidPayload)
		}
	} else {
		data = []byte(r.Data)
	}
	if err := limits.ValidateQDNResource(data); err != nil {
		return preparedResource{}, err
	}
	return preparedResource{resourcePayload: r, data: data}, nil
}

// read prepares r on the reader queue, so that only one resource body is
// being decoded at a time across all requests.
func (s *Set) read(ctx context.Context, r resourcePayload) (preparedResource, error) {
	return retry.Enqueue(ctx, s.reader, func(context.Context) (preparedResource, error) {
		return prepare(r)
	})
}

func parseRecipients(keys []string) ([][32]byte, error) {
	out := make([][32]byte, 0, len(keys))
	for _, k := range keys {
		pub, err := crypto.PublicKeyFromBase58(k)
		if err != nil {
			return nil, fmt.Errorf("invalid public key %q: %w", k, err)
		}
		out = append(out, pub)
	}
	return out, nil
}

// publish uploads one prepared resource through the node's arbitrary
// transaction builder, then signs and broadcasts it.
func (s *Set) publish(ctx context.Context, r preparedResource, fee int64, recipients [][32]byte) (any, error) {
	data := r.data
	if recipients != nil {
		kp, err := s.wallet.KeyPair()
		if err != nil {
			return nil, err
		}
		data, err = crypto.EncryptForRecipients(r.data, kp, recipients)
		crypto.WipeKeyPair(kp)
		if err != nil {
			return nil, fmt.Errorf("encryption failed: %w", err)
		}
	}

	unsigned, err := s.node.BuildArbitrary(ctx, node.PublishRequest{
		Service:     r.Service,
		Name:        r.Name,
		Identifier:  r.Identifier,
		Base64Data:  base64.StdEncoding.EncodeToString(data),
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Tags:        r.Tags,
		Filename:    r.Filename,
		Fee:         fee,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build publish transaction: %w", err)
	}
	withNonce, err := s.node.ComputeArbitrary(ctx, unsigned)
	if err != nil {
		return nil, fmt.Errorf("failed to compute publish nonce: %w", err)
	}
	return s.signAndSubmit(ctx, withNonce, transaction.Arbitrary.String())
}

// encryptionRecipients returns nil when encryption is off.
func encryptionRecipients(encrypt bool, keys []string) ([][32]byte, error) {
	if !encrypt {
		return nil, nil
	}
	if len(keys) == 0 {
		return nil, errors.New("encrypting a resource requires publicKeys")
	}
	return parseRecipients(keys)
}

func (s *Set) publishQDNResource(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p publishPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	r, err := s.read(ctx, p.resourcePayload)
	if err != nil {
		return nil, err
	}
	recipients, err := encryptionRecipients(p.Encrypt, p.PublicKeys)
	if err != nil {
		return nil, err
	}
	if r.Name == "" {
		if r.Name, err = s.primaryName(ctx); err != nil {
			return nil, err
		}
	}

	fee, err := s.fee(ctx, transaction.Arbitrary)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to publish to QDN?",
		Text2:           "service: " + r.Service,
		Text3:           "identifier: " + r.Identifier,
		HighlightedText: "isEncrypted: " + fmt.Sprint(recipients != nil),
		Fee:             transaction.FormatAmount(fee),
	}); err != nil {
		return nil, err
	}
	return s.publish(ctx, r, fee, recipients)
}

// publishMultipleQDNResources publishes each resource independently and
// reports successes and failures together instead of failing the batch.
func (s *Set) publishMultipleQDNResources(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	var p publishMultiplePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("resources", len(p.Resources) > 0)); err != nil {
		return nil, err
	}
	recipients, err := encryptionRecipients(p.Encrypt, p.PublicKeys)
	if err != nil {
		return nil, err
	}

	var defaultName string
	for _, r := range p.Resources {
		if r.Name == "" {
			if defaultName, err = s.primaryName(ctx); err != nil {
				return nil, err
			}
			break
		}
	}

	report := PublishReport{Successes: []PublishSuccess{}, Failures: []PublishFailure{}}
	var ready []preparedResource
	for _, r := range p.Resources {
		if r.Name == "" {
			r.Name = defaultName
		}
		prepared, err := s.read(ctx, r)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			report.Failures = append(report.Failures, r.failure(err))
			continue
		}
		ready = append(ready, prepared)
	}
	if len(ready) == 0 {
		return report, nil
	}

	fee, err := s.fee(ctx, transaction.Arbitrary)
	if err != nil {
		return nil, err
	}
	details := make(map[string]string, len(ready))
	for i, r := range ready {
		details[fmt.Sprintf("resource %d", i+1)] = r.Service + "/" + r.Name + "/" + r.Identifier
	}
	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to publish to QDN?",
		Text2:           fmt.Sprintf("%d resources", len(ready)),
		HighlightedText: "isEncrypted: " + fmt.Sprint(recipients != nil),
		Fee:             transaction.FormatAmount(fee * int64(len(ready))),
		Details:         details,
	}); err != nil {
		return nil, err
	}

	for _, r := range ready {
		result, err := s.publish(ctx, r, fee, recipients)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "publishMultipleQDNResources",
				"service":    r.Service,
				"identifier": r.Identifier,
				"error":      err.Error(),
			}).Warn("Resource publish failed")
			report.Failures = append(report.Failures, r.failure(err))
			continue
		}
		report.Successes = append(report.Successes, PublishSuccess{
			Service:    r.Service,
			Name:       r.Name,
			Identifier: r.Identifier,
			Result:     result,
		})
	}
	return report, nil
}

type hostedPayload struct {
	Limit  optInt `json:"limit"`
	Offset optInt `json:"offset"`
	Query  string `json:"query"`
}

type hostedRef struct {
	Service    string `json:"service"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

type deleteHostedPayload struct {
	HostedData []hostedRef `json:"hostedData"`
}

func (s *Set) getHostedData(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	if err := s.requireLocalNode("hosted data"); err != nil {
		return nil, err
	}
	var p hostedPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	limit := defaultHostedLimit
	if p.Limit.Set && p.Limit.Value > 0 {
		limit = int(p.Limit.Value)
	}

	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1: "Do you give this application permission to get a list of your hosted data?",
	}); err != nil {
		return nil, err
	}

	resources, err := s.node.HostedResources(ctx, limit, int(p.Offset.Value), p.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosted data: %w", err)
	}
	if resources == nil {
		resources = []node.Resource{}
	}
	return resources, nil
}

// DeleteReport is the DELETE_HOSTED_DATA result.
type DeleteReport struct {
	Deleted  int              `json:"deleted"`
	Failures []PublishFailure `json:"failures"`
}

func (s *Set) deleteHostedData(ctx context.Context, payload json.RawMessage, rc *bridge.RequestContext) (any, error) {
	if err := s.requireLocalNode("hosted data"); err != nil {
		return nil, err
	}
	var p deleteHostedPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := requireFields(need("hostedData", len(p.HostedData) > 0)); err != nil {
		return nil, err
	}
	for _, h := range p.HostedData {
		if err := requireFields(need("service", h.Service != ""), need("name", h.Name != "")); err != nil {
			return nil, err
		}
	}

	if err := s.confirm(ctx, rc, permission.Prompt{
		Text1:           "Do you give this application permission to delete hosted data?",
		HighlightedText: fmt.Sprintf("%d resources", len(p.HostedData)),
	}); err != nil {
		return nil, err
	}

	report := DeleteReport{Failures: []PublishFailure{}}
	for _, h := range p.HostedData {
		identifier := firstNonEmpty(h.Identifier, "default")
		if err := s.node.DeleteHostedResource(ctx, h.Service, h.Name, identifier); err != nil {
			report.Failures = append(report.Failures, PublishFailure{
				Reason: err.Error(), Identifier: identifier, Service: h.Service, Name: h.Name,
			})
			continue
		}
		report.Deleted++
	}
	return report, nil
}
