package pubsub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"gatekeeper/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// localHTTPDispatcher implements MessageDispatcher by sending HTTP POST requests
// to a local endpoint, simulating Pub/Sub push behavior for development
type localHTTPDispatcher struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// PushMessage represents the structure of a Pub/Sub push message
// This mimics the format Google Pub/Sub uses when pushing to HTTP endpoints
type PushMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// NewLocalHTTPDispatcher creates a new local HTTP dispatcher for development
func NewLocalHTTPDispatcher(endpoint string, logger *slog.Logger) service.MessageDispatcher {
	return &localHTTPDispatcher{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Dispatch sends the message as a push envelope to the local endpoint
func (p *localHTTPDispatcher) Dispatch(ctx context.Context, msg *service.OutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.WithStack(err)
	}

	pushMsg := PushMessage{
		Subscription: "projects/local/subscriptions/auth-messages-sub",
	}
	pushMsg.Message.Data = base64.StdEncoding.EncodeToString(data)
	pushMsg.Message.MessageID = uuid.NewString()
	pushMsg.Message.PublishTime = time.Now().UTC().Format(time.RFC3339)
	pushMsg.Message.Attributes = messageAttributes(msg)

	body, err := json.Marshal(pushMsg)
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Add X-Request-Id header for tracing
	if msg.RequestID != "" {
		req.Header.Set("X-Request-Id", msg.RequestID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("delivery worker returned non-success status: %d", resp.StatusCode)
	}

	p.logger.Info("[LocalPubSub] Message dispatched",
		slog.String("endpoint", p.endpoint),
		slog.String("kind", string(msg.Kind)),
		slog.String("message_id", pushMsg.Message.MessageID),
	)

	return nil
}

// Close releases resources (no-op for HTTP client)
func (p *localHTTPDispatcher) Close() error {
	return nil
}

// messageAttributes carries routing metadata. The recipient and the code stay in the payload.
func messageAttributes(msg *service.OutboundMessage) map[string]string {
	attributes := map[string]string{
		"kind":    string(msg.Kind),
		"channel": string(msg.Channel),
	}
	if msg.RequestID != "" {
		attributes["request_id"] = msg.RequestID
	}

	return attributes
}
