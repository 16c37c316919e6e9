package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gatekeeper/internal/domain/service"

	"cloud.google.com/go/pubsub/v2"
	pubsubpb "cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/pkg/errors"
)

// googlePubSubDispatcher implements MessageDispatcher using Google Cloud Pub/Sub
type googlePubSubDispatcher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	logger    *slog.Logger
}

// NewGooglePubSubDispatcher creates a new Google Pub/Sub dispatcher
func NewGooglePubSubDispatcher(ctx context.Context, projectID, topicID string, logger *slog.Logger) (service.MessageDispatcher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Check if topic exists using TopicAdminClient
	topicPath := fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
	_, err = client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
		Topic: topicPath,
	})
	if err != nil {
		client.Close()

		return nil, errors.Wrapf(err, "failed to get topic %s", topicID)
	}

	publisher := client.Publisher(topicID)

	logger.Info("Google Pub/Sub dispatcher initialized",
		slog.String("project_id", projectID),
		slog.String("topic_id", topicID),
	)

	return &googlePubSubDispatcher{
		client:    client,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Dispatch publishes a message to Google Pub/Sub and waits for the server ack
func (p *googlePubSubDispatcher) Dispatch(ctx context.Context, msg *service.OutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.WithStack(err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: messageAttributes(msg),
	})

	serverID, err := result.Get(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	p.logger.Info("[GooglePubSub] Message dispatched",
		slog.String("kind", string(msg.Kind)),
		slog.String("channel", string(msg.Channel)),
		slog.String("server_id", serverID),
	)

	return nil
}

// Close releases Pub/Sub client resources
func (p *googlePubSubDispatcher) Close() error {
	if p.publisher != nil {
		p.publisher.Stop()
	}
	if p.client != nil {
		return errors.WithStack(p.client.Close())
	}

	return nil
}
