package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

// PubSubOrderPublisher publishes orders to a Pub/Sub topic.
type PubSubOrderPublisher struct {
	client  *pubsub.Client
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubOrderPublisher wraps an existing topic. The caller keeps ownership of its client.
func NewPubSubOrderPublisher(topic *pubsub.Topic) (*PubSubOrderPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order publisher: topic is required")
	}
	return &PubSubOrderPublisher{topic: topic, marshal: json.Marshal}, nil
}

// DialPubSub connects to projectID and resolves topicID. When emulatorHost is set the client
// talks plaintext gRPC to it without credentials.
func DialPubSub(ctx context.Context, projectID, topicID, emulatorHost string) (*PubSubOrderPublisher, error) {
	var opts []option.ClientOption
	if host := strings.TrimSpace(emulatorHost); host != "" {
		opts = append(opts,
			option.WithEndpoint(host),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub order publisher: new client: %w", err)
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub order publisher: check topic %s: %w", topicID, err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub order publisher: topic %s does not exist", topicID)
	}
	pub, err := NewPubSubOrderPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	pub.client = client
	return pub, nil
}

// PublishOrder publishes the order JSON and waits for the server ack.
func (p *PubSubOrderPublisher) PublishOrder(ctx context.Context, order domain.Order) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub order publisher: not initialised")
	}
	data, err := p.marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	attrs := map[string]string{"eventType": OrderPlacedEvent}
	setAttr(attrs, "orderId", order.ID)
	setAttr(attrs, "paymentMethod", order.PaymentMethod)
	if order.Coupon != nil {
		setAttr(attrs, "coupon", order.Coupon.Code)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order: %w", err)
	}
	return nil
}

// Close flushes pending messages and releases the client when this publisher created it.
func (p *PubSubOrderPublisher) Close() error {
	if p == nil || p.topic == nil {
		return nil
	}
	p.topic.Stop()
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

// Ping reports whether the topic is still reachable.
func (p *PubSubOrderPublisher) Ping(ctx context.Context) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub order publisher: not initialised")
	}
	exists, err := p.topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("topic %s does not exist", p.topic.ID())
	}
	return nil
}
