package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/ports"
)

// Sujets NATS. Contrat implicite entre writers et listeners : un event par
// écriture réussie, payload = envelope {key, value}.
const (
	SubjectPostAdded    = "timeline.post.added"
	SubjectPostChanged  = "timeline.post.changed"
	SubjectChannelAdded = "channel.added"
)

// envelope transporte la paire (clé, valeur) du store distant.
type envelope struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type channelPayload struct {
	Name string `json:"name"`
}

type NatsEventStream struct {
	nc *nats.Conn
}

func NewNatsEventStream(nc *nats.Conn) *NatsEventStream {
	return &NatsEventStream{nc: nc}
}

// --- PUBLICATION ---

func (s *NatsEventStream) PublishPostAdded(ctx context.Context, key string, rec *domain.TimelineRecord) error {
	return s.publish(ctx, SubjectPostAdded, key, rec)
}

func (s *NatsEventStream) PublishPostChanged(ctx context.Context, key string, rec *domain.TimelineRecord) error {
	return s.publish(ctx, SubjectPostChanged, key, rec)
}

func (s *NatsEventStream) PublishChannelAdded(ctx context.Context, key, name string) error {
	return s.publish(ctx, SubjectChannelAdded, key, channelPayload{Name: name})
}

func (s *NatsEventStream) publish(ctx context.Context, subject, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal event value: %w", err)
	}
	data, err := json.Marshal(envelope{Key: key, Value: raw})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	// Injection du contexte de trace dans les headers NATS : le listener
	// hérite du TraceID du writer.
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	slog.Debug("📢 Publishing event", "subject", subject, "key", key)
	return s.nc.PublishMsg(msg)
}

// --- SUBSCRIPTION ---

func (s *NatsEventStream) SubscribePostAdded(handler ports.EventHandler) (ports.Subscription, error) {
	return s.subscribe(SubjectPostAdded, handler)
}

func (s *NatsEventStream) SubscribePostChanged(handler ports.EventHandler) (ports.Subscription, error) {
	return s.subscribe(SubjectPostChanged, handler)
}

func (s *NatsEventStream) SubscribeChannelAdded(handler ports.EventHandler) (ports.Subscription, error) {
	return s.subscribe(SubjectChannelAdded, handler)
}

func (s *NatsEventStream) subscribe(subject string, handler ports.EventHandler) (ports.Subscription, error) {
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		// Extraction du contexte de trace depuis les headers.
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))

		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			slog.Error("❌ Invalid event format", "subject", subject, "error", err)
			return
		}
		handler(ctx, env.Key, env.Value)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return &natsSubscription{sub: sub}, nil
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (n *natsSubscription) Unsubscribe() error {
	return n.sub.Unsubscribe()
}
