// Package kafka forwards audit events to a Kafka topic with franz-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "claimdesk/pkg/platform/audit"
)

// Config selects the brokers and topic.
type Config struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

// Publisher produces each event synchronously, keyed by claim request so all
// events of one claim land on the same partition in order.
type Publisher struct {
	client            *kgo.Client
	topic             string
	partitions        int32
	replicationFactor int16
}

// message is the wire form of an audit event.
type message struct {
	ID             string `json:"id"`
	Category       string `json:"category"`
	Timestamp      string `json:"timestamp"`
	Action         string `json:"action"`
	UserID         string `json:"user_id,omitempty"`
	CompanyID      string `json:"company_id,omitempty"`
	ClaimRequestID string `json:"claim_request_id,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Reason         string `json:"reason,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
	ClientIP       string `json:"client_ip,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	Bot            bool   `json:"bot,omitempty"`
}

func optionalID(u uuid.UUID) string {
	if u == uuid.Nil {
		return ""
	}
	return u.String()
}

func encode(event audit.Event) ([]byte, error) {
	return json.Marshal(message{
		ID:             event.ID,
		Category:       string(event.Category),
		Timestamp:      event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:         event.Action,
		UserID:         optionalID(uuid.UUID(event.UserID)),
		CompanyID:      optionalID(uuid.UUID(event.CompanyID)),
		ClaimRequestID: optionalID(uuid.UUID(event.ClaimRequestID)),
		Subject:        event.Subject,
		Reason:         event.Reason,
		RequestID:      event.RequestID,
		ClientIP:       event.ClientIP,
		UserAgent:      event.UserAgent,
		Bot:            event.Bot,
	})
}

// recordKey groups events of a claim, falling back to the company, then the user.
func recordKey(event audit.Event) []byte {
	for _, u := range []uuid.UUID{
		uuid.UUID(event.ClaimRequestID),
		uuid.UUID(event.CompanyID),
		uuid.UUID(event.UserID),
	} {
		if u != uuid.Nil {
			return []byte(u.String())
		}
	}
	return nil
}

// New connects a producer. Call Close on shutdown.
func New(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p := &Publisher{
		client:            client,
		topic:             cfg.Topic,
		partitions:        cfg.Partitions,
		replicationFactor: cfg.ReplicationFactor,
	}
	if p.partitions <= 0 {
		p.partitions = 1
	}
	if p.replicationFactor <= 0 {
		p.replicationFactor = 1
	}
	return p, nil
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (p *Publisher) EnsureTopic(ctx context.Context) error {
	admin := kadm.NewClient(p.client)
	resp, err := admin.CreateTopic(ctx, p.partitions, p.replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, resp.Err)
	}
	return nil
}

// Publish implements audit.Sink.
func (p *Publisher) Publish(ctx context.Context, event audit.Event) error {
	value, err := encode(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   recordKey(event),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "category", Value: []byte(event.Category)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Publisher) Close() {
	p.client.Close()
}
