package sink

import (
	"context"
	"errors"

	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
	"github.com/Goden-Gun/channel-bridge/pkg/envelope"
	"github.com/Goden-Gun/channel-bridge/pkg/kafka"
)

// Kafka publishes event envelopes keyed by topic, so one topic's events
// stay on one partition.
type Kafka struct {
	manager *kafka.Manager
	topic   string
}

// NewKafka publishes to topic, or the manager default when empty.
func NewKafka(manager *kafka.Manager, topic string) (*Kafka, error) {
	if manager == nil {
		return nil, errors.New("kafka manager nil")
	}
	if topic == "" {
		topic = manager.Topic()
	}
	return &Kafka{manager: manager, topic: topic}, nil
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Publish(ctx context.Context, ev bridge.Event) error {
	data, err := envelope.Encode(ev)
	if err != nil {
		return err
	}
	return k.manager.Publish(ctx, k.topic, []byte(ev.Topic), data)
}
