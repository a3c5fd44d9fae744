package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

var (
	ErrNilManager = errors.New("kafka manager nil")
	ErrNoTopic    = errors.New("kafka topic empty")
)

// PublishObserver is told about every event the sink publishes.
type PublishObserver interface {
	ObservePublish(topic string, duration time.Duration, err error)
}

// ConsumeObserver is told about every command the intake takes off a topic.
// eventType is the command type, err is what executing it returned.
type ConsumeObserver interface {
	ObserveConsume(topic, group, eventType string, duration time.Duration, err error)
}

type observers struct {
	publish PublishObserver
	consume ConsumeObserver
}

// Manager owns the producer used by the event sink and hands out consumer
// groups to the command intake. Both share one sarama config.
type Manager struct {
	cfg      Config
	producer sarama.SyncProducer
	base     *sarama.Config

	mu  sync.RWMutex
	obs observers

	closeOnce sync.Once
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers empty")
	}
	sc := saramaConfig(cfg)
	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &Manager{cfg: cfg, producer: producer, base: sc}, nil
}

// NewManagerWithProducer wraps an existing producer, such as a sarama mock.
func NewManagerWithProducer(cfg Config, producer sarama.SyncProducer) *Manager {
	return &Manager{cfg: cfg, producer: producer, base: saramaConfig(cfg)}
}

// SetPublishObserver must be called before the sink starts publishing.
func (m *Manager) SetPublishObserver(o PublishObserver) {
	m.setObservers(func(obs *observers) { obs.publish = o })
}

// SetConsumeObserver must be called before the intake starts consuming.
func (m *Manager) SetConsumeObserver(o ConsumeObserver) {
	m.setObservers(func(obs *observers) { obs.consume = o })
}

func (m *Manager) setObservers(fn func(*observers)) {
	if m == nil {
		return
	}
	m.mu.Lock()
	fn(&m.obs)
	m.mu.Unlock()
}

func (m *Manager) observers() observers {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.obs
}

// Topic is the configured event topic.
func (m *Manager) Topic() string {
	if m == nil {
		return ""
	}
	return m.cfg.Topic
}

// Publish writes one record to topic, or to the configured event topic when
// topic is empty. The trace context of ctx travels in the record headers.
func (m *Manager) Publish(ctx context.Context, topic string, key, value []byte) (err error) {
	if m == nil {
		return ErrNilManager
	}
	if topic == "" {
		topic = m.cfg.Topic
	}
	start := time.Now()
	defer func() {
		if o := m.observers().publish; o != nil {
			o.ObservePublish(topic, time.Since(start), err)
		}
	}()
	if topic == "" {
		return ErrNoTopic
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{Topic: topic, Headers: injectTrace(ctx)}
	if len(key) > 0 {
		msg.Key = sarama.ByteEncoder(key)
	}
	if len(value) > 0 {
		msg.Value = sarama.ByteEncoder(value)
	}
	_, _, err = m.producer.SendMessage(msg)
	return err
}

// ObserveConsume reports one consumed command to the consume observer.
func (m *Manager) ObserveConsume(topic, group, eventType string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	if o := m.observers().consume; o != nil {
		o.ObserveConsume(topic, group, eventType, duration, err)
	}
}

// NewConsumerGroup joins group starting from the newest offset, so commands
// queued while no bridge was running are not replayed.
func (m *Manager) NewConsumerGroup(group string) (sarama.ConsumerGroup, error) {
	if m == nil {
		return nil, ErrNilManager
	}
	if group == "" {
		return nil, errors.New("kafka consumer group empty")
	}
	sc := *m.base
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	return sarama.NewConsumerGroup(m.cfg.Brokers, group, &sc)
}

// Close stops the producer. Consumer groups are closed by their owners.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	var err error
	m.closeOnce.Do(func() {
		if m.producer != nil {
			err = m.producer.Close()
		}
	})
	return err
}
