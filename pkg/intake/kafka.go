package intake

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"

	"github.com/Goden-Gun/channel-bridge/pkg/kafka"
	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
)

// Kafka executes commands consumed by a consumer group.
type Kafka struct {
	manager *kafka.Manager
	topic   string
	group   string
	exec    Executor
}

func NewKafka(manager *kafka.Manager, topic, group string, exec Executor) (*Kafka, error) {
	if manager == nil {
		return nil, errors.New("kafka manager nil")
	}
	if topic == "" {
		return nil, errors.New("kafka command topic empty")
	}
	return &Kafka{manager: manager, topic: topic, group: group, exec: exec}, nil
}

// Run consumes until ctx is done, rejoining the group after rebalances.
func (k *Kafka) Run(ctx context.Context) error {
	cg, err := k.manager.NewConsumerGroup(k.group)
	if err != nil {
		return err
	}
	defer cg.Close()

	go func() {
		for err := range cg.Errors() {
			log.WithError(err).WithField("group", k.group).Warn("kafka intake error")
		}
	}()

	handler := &commandHandler{intake: k}
	for {
		if err := cg.Consume(ctx, []string{k.topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			log.WithError(err).WithField("topic", k.topic).Error("kafka intake consume failed")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type commandHandler struct {
	intake *Kafka
}

func (h *commandHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *commandHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *commandHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.handle(session, msg)
		}
	}
}

func (h *commandHandler) handle(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) {
	k := h.intake
	ctx := kafka.ExtractTrace(session.Context(), msg.Headers)
	start := time.Now()
	cmd, err := dispatch(ctx, k.exec, "kafka", msg.Value)
	k.manager.ObserveConsume(msg.Topic, k.group, string(cmd.Type), time.Since(start), err)
	session.MarkMessage(msg, "")
}
