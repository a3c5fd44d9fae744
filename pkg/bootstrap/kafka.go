package bootstrap

import (
	"github.com/Goden-Gun/channel-bridge/pkg/config"
	"github.com/Goden-Gun/channel-bridge/pkg/kafka"
)

// InitKafka initializes a shared Kafka manager from the service config.
func InitKafka(cfg config.KafkaConfig, observer kafka.PublishObserver) (*kafka.Manager, error) {
	m, err := kafka.NewManager(KafkaConfig(cfg))
	if err != nil {
		return nil, err
	}
	if observer != nil {
		m.SetPublishObserver(observer)
	}
	return m, nil
}

// KafkaConfig maps the service section onto the manager config.
func KafkaConfig(cfg config.KafkaConfig) kafka.Config {
	return kafka.Config{
		Brokers:       cfg.Brokers,
		Topic:         cfg.Topic,
		ClientID:      cfg.ClientID,
		Username:      cfg.Username,
		Password:      cfg.Password,
		SASLMechanism: cfg.SASLMechanism,
		TLSEnabled:    cfg.TLSEnabled,
		RequiredAcks:  cfg.RequiredAcks,
		MaxAttempts:   cfg.MaxAttempts,
	}
}
