package kafka

import (
	"crypto/tls"
	"strings"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

// Config describes the cluster the bridge talks to. Topic is where the event
// sink publishes when a caller passes no topic of its own.
type Config struct {
	Brokers       []string `yaml:"brokers" mapstructure:"brokers"`
	Topic         string   `yaml:"topic" mapstructure:"topic"`
	ClientID      string   `yaml:"client_id" mapstructure:"client_id"`
	Username      string   `yaml:"username" mapstructure:"username"`
	Password      string   `yaml:"password" mapstructure:"password"`
	SASLMechanism string   `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism"`
	TLSEnabled    bool     `yaml:"tls_enabled" mapstructure:"tls_enabled"`

	// RequiredAcks is one of none, one or all. Empty means all.
	RequiredAcks string `yaml:"required_acks" mapstructure:"required_acks"`
	// MaxAttempts bounds producer retries, at least 1.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// saramaConfig is shared by the event producer and the command consumer
// groups. Consumer settings are applied on a copy in NewConsumerGroup.
func saramaConfig(cfg Config) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_1_0_0
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}

	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = max(cfg.MaxAttempts, 1)
	sc.Producer.RequiredAcks = requiredAcks(cfg.RequiredAcks)
	sc.Producer.Idempotent = false

	if cfg.TLSEnabled {
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.Username != "" {
		applySASL(sc, cfg)
	}
	return sc
}

func applySASL(sc *sarama.Config, cfg Config) {
	sc.Net.SASL.Enable = true
	sc.Net.SASL.User = cfg.Username
	sc.Net.SASL.Password = cfg.Password

	var hash scram.HashGeneratorFcn
	switch strings.ToUpper(strings.TrimSpace(cfg.SASLMechanism)) {
	case sarama.SASLTypeSCRAMSHA512:
		sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		hash = scram.SHA512
	case sarama.SASLTypeSCRAMSHA256:
		sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		hash = scram.SHA256
	default:
		sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		return
	}
	sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
		return &scramConversation{hash: hash}
	}
}

func requiredAcks(v string) sarama.RequiredAcks {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none":
		return sarama.NoResponse
	case "one":
		return sarama.WaitForLocal
	default:
		return sarama.WaitForAll
	}
}
