package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Goden-Gun/channel-bridge/pkg/auth"
	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
	"github.com/Goden-Gun/channel-bridge/pkg/config"
	"github.com/Goden-Gun/channel-bridge/pkg/intake"
	"github.com/Goden-Gun/channel-bridge/pkg/kafka"
	"github.com/Goden-Gun/channel-bridge/pkg/phoenix"
	"github.com/Goden-Gun/channel-bridge/pkg/sink"
	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

// buildPolicy 配置规则优先，其后是 skip_prefixes 生成的规则
func buildPolicy(cfg config.BridgeConfig) (*bridge.Policy, error) {
	rules := make([]bridge.Rule, 0, len(cfg.Rules)+len(cfg.SkipPrefixes))
	for _, r := range cfg.Rules {
		rules = append(rules, bridge.Rule{
			Kind:        bridge.Kind(r.Kind),
			TopicPrefix: r.TopicPrefix,
			Action:      bridge.Action(r.Action),
		})
	}
	rules = append(rules, bridge.SkipPrefixes(cfg.SkipPrefixes...)...)
	return bridge.NewPolicy(rules...)
}

func transportOptions(cfg config.SocketConfig) phoenix.Options {
	header := http.Header{}
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	return phoenix.Options{
		HeartbeatInterval:   cfg.HeartbeatInterval.Duration(),
		ReconnectBackoff:    cfg.ReconnectBackoff.Duration(),
		MaxReconnectBackoff: cfg.MaxReconnectBackoff.Duration(),
		RejoinAfter:         cfg.RejoinAfter.Duration(),
		DialTimeout:         cfg.DialTimeout.Duration(),
		WriteTimeout:        cfg.WriteTimeout.Duration(),
		DefaultTimeout:      cfg.JoinTimeout.Duration(),
		Header:              header,
	}
}

func authConfig(cfg config.AuthConfig) auth.Config {
	return auth.Config{
		Secret:    cfg.Secret,
		Issuer:    cfg.Issuer,
		TTL:       cfg.TTL.Duration(),
		ClockSkew: cfg.ClockSkew.Duration(),
	}
}

// connectParams 返回连接参数；配置了 secret 且参数里没有 token 时签发一个
func connectParams(sock config.SocketConfig, ac config.AuthConfig) (socket.Payload, *auth.SocketToken, error) {
	params := make(socket.Payload, len(sock.Params)+1)
	for k, v := range sock.Params {
		params[k] = v
	}
	if ac.Secret == "" {
		return params, nil, nil
	}
	if _, ok := params["token"]; ok {
		return params, nil, nil
	}
	tok, err := auth.GenerateSocketToken(ac.Subject, authConfig(ac))
	if err != nil {
		return nil, nil, fmt.Errorf("mint socket token: %w", err)
	}
	params["token"] = tok.Token
	return params, tok, nil
}

func buildSinks(cfg config.SinkConfig, rdb redis.Cmdable, redisPrefix string, km *kafka.Manager) ([]sink.Sink, error) {
	var sinks []sink.Sink
	if cfg.Kafka {
		if km == nil {
			return nil, errors.New("kafka sink enabled but kafka is disabled")
		}
		s, err := sink.NewKafka(km, "")
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Redis {
		if rdb == nil {
			return nil, errors.New("redis sink enabled but redis is disabled")
		}
		s, err := sink.NewRedis(rdb, redisPrefix)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Log || len(sinks) == 0 {
		sinks = append(sinks, sink.NewLog(nil, logrus.InfoLevel))
	}
	return sinks, nil
}

// runner 是一个命令来源
type runner interface {
	Run(ctx context.Context) error
}

func buildIntake(c *Config, rdb redis.UniversalClient, km *kafka.Manager, exec intake.Executor) (runner, error) {
	switch c.Intake.Source {
	case "none", "":
		return nil, nil
	case "stdin":
		return intake.NewLines(os.Stdin, exec), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis intake requires redis.enabled")
		}
		return intake.NewRedis(rdb, c.Redis.Prefix, exec)
	case "kafka":
		if km == nil {
			return nil, errors.New("kafka intake requires kafka.enabled")
		}
		return intake.NewKafka(km, c.Kafka.CommandTopic, c.Kafka.ConsumerGroup, exec)
	default:
		return nil, fmt.Errorf("unknown intake source %q", c.Intake.Source)
	}
}
