// Command channel-bridge connects to a Phoenix socket, executes bridge
// commands from the configured intake and forwards events to sinks.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/Goden-Gun/channel-bridge/pkg/auth"
	"github.com/Goden-Gun/channel-bridge/pkg/bootstrap"
	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
	"github.com/Goden-Gun/channel-bridge/pkg/kafka"
	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
	"github.com/Goden-Gun/channel-bridge/pkg/metrics"
	"github.com/Goden-Gun/channel-bridge/pkg/phoenix"
	"github.com/Goden-Gun/channel-bridge/pkg/sink"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("load config failed")
	}
	if err := bootstrap.InitLogger(cfg.Log, cfg.App.Name); err != nil {
		log.WithError(err).Fatal("init logger failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("channel-bridge stopped")
	}
	log.Info("channel-bridge stopped")
}

func run(ctx context.Context, cfg *Config) error {
	shutdownTracing, err := bootstrap.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	var rdb redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := bootstrap.InitRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		rdb = client
	}

	var km *kafka.Manager
	if cfg.Kafka.Enabled {
		km, err = bootstrap.InitKafka(cfg.Kafka, recorder)
		if err != nil {
			return err
		}
		km.SetConsumeObserver(recorder)
		defer km.Close()
	}

	policy, err := buildPolicy(cfg.Bridge)
	if err != nil {
		return err
	}
	b, err := bridge.New(bridge.Options{
		Transport:      phoenix.New(transportOptions(cfg.Socket)),
		PushTimeout:    cfg.Bridge.PushTimeout.Duration(),
		EventBuffer:    cfg.Bridge.EventBuffer,
		Policy:         policy,
		Observer:       recorder,
		CloseReplaced:  cfg.Bridge.CloseReplaced,
		PropagateTrace: cfg.Bridge.PropagateTrace,
	})
	if err != nil {
		return err
	}

	sinks, err := buildSinks(cfg.Sink, rdb, cfg.Redis.Prefix, km)
	if err != nil {
		return err
	}
	source, err := buildIntake(cfg, rdb, km, b)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := b.Run(ctx); err != nil {
			log.WithError(err).Error("bridge loop failed")
		}
	}()
	go func() {
		defer wg.Done()
		// 事件流在 bridge 停止时关闭
		_ = sink.NewForwarder(sinks...).Run(context.Background(), b.Events())
	}()
	defer wg.Wait()
	defer b.Close()

	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           newRouter(b, reg, cfg.Metrics.Path),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	var token *auth.SocketToken
	if cfg.Socket.Endpoint != "" {
		params, tok, err := connectParams(cfg.Socket, cfg.Auth)
		if err != nil {
			return err
		}
		token = tok
		if err := b.Connect(ctx, cfg.Socket.Endpoint, params); err != nil {
			return err
		}
		if len(cfg.Socket.Topics) > 0 {
			specs := make([]bridge.JoinSpec, 0, len(cfg.Socket.Topics))
			for _, topic := range cfg.Socket.Topics {
				specs = append(specs, bridge.JoinSpec{Topic: topic})
			}
			if _, err := b.JoinMany(ctx, specs); err != nil {
				return err
			}
		}
	}
	if token != nil && cfg.Auth.RevokeOnExit && rdb != nil {
		defer revokeToken(token, cfg, rdb)
	}

	if source != nil {
		go func() {
			if err := source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).WithField("source", cfg.Intake.Source).Error("intake stopped")
			}
		}()
	}

	log.WithFields(log.Fields{
		"node_id":  cfg.App.NodeID,
		"endpoint": cfg.Socket.Endpoint,
		"intake":   cfg.Intake.Source,
		"sinks":    len(sinks),
		"metrics":  cfg.Metrics.Addr,
	}).Info("channel-bridge started")

	<-ctx.Done()
	return nil
}

func revokeToken(token *auth.SocketToken, cfg *Config, rdb redis.Cmdable) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	claims, err := auth.ParseSocketTokenUnverified(token.Token)
	if err != nil {
		log.WithError(err).Warn("parse socket token failed")
		return
	}
	blocklist := auth.NewRedisBlocklist(rdb, cfg.Redis.Prefix+":token:revoked:")
	if err := auth.RevokeSocketToken(ctx, claims, authConfig(cfg.Auth), blocklist); err != nil {
		log.WithError(err).Warn("revoke socket token failed")
		return
	}
	log.WithField("jti", token.JTI).Info("socket token revoked")
}
