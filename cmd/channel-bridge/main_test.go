package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goden-Gun/channel-bridge/pkg/auth"
	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
	"github.com/Goden-Gun/channel-bridge/pkg/config"
	"github.com/Goden-Gun/channel-bridge/pkg/intake"
	"github.com/Goden-Gun/channel-bridge/pkg/kafka"
	"github.com/Goden-Gun/channel-bridge/pkg/metrics"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	yaml := `
socket:
  endpoint: ws://localhost:4000/socket
  params:
    room: lobby
  heartbeat_interval: 15s
  topics: ["room:lobby", "presence:lobby"]
bridge:
  skip_prefixes: ["presence:"]
auth:
  secret: from-yaml
intake:
  source: none
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config_runner.yaml"), []byte(yaml), 0o600))
	t.Setenv("APP_ENV", "runner")
	t.Setenv("NODE_ID", "node-7")
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("SOCKET_SECRET", "")

	cfg, err := loadConfig(config.LoadOptions{ConfigPath: dir})
	require.NoError(t, err)
	assert.Equal(t, "channel-bridge", cfg.App.Name)
	assert.Equal(t, "runner", cfg.App.Env)
	assert.Equal(t, "node-7", cfg.App.NodeID)
	assert.Equal(t, "from-yaml", cfg.Auth.Secret)
	assert.Equal(t, 15*time.Second, cfg.Socket.HeartbeatInterval.Duration())
	assert.Equal(t, []string{"room:lobby", "presence:lobby"}, cfg.Socket.Topics)
	assert.Equal(t, 10*time.Second, cfg.Bridge.PushTimeout.Duration())
	assert.Equal(t, "channel-bridge", cfg.Tracing.ServiceName)

	t.Setenv("SOCKET_SECRET", "from-env")
	cfg, err = loadConfig(config.LoadOptions{ConfigPath: dir})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
}

func TestBuildPolicy(t *testing.T) {
	p, err := buildPolicy(config.BridgeConfig{
		SkipPrefixes: []string{"presence:"},
		Rules:        []config.PolicyRule{{Kind: "message", TopicPrefix: "noise:", Action: "suppress"}},
	})
	require.NoError(t, err)
	assert.Equal(t, bridge.ActionSuppress, p.Decide(bridge.KindMessage, "noise:1"))
	assert.Equal(t, bridge.ActionForward, p.Decide(bridge.KindMessage, "room:1"))
	assert.Equal(t, bridge.ActionLog, p.Decide(bridge.KindPushOk, "presence:1"))
	assert.Equal(t, bridge.ActionForward, p.Decide(bridge.KindPushError, "presence:1"))
	assert.Equal(t, bridge.ActionLog, p.Decide(bridge.KindPushTimeout, "room:1"))

	_, err = buildPolicy(config.BridgeConfig{Rules: []config.PolicyRule{{Kind: "bogus", Action: "log"}}})
	assert.Error(t, err)
}

func TestTransportOptions(t *testing.T) {
	sock := config.SocketConfig{Headers: map[string]string{"x-client": "bridge"}}
	sock.ApplyDefaults()
	opts := transportOptions(sock)
	assert.Equal(t, 30*time.Second, opts.HeartbeatInterval)
	assert.Equal(t, 15*time.Second, opts.MaxReconnectBackoff)
	assert.Equal(t, 10*time.Second, opts.DefaultTimeout)
	assert.Equal(t, "bridge", opts.Header.Get("X-Client"))
}

func TestConnectParams(t *testing.T) {
	sock := config.SocketConfig{Params: map[string]string{"room": "lobby"}}

	params, tok, err := connectParams(sock, config.AuthConfig{})
	require.NoError(t, err)
	assert.Nil(t, tok)
	assert.Equal(t, "lobby", params["room"])
	assert.NotContains(t, params, "token")

	ac := config.AuthConfig{Secret: "s3cret", Subject: "bot", TTL: 60}
	params, tok, err = connectParams(sock, ac)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, tok.Token, params["token"])
	claims, err := auth.VerifySocketToken(context.Background(), tok.Token, authConfig(ac), nil)
	require.NoError(t, err)
	assert.Equal(t, "bot", claims.Subject)

	sock.Params["token"] = "preset"
	params, tok, err = connectParams(sock, ac)
	require.NoError(t, err)
	assert.Nil(t, tok)
	assert.Equal(t, "preset", params["token"])
}

func TestBuildSinks(t *testing.T) {
	sinks, err := buildSinks(config.SinkConfig{}, nil, "", nil)
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	assert.Equal(t, "log", sinks[0].Name())

	_, err = buildSinks(config.SinkConfig{Kafka: true}, nil, "", nil)
	assert.Error(t, err)
	_, err = buildSinks(config.SinkConfig{Redis: true}, nil, "", nil)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	km := kafka.NewManagerWithProducer(kafka.Config{Topic: "events"}, mocks.NewSyncProducer(t, nil))
	t.Cleanup(func() { _ = km.Close() })

	sinks, err = buildSinks(config.SinkConfig{Kafka: true, Redis: true, Log: true}, rdb, "cb", km)
	require.NoError(t, err)
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"kafka", "redis", "log"}, names)
}

type nopExecutor struct{}

func (nopExecutor) Execute(context.Context, bridge.Command) (bridge.Result, error) {
	return bridge.Result{}, nil
}

func TestBuildIntake(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	src, err := buildIntake(cfg, nil, nil, nopExecutor{})
	require.NoError(t, err)
	assert.IsType(t, &intake.Lines{}, src)

	cfg.Intake.Source = "none"
	src, err = buildIntake(cfg, nil, nil, nopExecutor{})
	require.NoError(t, err)
	assert.Nil(t, src)

	for _, source := range []string{"redis", "kafka", "carrier-pigeon"} {
		cfg.Intake.Source = source
		_, err = buildIntake(cfg, nil, nil, nopExecutor{})
		assert.Error(t, err, source)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg.Intake.Source = "redis"
	src, err = buildIntake(cfg, rdb, nil, nopExecutor{})
	require.NoError(t, err)
	assert.Equal(t, "channel-bridge:commands", src.(*intake.Redis).Channel())
}

type fakeStats struct {
	stats bridge.Stats
	err   error
}

func (f fakeStats) Stats(context.Context) (bridge.Stats, error) { return f.stats, f.err }

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)
	recorder.ObserveChannelCreated("room:1")

	srv := httptest.NewServer(newRouter(fakeStats{stats: bridge.Stats{Connected: true, Channels: 2}}, reg, "/metrics"))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 2.0, body["channels"])
	assert.Equal(t, true, body["connected"])

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	assert.Equal(t, http.StatusOK, mresp.StatusCode)
	data, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "channel_bridge_channels_created_total 1")
}

func TestRouterUnavailable(t *testing.T) {
	h := newRouter(fakeStats{err: errors.New("bridge: closed")}, prometheus.NewRegistry(), "/metrics")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}
