// Package metrics exposes bridge activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

// Recorder implements bridge.Observer, kafka.PublishObserver and
// kafka.ConsumeObserver.
type Recorder struct {
	pushTotal       *prometheus.CounterVec
	pushDuration    *prometheus.HistogramVec
	eventsTotal     *prometheus.CounterVec
	channelsCreated prometheus.Counter
	publishTotal    *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec
	consumeTotal    *prometheus.CounterVec
}

// NewRecorder registers the bridge metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		pushTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "channel_bridge_push_total",
			Help: "Push outcomes, by push type and status.",
		}, []string{"kind", "status"}),
		pushDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "channel_bridge_push_duration_seconds",
			Help:    "Time from push to outcome, by push type.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		eventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "channel_bridge_events_total",
			Help: "Normalized events, by kind and policy action.",
		}, []string{"kind", "action"}),
		channelsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "channel_bridge_channels_created_total",
			Help: "Channels created by join commands.",
		}),
		publishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "channel_bridge_sink_publish_total",
			Help: "Kafka sink publishes, by topic and result.",
		}, []string{"topic", "result"}),
		publishDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "channel_bridge_sink_publish_duration_seconds",
			Help:    "Kafka sink publish latency, by topic.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		consumeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "channel_bridge_commands_consumed_total",
			Help: "Commands consumed from Kafka, by command type and result.",
		}, []string{"type", "result"}),
	}
}

func (r *Recorder) ObservePush(kind bridge.PushKind, status socket.Status, d time.Duration) {
	r.pushTotal.WithLabelValues(string(kind), string(status)).Inc()
	r.pushDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

func (r *Recorder) ObserveEvent(kind bridge.Kind, action bridge.Action) {
	r.eventsTotal.WithLabelValues(string(kind), string(action)).Inc()
}

func (r *Recorder) ObserveChannelCreated(string) {
	r.channelsCreated.Inc()
}

// ObservePublish records a Kafka sink publish.
func (r *Recorder) ObservePublish(topic string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.publishTotal.WithLabelValues(topic, result).Inc()
	r.publishDuration.WithLabelValues(topic).Observe(d.Seconds())
}

// ObserveConsume records a command taken from the Kafka intake.
func (r *Recorder) ObserveConsume(_, _ string, eventType string, _ time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.consumeTotal.WithLabelValues(eventType, result).Inc()
}
