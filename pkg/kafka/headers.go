package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
)

// headerCarrier lets the otel propagator read and write record headers, so
// a command consumed by the intake continues the trace of whoever produced it.
type headerCarrier []sarama.RecordHeader

func (h *headerCarrier) Get(key string) string {
	for _, rh := range *h {
		if string(rh.Key) == key {
			return string(rh.Value)
		}
	}
	return ""
}

func (h *headerCarrier) Set(key, value string) {
	*h = append(*h, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (h *headerCarrier) Keys() []string {
	keys := make([]string, len(*h))
	for i, rh := range *h {
		keys[i] = string(rh.Key)
	}
	return keys
}

func injectTrace(ctx context.Context) []sarama.RecordHeader {
	var h headerCarrier
	otel.GetTextMapPropagator().Inject(ctx, &h)
	return h
}

// ExtractTrace returns ctx carrying the trace context found in headers.
func ExtractTrace(ctx context.Context, headers []*sarama.RecordHeader) context.Context {
	h := make(headerCarrier, 0, len(headers))
	for _, rh := range headers {
		if rh != nil {
			h = append(h, *rh)
		}
	}
	return otel.GetTextMapPropagator().Extract(ctx, &h)
}
