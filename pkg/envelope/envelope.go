package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
)

const Version = "2025-01"

// Envelope is the transport form of a bridge event published to sinks.
type Envelope struct {
	Version   string
	ID        string
	Kind      string
	Topic     string
	Detail    any
	CreatedAt time.Time
}

// Wrap builds a normalized envelope for ev.
func Wrap(ev bridge.Event) *Envelope {
	env := &Envelope{Kind: string(ev.Kind), Topic: ev.Topic, Detail: ev.Detail}
	Normalize(env)
	return env
}

// Normalize fills default fields.
func Normalize(env *Envelope) {
	if env == nil {
		return
	}
	if env.Version == "" {
		env.Version = Version
	}
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.CreatedAt.IsZero() {
		env.CreatedAt = time.Now().UTC()
	}
}

// Validate checks envelopes read back from a sink.
func Validate(env *Envelope) error {
	if env == nil {
		return errors.New("envelope is nil")
	}
	if env.Version != Version {
		return fmt.Errorf("unsupported envelope version %q", env.Version)
	}
	if strings.TrimSpace(env.Kind) == "" {
		return errors.New("kind is required")
	}
	if _, err := uuid.Parse(env.ID); err != nil {
		return fmt.Errorf("invalid envelope id: %w", err)
	}
	return nil
}

// Encode wraps ev and renders it as protojson.
func Encode(ev bridge.Event) ([]byte, error) {
	return Wrap(ev).Marshal()
}

// Marshal renders env as the protojson form of a google.protobuf.Struct.
func (env *Envelope) Marshal() ([]byte, error) {
	detail, err := toValue(env.Detail)
	if err != nil {
		return nil, fmt.Errorf("encode detail: %w", err)
	}
	st := &structpb.Struct{Fields: map[string]*structpb.Value{
		"version":    structpb.NewStringValue(env.Version),
		"id":         structpb.NewStringValue(env.ID),
		"kind":       structpb.NewStringValue(env.Kind),
		"topic":      structpb.NewStringValue(env.Topic),
		"detail":     detail,
		"created_at": structpb.NewStringValue(env.CreatedAt.Format(time.RFC3339Nano)),
	}}
	return protojson.Marshal(st)
}

// Decode parses an encoded envelope. Detail is returned in its generic form.
func Decode(data []byte) (*Envelope, error) {
	var st structpb.Struct
	if err := protojson.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	fields := st.GetFields()
	env := &Envelope{
		Version: fields["version"].GetStringValue(),
		ID:      fields["id"].GetStringValue(),
		Kind:    fields["kind"].GetStringValue(),
		Topic:   fields["topic"].GetStringValue(),
	}
	if d, ok := fields["detail"]; ok {
		env.Detail = d.AsInterface()
	}
	if ts := fields["created_at"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("decode created_at: %w", err)
		}
		env.CreatedAt = t
	}
	if err := Validate(env); err != nil {
		return nil, err
	}
	return env, nil
}

// toValue converts detail structs to a structpb value through their JSON form.
func toValue(v any) (*structpb.Value, error) {
	if v == nil {
		return structpb.NewNullValue(), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}
