package bridge

import (
	"errors"
	"time"

	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

// DefaultPushTimeout bounds how long a message push waits for a reply.
const DefaultPushTimeout = 10 * time.Second

var (
	// ErrNotConnected indicates a channel command issued before Connect.
	ErrNotConnected = errors.New("bridge: not connected")
	// ErrInvalidChannelHandle indicates an unknown or already left handle.
	ErrInvalidChannelHandle = errors.New("bridge: invalid channel handle")
	// ErrEndpointRequired indicates Connect without an endpoint.
	ErrEndpointRequired = errors.New("bridge: endpoint is required")
	// ErrTopicRequired indicates a join without a topic.
	ErrTopicRequired = errors.New("bridge: topic is required")
	// ErrClosed indicates the bridge loop is not running.
	ErrClosed = errors.New("bridge: closed")
)

// Handle is the opaque identifier of a channel handed to the application.
// Handles are never reused within one Bridge.
type Handle uint64

// Kind names a normalized event.
type Kind string

const (
	KindCreated      Kind = "created"
	KindCreatedBatch Kind = "createdBatch"
	KindMessage      Kind = "message"
	KindPushOk       Kind = "pushOk"
	KindPushError    Kind = "pushError"
	KindPushTimeout  Kind = "pushTimeout"
)

// PushKind names the protocol operation behind a push.
type PushKind string

const (
	PushJoin  PushKind = "join"
	PushLeave PushKind = "leave"
	PushMsg   PushKind = "msg"
)

// Event is the normalized (kind, topic, detail) notification delivered to
// the application. Detail is one of CreatedDetail, CreatedBatchDetail,
// MessageDetail or PushDetail.
type Event struct {
	Kind   Kind   `json:"kind"`
	Topic  string `json:"topic"`
	Detail any    `json:"detail"`
}

// CreatedDetail carries the handle of a channel built by JoinOne.
type CreatedDetail struct {
	Channel Handle `json:"channel"`
}

// Created pairs a topic with its new handle.
type Created struct {
	Topic   string `json:"topic"`
	Channel Handle `json:"channel"`
}

// CreatedBatchDetail carries every handle built by one JoinMany.
type CreatedBatchDetail struct {
	Channels []Created `json:"channels"`
}

// MessageDetail carries an inbound protocol message.
type MessageDetail struct {
	Channel Handle `json:"channel"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// PushDetail carries the outcome of a join, leave or message push. For
// pushError Payload holds the reasons reported by the server.
type PushDetail struct {
	Channel Handle   `json:"channel"`
	Type    PushKind `json:"type"`
	Ref     any      `json:"ref"`
	Payload any      `json:"payload"`
}

// JoinSpec describes one channel of a JoinMany batch.
type JoinSpec struct {
	Topic   string         `json:"topic"`
	Payload socket.Payload `json:"payload"`
}

// Observer receives bridge activity for metrics backends.
type Observer interface {
	ObservePush(kind PushKind, status socket.Status, duration time.Duration)
	ObserveEvent(kind Kind, action Action)
	ObserveChannelCreated(topic string)
}

type nopObserver struct{}

func (nopObserver) ObservePush(PushKind, socket.Status, time.Duration) {}
func (nopObserver) ObserveEvent(Kind, Action)                          {}
func (nopObserver) ObserveChannelCreated(string)                       {}

// Options define bridge runtime parameters.
type Options struct {
	Transport socket.Transport
	// PushTimeout applies to message pushes; join and leave use the
	// transport default.
	PushTimeout time.Duration
	// EventBuffer sizes the outbound event channel. Emission blocks when full.
	EventBuffer int
	Policy      *Policy
	Observer    Observer
	// CloseReplaced closes the previous connection when Connect replaces it.
	CloseReplaced bool
	// PropagateTrace injects the caller's trace context into message push
	// payloads under the "_trace" key.
	PropagateTrace bool
}
