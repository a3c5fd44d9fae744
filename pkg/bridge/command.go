package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/Goden-Gun/channel-bridge/pkg/codes"
	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

// CommandType names an inbound command.
type CommandType string

const (
	CmdConnect  CommandType = "connect"
	CmdJoin     CommandType = "join"
	CmdJoinMany CommandType = "joinMany"
	CmdLeave    CommandType = "leave"
	CmdPush     CommandType = "push"
)

// Command is the queue-friendly form of the bridge's inbound surface.
// Fields not used by Type are ignored.
type Command struct {
	Type     CommandType    `json:"type"`
	Endpoint string         `json:"endpoint,omitempty"`
	Params   socket.Payload `json:"params,omitempty"`
	Topic    string         `json:"topic,omitempty"`
	Payload  socket.Payload `json:"payload,omitempty"`
	Specs    []JoinSpec     `json:"specs,omitempty"`
	Channel  Handle         `json:"channel,omitempty"`
	Event    string         `json:"event,omitempty"`
	Ref      any            `json:"ref,omitempty"`
}

// Result is what a command returns synchronously. Outcomes of pushes arrive
// later on the event stream.
type Result struct {
	Channel  Handle    `json:"channel,omitempty"`
	Channels []Created `json:"channels,omitempty"`
}

// Execute dispatches cmd to the matching bridge operation. Returned errors
// carry a codes.ErrorCode, see codes.Of.
func (b *Bridge) Execute(ctx context.Context, cmd Command) (Result, error) {
	var (
		res Result
		err error
	)
	switch cmd.Type {
	case CmdConnect:
		err = b.Connect(ctx, cmd.Endpoint, cmd.Params)
	case CmdJoin:
		res.Channel, err = b.JoinOne(ctx, cmd.Topic, cmd.Payload)
	case CmdJoinMany:
		res.Channels, err = b.JoinMany(ctx, cmd.Specs)
	case CmdLeave:
		err = b.Leave(ctx, cmd.Channel)
	case CmdPush:
		err = b.Push(ctx, cmd.Channel, cmd.Event, cmd.Payload, cmd.Ref)
	default:
		err = fmt.Errorf("unknown command type %q", cmd.Type)
		return res, codes.Wrap(codes.ErrInvalidCommand, err)
	}
	return res, codes.Wrap(codeFor(err), err)
}

func codeFor(err error) codes.ErrorCode {
	switch {
	case errors.Is(err, ErrNotConnected):
		return codes.ErrNotConnected
	case errors.Is(err, ErrInvalidChannelHandle):
		return codes.ErrInvalidChannelHandle
	case errors.Is(err, ErrEndpointRequired), errors.Is(err, ErrTopicRequired), errors.Is(err, ErrEventRequired):
		return codes.ErrInvalidCommand
	case errors.Is(err, ErrClosed):
		return codes.ErrUnavailable
	default:
		return codes.ErrInternal
	}
}
