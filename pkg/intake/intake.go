// Package intake feeds JSON encoded bridge commands from external sources
// into a bridge.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
	"github.com/Goden-Gun/channel-bridge/pkg/codes"
	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
	"github.com/Goden-Gun/channel-bridge/pkg/tracing"
)

// Executor runs one command. *bridge.Bridge implements it.
type Executor interface {
	Execute(ctx context.Context, cmd bridge.Command) (bridge.Result, error)
}

// Decode parses one JSON command. Errors carry codes.ErrInvalidCommand.
func Decode(data []byte) (bridge.Command, error) {
	var cmd bridge.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, codes.Wrap(codes.ErrInvalidCommand, fmt.Errorf("decode command: %w", err))
	}
	if cmd.Type == "" {
		return cmd, codes.Wrap(codes.ErrInvalidCommand, errors.New("command type is required"))
	}
	return cmd, nil
}

// dispatch decodes and executes data, logging the outcome with its code.
// Sources without headers may carry trace context in the command payload.
func dispatch(ctx context.Context, exec Executor, source string, data []byte) (bridge.Command, error) {
	cmd, err := Decode(data)
	if err == nil {
		if !trace.SpanContextFromContext(ctx).IsValid() {
			ctx = tracing.ExtractPayload(ctx, cmd.Payload)
		}
		var res bridge.Result
		res, err = exec.Execute(ctx, cmd)
		if err == nil {
			log.WithTrace(ctx).WithFields(log.Fields{
				"source":   source,
				"type":     cmd.Type,
				"channel":  res.Channel,
				"channels": len(res.Channels),
			}).Debug("command executed")
			return cmd, nil
		}
	}
	code := codes.Of(err)
	log.WithTrace(ctx).WithError(err).WithFields(log.Fields{
		"source": source,
		"type":   cmd.Type,
		"code":   code.Symbol,
	}).Warn("command failed")
	return cmd, err
}
