package sink

import (
	"context"

	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
)

// Log writes events as structured log entries.
type Log struct {
	logger *log.Logger
	level  log.Level
}

// NewLog logs through logger at level; nil uses the standard logger.
func NewLog(logger *log.Logger, level log.Level) *Log {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Log{logger: logger, level: level}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Publish(_ context.Context, ev bridge.Event) error {
	l.logger.WithFields(log.Fields{
		"kind":   ev.Kind,
		"topic":  ev.Topic,
		"detail": ev.Detail,
	}).Log(l.level, "bridge event")
	return nil
}
