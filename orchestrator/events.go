package orchestrator

import (
	"time"

	"go.uber.org/zap"
)

// recordEvent emits exactly one structured event per orchestrator
// operation, success or failure, including its duration. Metadata fields
// must never contain user code or program output.
func (o *Orchestrator) recordEvent(op, sessionID string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("session_id", sessionID),
		zap.Duration("duration", time.Since(start)),
	)

	if err != nil {
		fields = append(fields, zap.Bool("success", false), zap.Error(err))
		o.logger.Error(op, fields...)
		return
	}

	fields = append(fields, zap.Bool("success", true))
	o.logger.Info(op, fields...)
}
