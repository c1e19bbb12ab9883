package service

import (
	"context"

	"go.uber.org/zap"
)

// GateSink receives the open command for a gate when a check allows
// entry. The real actuator lives outside this service; implementations
// here only need to forward or simulate the signal.
type GateSink interface {
	Open(ctx context.Context, cameraID string) error
}

// LogGateSink is a simulated gate: it logs the open command and succeeds.
type LogGateSink struct {
	log *zap.SugaredLogger
}

func NewLogGateSink(log *zap.SugaredLogger) *LogGateSink {
	return &LogGateSink{log: log}
}

func (s *LogGateSink) Open(_ context.Context, cameraID string) error {
	s.log.Infow("gate open", "camera_id", cameraID)
	return nil
}
