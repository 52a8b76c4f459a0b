package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type Pruner interface {
	Prune(maxIdle time.Duration) int
}

// SSEPruner drops notification connections that stopped heartbeating.
type SSEPruner struct {
	registry     Pruner
	maxIdle      time.Duration
	tickInterval time.Duration
	log          *logger.Logger
}

func NewSSEPruner(registry Pruner, maxIdle time.Duration, log *logger.Logger) *SSEPruner {
	if log == nil {
		log = logger.Global()
	}
	interval := maxIdle / 2
	if interval <= 0 {
		interval = time.Minute
	}
	return &SSEPruner{
		registry:     registry,
		maxIdle:      maxIdle,
		tickInterval: interval,
		log:          log.Named("sse_pruner"),
	}
}

func (w *SSEPruner) Start(ctx context.Context) {
	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := w.registry.Prune(w.maxIdle); n > 0 {
				w.log.Info("Conexões SSE inativas removidas", zap.Int("count", n))
			}
		}
	}
}
