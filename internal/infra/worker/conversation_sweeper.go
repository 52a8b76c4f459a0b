package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type DuplicateFinder interface {
	LeadsWithDuplicates(ctx context.Context) ([]string, error)
}

type Collapser interface {
	Collapse(ctx context.Context, leadID string) (string, error)
}

// ConversationSweeper periodically merges leads that ended up with more than
// one conversation, usually after concurrent webhooks for the same contact.
type ConversationSweeper struct {
	finder       DuplicateFinder
	collapser    Collapser
	tickInterval time.Duration
	log          *logger.Logger
}

func NewConversationSweeper(finder DuplicateFinder, collapser Collapser, interval time.Duration, log *logger.Logger) *ConversationSweeper {
	if log == nil {
		log = logger.Global()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &ConversationSweeper{
		finder:       finder,
		collapser:    collapser,
		tickInterval: interval,
		log:          log.Named("conversation_sweeper"),
	}
}

func (w *ConversationSweeper) Start(ctx context.Context) {
	w.log.Info("Sweeper de conversas iniciado", zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Sweeper de conversas encerrado")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce collapses every lead with duplicates and returns how many succeeded.
func (w *ConversationSweeper) RunOnce(ctx context.Context) int {
	leadIDs, err := w.finder.LeadsWithDuplicates(ctx)
	if err != nil {
		w.log.Error("Erro ao buscar conversas duplicadas", zap.Error(err))
		return 0
	}

	merged := 0
	for _, leadID := range leadIDs {
		if ctx.Err() != nil {
			break
		}
		survivor, err := w.collapser.Collapse(ctx, leadID)
		if err != nil {
			w.log.Warn("Falha ao consolidar conversas", logger.LeadID(leadID), zap.Error(err))
			continue
		}
		w.log.Debug("Conversas consolidadas", logger.LeadID(leadID), logger.ConversationID(survivor))
		merged++
	}

	if merged > 0 {
		w.log.Info("Leads com conversas consolidadas", zap.Int("count", merged))
	}
	return merged
}
