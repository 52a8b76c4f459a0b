package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/pkg/logger"
)

// AutomationHandler runs the stage-entry automations for one event.
type AutomationHandler interface {
	HandleStageEntered(ctx context.Context, payload StageEnteredPayload) error
}

type Worker struct {
	Channel *amqp.Channel
	Handler AutomationHandler
	log     *logger.Logger
}

func NewWorker(ch *amqp.Channel, handler AutomationHandler, log *logger.Logger) *Worker {
	return &Worker{
		Channel: ch,
		Handler: handler,
		log:     log.Named("automation_worker"),
	}
}

// Start consome a fila até o contexto ser cancelado ou o canal fechar.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor: %w", err)
	}

	w.log.Info("worker aguardando mensagens", zap.String("queue", queueName))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				w.log.Warn("canal de entregas fechado")
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

// Delivery is the subset of amqp.Delivery the worker needs.
type Delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	w.Process(ctx, d.Body, &d)
}

// Process decodes and runs one delivery. Malformed and failed messages are
// dead-lettered without requeue.
func (w *Worker) Process(ctx context.Context, body []byte, d Delivery) {
	var payload StageEnteredPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		w.log.Error("payload inválido", zap.Error(err))
		d.Nack(false, false)
		return
	}

	if err := w.Handler.HandleStageEntered(ctx, payload); err != nil {
		w.log.Error("automação falhou",
			logger.LeadID(payload.LeadID),
			zap.String("stage", payload.ToStage),
			zap.Error(err),
		)
		d.Nack(false, false)
		return
	}

	w.log.Info("automação executada",
		logger.LeadID(payload.LeadID),
		zap.String("stage", payload.ToStage),
	)
	d.Ack(false)
}
