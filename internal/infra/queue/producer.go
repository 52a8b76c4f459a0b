package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// StageEnteredPayload is published every time a lead enters a pipeline stage.
type StageEnteredPayload struct {
	LeadID       string    `json:"lead_id"`
	LeadName     string    `json:"lead_name"`
	SubscriberID string    `json:"subscriber_id,omitempty"`
	FromStage    string    `json:"from_stage,omitempty"`
	ToStage      string    `json:"to_stage"`
	Actor        string    `json:"actor"`
	Amount       float64   `json:"amount,omitempty"`
	EnteredAt    time.Time `json:"entered_at"`
}

type QueueProducerInterface interface {
	PublishStageEntered(ctx context.Context, payload StageEnteredPayload) error
}

type RabbitMQProducer struct {
	Ch *amqp.Channel
}

func NewProducer(ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishStageEntered(ctx context.Context, payload StageEnteredPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			MessageId:     uuid.NewString(),
			CorrelationId: payload.LeadID,
			Timestamp:     time.Now(),
			Body:          body,
			DeliveryMode:  amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}
	return nil
}
