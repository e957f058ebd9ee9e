package publisher

import (
	"context"
	"encoding/json"

	"github.com/radieske/lottery-agency-poc/internal/shared/kafka"
	"github.com/radieske/lottery-agency-poc/pkg/contracts/events"
)

// KafkaPublisher publica o DrawCompleted no tópico configurado no writer, com chave = draw id
type KafkaPublisher struct {
	Writer kafka.MessageWriter
}

func NewKafkaPublisher(w kafka.MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) PublishDraw(ctx context.Context, ev events.DrawCompleted) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, p.Writer, ev.DrawID, b)
}
