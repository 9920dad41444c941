package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// kafkaへの発行。brokers未設定ならnil Producerで全てno-op。
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		RequiredAcks: kafka.RequireOne,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Printf("kafka publish failed: %v", err)
			}
		},
	}
	return &Producer{writer: w}
}

// 注文イベントを発行。失敗してもAPIは止めない。
func (p *Producer) PublishOrderEvent(ctx context.Context, eventType string, payload OrderEventPayload) {
	if p == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal order event: %v", err)
		return
	}

	env := Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Producer:   "ec-api",
		Payload:    body,
	}
	value, err := json.Marshal(env)
	if err != nil {
		log.Printf("marshal event envelope: %v", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(eventType),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		// Asyncなのでここに来るのはキュー詰まり等
		log.Printf("kafka enqueue failed: %v", err)
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
