package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"peacefulpath/backend/internal/domain"
)

// Topic name equals event type: one event per topic.
const (
	TopicReservationBooked    = "booking.reservation.booked.v1"
	TopicReservationCancelled = "booking.reservation.cancelled.v1"
)

const publishTimeout = 5 * time.Second

// Publisher emits reservation lifecycle events to Kafka. Publishing is
// best-effort: failures are logged and never surfaced to the booking flow.
type Publisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

func NewPublisher(brokers []string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Balancer: &kafka.Hash{},
		}),
		log: log.With(slog.String("component", "events.publisher")),
	}
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) ReservationBooked(ctx context.Context, res domain.Reservation) {
	p.publish(ctx, TopicReservationBooked, res)
}

func (p *Publisher) ReservationCancelled(ctx context.Context, res domain.Reservation) {
	p.publish(ctx, TopicReservationCancelled, res)
}

func (p *Publisher) publish(ctx context.Context, topic string, res domain.Reservation) {
	payload, err := json.Marshal(map[string]any{
		"reservation_id": res.ID.String(),
		"service_id":     res.ServiceID.String(),
		"duration_id":    res.DurationID.String(),
		"user_id":        res.UserID,
		"starts_at":      res.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":        res.EndsAt.UTC().Format(time.RFC3339),
		"status":         string(res.Status),
	})
	if err != nil {
		p.log.Error("event payload encode failed", slog.Any("err", err), slog.String("topic", topic))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(res.ID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "event_type", Value: []byte(topic)},
		},
	})
	if err != nil {
		p.log.Warn(
			"event publish failed",
			slog.Any("err", err),
			slog.String("topic", topic),
			slog.String("reservation_id", res.ID.String()),
		)
	}
}
