package kafka

import (
	"context"
	"encoding/json"

	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer streams booking lifecycle events for the notification/ticketing
// collaborator.
type Producer struct {
	confirmed *kafka.Writer
	cancelled *kafka.Writer
}

func NewProducer(brokers []string, confirmedTopic, cancelledTopic string) *Producer {
	return &Producer{
		confirmed: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   confirmedTopic,
		}),
		cancelled: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   cancelledTopic,
		}),
	}
}

func (p *Producer) PublishBookingConfirmed(booking models.Booking) error {
	return p.publish(p.confirmed, booking)
}

func (p *Producer) PublishBookingCancelled(booking models.Booking) error {
	return p.publish(p.cancelled, booking)
}

func (p *Producer) publish(writer *kafka.Writer, booking models.Booking) error {
	payload, err := json.Marshal(booking)
	if err != nil {
		return err
	}
	return writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(booking.BookingCode),
		Value: payload,
	})
}

func (p *Producer) Close() error {
	if err := p.confirmed.Close(); err != nil {
		return err
	}
	return p.cancelled.Close()
}
