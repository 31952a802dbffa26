package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"booking-system/internal/config"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer публикует доменные события в Kafka.
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает синхронный Kafka producer.
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("Successfully connected to Kafka")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// Close закрывает producer.
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// publishEvent сериализует событие и отправляет его в топик.
func (p *Producer) publishEvent(topic string, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	p.log.WithFields(map[string]interface{}{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
		"type":      event.Type,
	}).Debug("Event published")

	return nil
}

func newEvent(eventType models.EventType, data map[string]interface{}) models.Event {
	return models.Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// PublishBookingCreated публикует событие о создании бронирования.
func (p *Producer) PublishBookingCreated(booking *models.Booking) error {
	return p.publishEvent(p.topics.Bookings, newEvent(models.EventTypeBookingCreated, map[string]interface{}{
		"reference":     booking.Reference,
		"bookable_type": booking.BookableType,
		"bookable_id":   booking.BookableID,
		"total_price":   booking.TotalPrice,
	}))
}

// PublishBookingPaid публикует событие об оплате бронирования.
func (p *Producer) PublishBookingPaid(reference string, amount float64, provider string) error {
	return p.publishEvent(p.topics.Bookings, newEvent(models.EventTypeBookingPaid, map[string]interface{}{
		"reference": reference,
		"amount":    amount,
		"provider":  provider,
	}))
}

// PublishBookingCancelled публикует событие об отмене бронирования.
func (p *Producer) PublishBookingCancelled(reference, reason string) error {
	return p.publishEvent(p.topics.Bookings, newEvent(models.EventTypeBookingCancelled, map[string]interface{}{
		"reference": reference,
		"reason":    reason,
	}))
}

// PublishBookingExpired публикует событие об истечении брони.
func (p *Producer) PublishBookingExpired(reference string) error {
	return p.publishEvent(p.topics.Bookings, newEvent(models.EventTypeBookingExpired, map[string]interface{}{
		"reference": reference,
	}))
}

// PublishPaymentFailed публикует событие о неуспешной оплате.
func (p *Producer) PublishPaymentFailed(reference, provider, reason string) error {
	return p.publishEvent(p.topics.Payments, newEvent(models.EventTypePaymentFailed, map[string]interface{}{
		"reference": reference,
		"provider":  provider,
		"reason":    reason,
	}))
}

// PublishNotification публикует запрос на отправку уведомления.
func (p *Producer) PublishNotification(reference, template, recipient string) error {
	return p.publishEvent(p.topics.Notifications, newEvent(models.EventTypeNotification, map[string]interface{}{
		"reference": reference,
		"template":  template,
		"recipient": recipient,
	}))
}
