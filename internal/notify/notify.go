// Package notify delivers best-effort out-of-band notifications to users
// who are not looking at the conversation.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypeNewMessage = "new_message"

	previewLength = 100
)

type Notification struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Type  string         `json:"type"`
	Data  map[string]any `json:"data,omitempty"`
}

// EnvConfig defines fields used for parsing from environment variables.
// Empty Brokers disables the Kafka bridge.
type EnvConfig struct {
	Brokers []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string        `env:"KAFKA_NOTIFICATION_TOPIC" envDefault:"chat.notifications"`
	Timeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
}

// Preview shortens message content for notification bodies
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "..."
}

// record is the value written to the notification topic
type record struct {
	ID        string       `json:"id"`
	UserID    int64        `json:"userId"`
	CreatedAt time.Time    `json:"createdAt"`
	Payload   Notification `json:"notification"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaBridge publishes notifications for the push-delivery service
type KafkaBridge struct {
	logger *zap.SugaredLogger
	writer messageWriter
}

func NewKafkaBridge(logger *zap.SugaredLogger, cfg EnvConfig) *KafkaBridge {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: cfg.Timeout,
	}
	return &KafkaBridge{logger: logger, writer: w}
}

// Send publishes n for user keyed by user id, so notifications of one user stay ordered
func (b *KafkaBridge) Send(ctx context.Context, userID int64, n Notification) error {
	rec := record{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		Payload:   n,
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = b.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(strconv.FormatInt(userID, 10)),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "notification-id", Value: []byte(rec.ID)},
			{Key: "notification-type", Value: []byte(n.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}

	b.logger.Debugf("Published notification %s for user %d", rec.ID, userID)

	return nil
}

func (b *KafkaBridge) Close() error {
	return b.writer.Close()
}

// NopBridge drops notifications. It is used when no broker is configured.
type NopBridge struct {
	logger *zap.SugaredLogger
}

func NewNopBridge(logger *zap.SugaredLogger) NopBridge {
	return NopBridge{logger: logger}
}

func (b NopBridge) Send(_ context.Context, userID int64, n Notification) error {
	b.logger.Debugf("Dropping %s notification for user %d: no broker configured", n.Type, userID)
	return nil
}

func (b NopBridge) Close() error { return nil }
