package notification

import (
    "context"
    "encoding/json"
    "fmt"

    "github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the notifier needs.
type MessageWriter interface {
    WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes events as JSON, keyed by wallet id so that events
// for one wallet land on one partition in order.
type KafkaNotifier struct {
    writer MessageWriter
}

// NewKafkaNotifier wraps a configured writer. The writer owns the topic.
func NewKafkaNotifier(writer MessageWriter) *KafkaNotifier {
    return &KafkaNotifier{writer: writer}
}

func (n *KafkaNotifier) Send(ctx context.Context, event Event) error {
    payload, err := json.Marshal(event)
    if err != nil {
        return fmt.Errorf("encode event: %w", err)
    }
    msg := kafka.Message{
        Key:   []byte(event.WalletID),
        Value: payload,
        Time:  event.OccurredAt,
        Headers: []kafka.Header{
            {Key: "kind", Value: []byte(event.Kind)},
        },
    }
    if err := n.writer.WriteMessages(ctx, msg); err != nil {
        return fmt.Errorf("publish %s event: %w", event.Kind, err)
    }
    return nil
}
