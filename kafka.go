package pollmint

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	VoteTopic    = "pollmint_vote"
	CoinTopic    = "pollmint_coin"
	PaymentTopic = "pollmint_payment"
)

// Publisher emits domain events; delivery is best effort.
type Publisher interface {
	Publish(topic string, event interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

type KWriter struct {
	w *kafka.Writer
}

func NewKWriter(topic string, uri string) *KWriter {
	return &KWriter{
		w: &kafka.Writer{
			Addr:         kafka.TCP(uri),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (kw *KWriter) Write(ctx context.Context, key string, body []byte) error {
	return kw.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
	})
}

func (kw *KWriter) Close() {
	kw.w.Close()
}

type KafkaPublisher struct {
	writers map[string]*KWriter
	timeout time.Duration
}

func NewKafkaPublisher(uri string) *KafkaPublisher {
	writers := make(map[string]*KWriter)
	for _, topic := range []string{VoteTopic, CoinTopic, PaymentTopic} {
		writers[topic] = NewKWriter(topic, uri)
	}
	return &KafkaPublisher{writers: writers, timeout: 5 * time.Second}
}

func (k *KafkaPublisher) Publish(topic string, event interface{}) {
	kw, ok := k.writers[topic]
	if !ok {
		log.Warn("unknown kafka topic", "topic", topic)
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Error("json.Marshal(event)", "err", err, "topic", topic)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
		defer cancel()
		if err := kw.Write(ctx, topic, body); err != nil {
			log.Error("kw.Write(body)", "err", err, "topic", topic)
		}
	}()
}

func (k *KafkaPublisher) Close() {
	for _, kw := range k.writers {
		kw.Close()
	}
}
